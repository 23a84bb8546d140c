package poster

import "strings"

// ParseTags splits a tag string on commas when it has any, otherwise on
// whitespace. Leading '#' characters are stripped and empty tags dropped.
func ParseTags(s string) []string {
	var parts []string
	if strings.Contains(s, ",") {
		parts = strings.Split(s, ",")
	} else {
		parts = strings.Fields(s)
	}

	tags := []string{}
	for _, t := range parts {
		t = strings.TrimLeft(strings.TrimSpace(t), "#")
		t = strings.TrimSpace(t)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
