package types

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// QueueEntry is one row of the posting queue
type QueueEntry struct {
	ImagePath    string `json:"image_path"`
	Caption      string `json:"caption"`
	Tags         string `json:"tags"`
	PlatformList string `json:"platforms"` // colon-separated, e.g. "tumblr:other"
}

// Platforms splits the colon-separated platform list, dropping empty tokens
func (e QueueEntry) Platforms() []string {
	var out []string
	for _, p := range strings.Split(e.PlatformList, ":") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks that the entry can be posted somewhere
func (e QueueEntry) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.ImagePath, validation.Required),
		validation.Field(&e.PlatformList, validation.Required,
			validation.By(func(interface{}) error {
				if len(e.Platforms()) == 0 {
					return validation.NewError("validation_no_platforms", "must name at least one platform")
				}
				return nil
			})),
	)
}

// Cookie is one cookie as exported from a live browser session.
// Secure and Expiry are pointers so "absent" can be told apart from false/zero.
type Cookie struct {
	Name     string   `json:"name"`
	Value    string   `json:"value"`
	Domain   string   `json:"domain,omitempty"`
	Path     string   `json:"path,omitempty"`
	Secure   *bool    `json:"secure,omitempty"`
	HTTPOnly bool     `json:"httpOnly,omitempty"`
	SameSite string   `json:"sameSite,omitempty"`
	Expiry   *float64 `json:"expiry,omitempty"`
}

// Site describes the URLs and login signals of a target platform
type Site struct {
	Name             string
	RootURL          string
	LoginURL         string
	DashboardPrefix  string
	LoggedInSelector string
}

// Cascade is an ordered list of selector alternatives; the first match wins
type Cascade struct {
	Name      string
	XPath     bool
	Selectors []string
}
