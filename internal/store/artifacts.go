package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// generateFilename creates a timestamped filename with the given prefix and extension.
func generateFilename(prefix, ext string) string {
	return prefix + "-" + time.Now().Format("2006-01-02T15-04-05") + ext
}

// SaveArtifact writes debugging output (page HTML, screenshots) from a failed
// post to dir. Returns the path to the saved file.
func SaveArtifact(dir, prefix, ext string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create artifacts dir: %w", err)
	}

	path := filepath.Join(dir, generateFilename(prefix, ext))

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}

	return path, nil
}

// LatestArtifact returns the most recent file in dir with the given extension.
func LatestArtifact(dir, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("no artifacts in %s", dir)
		}
		return "", err
	}

	var latest os.DirEntry
	var latestMod time.Time
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ext {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if latest == nil || !info.ModTime().Before(latestMod) {
			latest, latestMod = entry, info.ModTime()
		}
	}

	if latest == nil {
		return "", fmt.Errorf("no %s artifacts in %s", ext, dir)
	}

	return filepath.Join(dir, latest.Name()), nil
}
