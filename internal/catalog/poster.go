package catalog

import (
	"os"
	"path/filepath"
	"strings"
)

// FindPoster searches dir for artwork stored next to the show metadata.
func FindPoster(dir string) (string, bool) {
	if dir == "" {
		return "", false
	}

	for _, base := range []string{"poster", "folder", "cover"} {
		for _, ext := range []string{".jpg", ".jpeg", ".png", ".webp"} {
			candidate := filepath.Join(dir, base+ext)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, true
			}
		}
	}

	return "", false
}

// PosterContentType returns the content type for a poster file
func PosterContentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
