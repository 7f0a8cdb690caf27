package titles

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".gif":  true,
	".tiff": true,
	".webp": true,
}

// ListImages returns the supported images in dir in filename order. Extensions match
// case-insensitively and names differing only by case are kept once.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read image folder: %w", err)
	}

	seen := make(map[string]bool)
	var images []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !imageExtensions[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		images = append(images, filepath.Join(dir, name))
	}
	return images, nil
}

// ImageID is the filename without its extension.
func ImageID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
