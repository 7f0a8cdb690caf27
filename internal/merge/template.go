package merge

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var ErrTemplateNotFound = errors.New("template workbook not found")

var templateExts = map[string]bool{".xlsx": true, ".xlsm": true}

// FindTemplate returns the first workbook in dir whose name contains match.
// Excel lock files ("~$...") are ignored.
func FindTemplate(dir, match string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateNotFound, err)
	}

	var candidates, available, legacy []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "~$") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if ext == ".xls" && strings.Contains(name, match) {
			legacy = append(legacy, name)
		}
		if !templateExts[ext] {
			continue
		}
		available = append(available, name)
		if strings.Contains(name, match) {
			candidates = append(candidates, name)
		}
	}

	switch {
	case len(candidates) == 0 && len(legacy) > 0:
		return "", fmt.Errorf("%w: %v is a legacy .xls workbook, save it as .xlsx or .xlsm", ErrTemplateNotFound, legacy)
	case len(candidates) == 0:
		return "", fmt.Errorf("%w: no file in %s contains %q, available: %v", ErrTemplateNotFound, dir, match, available)
	case len(candidates) > 1:
		slog.Warn("Several templates match, using the first", "match", match, "candidates", candidates)
	}
	return filepath.Join(dir, candidates[0]), nil
}
