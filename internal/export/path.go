// Package export writes cloud fragments and estimate results to files:
// CloudCompare ASC text, PNG plots and interactive HTML.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// OutputPath joins a sanitized file name onto dir and checks that the
// result stays inside dir after symlinks in dir are resolved. The directory
// is created if missing.
func OutputPath(dir, name string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("empty output directory")
	}
	base := SanitizeFilename(filepath.Base(name))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("cannot resolve output directory: %w", err)
	}
	canonicalDir, err := filepath.EvalSymlinks(absDir)
	if err != nil {
		return "", fmt.Errorf("cannot resolve output directory symlinks: %w", err)
	}

	path := filepath.Join(canonicalDir, base)
	rel, err := filepath.Rel(canonicalDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", fmt.Errorf("path traversal detected: %s escapes %s", name, dir)
	}
	return path, nil
}

// SanitizeFilename keeps ASCII letters, digits, dot, underscore and dash,
// replaces every other run of characters with one underscore and trims
// leading and trailing dots and underscores. The result is at most 128
// bytes; an empty result becomes "unknown".
func SanitizeFilename(s string) string {
	const maxLen = 128
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
			lastUnderscore = r == '_'
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
