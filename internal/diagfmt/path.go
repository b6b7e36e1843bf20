package diagfmt

import (
	"os"
	"path/filepath"

	"ember/internal/source"
)

// displayPath renders f's path according to mode. Virtual files keep their name.
func displayPath(f *source.File, mode PathMode) string {
	if f == nil {
		return "<unknown>"
	}
	if f.Flags&source.FileVirtual != 0 && mode != PathModeBasename {
		return f.Path
	}
	switch mode {
	case PathModeAbsolute:
		if abs, err := filepath.Abs(f.Path); err == nil {
			return abs
		}
	case PathModeRelative:
		if rel, ok := relativeToCwd(f.Path); ok {
			return rel
		}
	case PathModeBasename:
		return filepath.Base(f.Path)
	case PathModeAuto:
		if rel, ok := relativeToCwd(f.Path); ok && len(rel) < len(f.Path) {
			return rel
		}
	}
	return f.Path
}

func relativeToCwd(path string) (string, bool) {
	wd, err := os.Getwd()
	if err != nil {
		return "", false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(wd, abs)
	if err != nil {
		return "", false
	}
	return rel, true
}
