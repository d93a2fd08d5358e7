package config

import (
	"os"
	"path/filepath"
)

// Workspace marks the directory uplink treats as the project root.
type Workspace struct {
	Root        string
	Initialized bool // .uplink/ directory exists
}

// DetectWorkspace walks up from startDir looking for a .uplink/
// directory, the marker for an initialized uplink workspace. When no
// marker exists anywhere up the tree, the start directory itself is
// the root.
func DetectWorkspace(startDir string) Workspace {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return Workspace{Root: startDir}
	}

	for d := dir; ; {
		marker := filepath.Join(d, ".uplink")
		if info, err := os.Stat(marker); err == nil && info.IsDir() {
			return Workspace{Root: d, Initialized: true}
		}
		parent := filepath.Dir(d)
		if parent == d {
			break
		}
		d = parent
	}

	return Workspace{Root: dir}
}

// PatternDir resolves the configured pattern directory against the
// workspace root. Absolute paths pass through unchanged.
func (w Workspace) PatternDir(cfg Config) string {
	return w.resolve(cfg.PatternDir)
}

// BuildDir resolves the configured build directory against the
// workspace root.
func (w Workspace) BuildDir(cfg Config) string {
	return w.resolve(cfg.BuildDir)
}

func (w Workspace) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(w.Root, path)
}
