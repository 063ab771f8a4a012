package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// ProjectConfigPath returns the project configuration path under root.
func ProjectConfigPath(root string) string {
	return filepath.Join(root, ProjectDir, "config.yaml")
}

// UserConfigPath returns the per-user configuration path.
func UserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "triad", "config.yaml"), nil
}

// EnsureConfigFile writes DefaultConfigYAML to path unless a file already
// exists there or force is set. It reports whether a file was written.
func EnsureConfigFile(path string, force bool) (bool, error) {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		} else if !os.IsNotExist(err) {
			return false, fmt.Errorf("checking config: %w", err)
		}
	}
	if err := AtomicWrite(path, []byte(DefaultConfigYAML)); err != nil {
		return false, fmt.Errorf("writing config: %w", err)
	}
	return true, nil
}
