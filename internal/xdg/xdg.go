// Package xdg resolves the per-user directories devport stores its files in.
package xdg

import (
	"os"
	"path/filepath"
	"strings"
)

const appDir = "devport"

// ConfigDir returns the directory holding config.json, creating nothing.
// DEVPORT_CONFIG_DIR overrides the default for tests and unusual setups.
func ConfigDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("DEVPORT_CONFIG_DIR")); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appDir), nil
}

// RuntimeDir returns the directory for ephemeral per-session state such as
// the daemon state file. Prefers XDG_RUNTIME_DIR, falls back to the system
// temp dir.
func RuntimeDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("DEVPORT_RUNTIME_DIR")); dir != "" {
		return dir, nil
	}
	if dir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR")); dir != "" {
		return filepath.Join(dir, appDir), nil
	}
	return filepath.Join(os.TempDir(), appDir), nil
}
