// Package state records which devport daemon, if any, is currently serving,
// so CLI commands can find its control API without guessing ports.
package state

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"devport/internal/xdg"
)

// Daemon describes a running serve process.
type Daemon struct {
	PID       int       `json:"pid"`
	Port      int       `json:"port"`
	StartedAt time.Time `json:"startedAt"`
}

func statePath() (string, error) {
	runtimeDir, err := xdg.RuntimeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(runtimeDir, "state.json"), nil
}

// Write records the current process as the running daemon.
func Write(port int) error {
	path, err := statePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(Daemon{
		PID:       os.Getpid(),
		Port:      port,
		StartedAt: time.Now(),
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

// Load returns the recorded daemon, or nil if none is recorded or the
// recorded process is no longer alive. A stale file is removed.
func Load() (*Daemon, error) {
	path, err := statePath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var d Daemon
	if err := json.Unmarshal(data, &d); err != nil {
		_ = os.Remove(path)
		return nil, nil
	}
	if d.PID <= 0 || d.Port <= 0 || !processExists(d.PID) {
		_ = os.Remove(path)
		return nil, nil
	}
	return &d, nil
}

// Clear removes the state file. Missing files are fine.
func Clear() error {
	path, err := statePath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
