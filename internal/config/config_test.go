package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOrCreateWritesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOrCreate(dir)
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	if cfg.DefaultTargetHost != "127.0.0.1" {
		t.Fatalf("expected loopback default target host, got %q", cfg.DefaultTargetHost)
	}
	if !cfg.DashboardEnabled() {
		t.Fatal("expected dashboard enabled by default")
	}
	if _, err := os.Stat(Path(dir)); err != nil {
		t.Fatalf("expected config file to be created: %v", err)
	}
}

func TestLoadOrCreateRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.PreferredPort = 2085
	cfg.Manifest = "/tmp/routes.yaml"
	if err := Save(dir, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadOrCreate(dir)
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	if loaded.PreferredPort != 2085 {
		t.Fatalf("expected preferred port 2085, got %d", loaded.PreferredPort)
	}
	if loaded.Manifest != "/tmp/routes.yaml" {
		t.Fatalf("expected manifest path to survive, got %q", loaded.Manifest)
	}
}

func TestLoadOrCreateFillsMissingFields(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"preferredPort": 2090}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadOrCreate(dir)
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	if cfg.DefaultTargetHost != "127.0.0.1" {
		t.Fatalf("expected defaults applied, got %q", cfg.DefaultTargetHost)
	}
	if !cfg.DashboardEnabled() {
		t.Fatal("expected dashboard to default on")
	}
}

func TestLoadOrCreateRejectsInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte("{nope"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadOrCreate(dir); err == nil {
		t.Fatal("expected an error for invalid config")
	}
}
