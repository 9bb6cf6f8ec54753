package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("monitor:\n  entryPoolSize: 64\n  debug: true\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.EntryPoolSize != 64 {
		t.Errorf("EntryPoolSize = %d, want 64", cfg.EntryPoolSize)
	}
	if !cfg.Debug {
		t.Error("Debug should be true")
	}
	// Keys absent from the file keep their defaults.
	if cfg.ProcessTimeThreshold != 10 {
		t.Errorf("ProcessTimeThreshold = %d, want default 10", cfg.ProcessTimeThreshold)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestLoadConfigEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.EntryPoolSize != 2000 {
		t.Errorf("EntryPoolSize = %d, want default 2000", cfg.EntryPoolSize)
	}
}
