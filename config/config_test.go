package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesDefaultsOnEmptyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("{}\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Mode != "CW" {
		t.Fatalf("expected default mode CW, got %q", cfg.Mode)
	}
	if cfg.Activity.InactiveAfter != 300*time.Second {
		t.Fatalf("expected default inactive-after 300s, got %v", cfg.Activity.InactiveAfter)
	}
	if cfg.Archive.Enabled == nil || !*cfg.Archive.Enabled {
		t.Fatalf("expected Archive.Enabled to default true")
	}
	if cfg.Publish.Enabled == nil || !*cfg.Publish.Enabled {
		t.Fatalf("expected Publish.Enabled to default true")
	}
	if cfg.Transport.TopicPrefix != "PROD_SPOT" {
		t.Fatalf("expected default topic prefix PROD_SPOT, got %q", cfg.Transport.TopicPrefix)
	}
}

func TestLoadHonorsExplicitFalse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := "archive:\n  enabled: false\npublish:\n  enabled: false\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Archive.Enabled == nil || *cfg.Archive.Enabled {
		t.Fatalf("expected Archive.Enabled to honor explicit false")
	}
	if cfg.Publish.Enabled == nil || *cfg.Publish.Enabled {
		t.Fatalf("expected Publish.Enabled to honor explicit false")
	}
}

func TestLoadRTTYModeOverridesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("mode: RTTY\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Mode != "RTTY" {
		t.Fatalf("expected mode RTTY, got %q", cfg.Mode)
	}
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestCoefficientSelectsLinearStrategy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := "skimmers:\n  coefficient: linear\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	got := cfg.Coefficient()(28000)
	want := 28000.0 / (50.0 * 14000.0)
	if got != want {
		t.Fatalf("expected linear coefficient %v, got %v", want, got)
	}
}
