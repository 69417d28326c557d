package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Region.Zoom != 14 {
		t.Errorf("zoom = %d, want 14", cfg.Region.Zoom)
	}
	bbox := cfg.BoundingBox()
	if bbox.North != 37.42 || bbox.South != 37.39 || bbox.East != 136.90 || bbox.West != 136.87 {
		t.Errorf("default bbox = %+v", bbox)
	}
	if cfg.Timeout() != 30*time.Second {
		t.Errorf("timeout = %s, want 30s", cfg.Timeout())
	}
	if cfg.RequestInterval() != time.Second {
		t.Errorf("interval = %s, want 1s", cfg.RequestInterval())
	}
	if cfg.Download.OutDir != "rawdata/2024" {
		t.Errorf("out dir = %q", cfg.Download.OutDir)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("port = %q", cfg.Server.Port)
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("explicitly named missing config accepted")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
region:
  name: Anamizu
  north: 37.25
  south: 37.20
  east: 136.95
  west: 136.88
  zoom: 13
source:
  interval_seconds: 2
download:
  out_dir: /tmp/demtiles-test
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Region.Name != "Anamizu" || cfg.Region.Zoom != 13 {
		t.Errorf("region = %+v", cfg.Region)
	}
	if cfg.RequestInterval() != 2*time.Second {
		t.Errorf("interval = %s, want 2s", cfg.RequestInterval())
	}
	if cfg.Download.OutDir != "/tmp/demtiles-test" {
		t.Errorf("out dir = %q", cfg.Download.OutDir)
	}
	// Unset keys keep their defaults.
	if cfg.Source.TimeoutSeconds != 30 {
		t.Errorf("timeout_seconds = %d, want default 30", cfg.Source.TimeoutSeconds)
	}
}

func TestLoadRejectsInvalidRegion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
region:
  north: 37.39
  south: 37.42
  east: 136.90
  west: 136.87
  zoom: 14
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("inverted north/south accepted")
	}
}
