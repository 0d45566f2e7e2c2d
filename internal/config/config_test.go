package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "client.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadClient(t *testing.T) {
	path := writeConfig(t, `
server_url: http://example.com:9000
stream_id: side
side_a:
  language: en-US
side_b:
  language: es-ES
render_ceiling_seconds: 25
`)

	cfg, err := LoadClient(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerURL != "http://example.com:9000" || cfg.StreamID != "side" {
		t.Errorf("connection settings = %q / %q", cfg.ServerURL, cfg.StreamID)
	}
	if cfg.SideA.Language != "en-US" || cfg.SideB.Language != "es-ES" {
		t.Errorf("languages = %q / %q", cfg.SideA.Language, cfg.SideB.Language)
	}
	if cfg.RenderCeilingSeconds != 25 {
		t.Errorf("render ceiling = %d", cfg.RenderCeilingSeconds)
	}
}

func TestLoadClientDefaults(t *testing.T) {
	path := writeConfig(t, `
side_a:
  language: en-US
side_b:
  language: id-ID
`)

	cfg, err := LoadClient(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerURL != "http://localhost:8080" {
		t.Errorf("default server URL = %q", cfg.ServerURL)
	}
	if cfg.StreamID != "main" {
		t.Errorf("default stream ID = %q", cfg.StreamID)
	}
	if cfg.RenderCeilingSeconds != 0 {
		t.Errorf("default render ceiling = %d", cfg.RenderCeilingSeconds)
	}
}

func TestLoadClientRequiresLanguages(t *testing.T) {
	path := writeConfig(t, `
side_a:
  language: en-US
`)
	if _, err := LoadClient(path); err == nil {
		t.Error("missing side language was accepted")
	}
}

func TestLoadClientMissingFile(t *testing.T) {
	if _, err := LoadClient(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("missing file was accepted")
	}
}

func TestLoadServerDefaultsPort(t *testing.T) {
	t.Setenv("PORT", "")
	if got := LoadServer(); got.Port != "8080" {
		t.Errorf("default port = %q", got.Port)
	}

	t.Setenv("PORT", "9999")
	if got := LoadServer(); got.Port != "9999" {
		t.Errorf("port = %q, want 9999", got.Port)
	}
}
