package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.HTTP.Port)
	}
	if cfg.Gen.Mode != "mock" || cfg.Speech.Mode != "mock" {
		t.Fatalf("expected mock backends by default, got gen=%s speech=%s", cfg.Gen.Mode, cfg.Speech.Mode)
	}
	if len(cfg.Podcast.NamePool) != 10 {
		t.Fatalf("expected 10 pool names, got %d", len(cfg.Podcast.NamePool))
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "paperwave.yaml")
	body := `
http:
  port: 9000
podcast:
  show_name: Late Review
  page_delay_ms: 0
speech:
  mode: elevenlabs
  api_key: test-key
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 9000 {
		t.Fatalf("expected port override 9000, got %d", cfg.HTTP.Port)
	}
	if cfg.Podcast.ShowName != "Late Review" {
		t.Fatalf("expected show name override, got %q", cfg.Podcast.ShowName)
	}
	if cfg.Podcast.PageDelayMS != 0 {
		t.Fatalf("expected page delay override 0, got %d", cfg.Podcast.PageDelayMS)
	}
	if cfg.Speech.Mode != "elevenlabs" || cfg.Speech.APIKey != "test-key" {
		t.Fatalf("expected speech overrides, got %+v", cfg.Speech)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PAPERWAVE_HTTP_PORT", "9100")
	t.Setenv("PAPERWAVE_GEN_MODE", "gemini")
	t.Setenv("PAPERWAVE_GEN_API_KEY", "secret")
	t.Setenv("PAPERWAVE_PODCAST_NAME_POOL", "Ada, Grace, Alan, Edsger, Barbara, Donald, Tony")
	t.Setenv("PAPERWAVE_BUS_ENABLED", "true")
	t.Setenv("PAPERWAVE_BUS_EMBEDDED", "false")
	t.Setenv("PAPERWAVE_BUS_SERVERS", "nats://one:4222, nats://two:4222")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 9100 {
		t.Fatalf("expected port 9100, got %d", cfg.HTTP.Port)
	}
	if cfg.Gen.Mode != "gemini" || cfg.Gen.APIKey != "secret" {
		t.Fatalf("expected gen overrides, got %+v", cfg.Gen)
	}
	if len(cfg.Podcast.NamePool) != 7 || cfg.Podcast.NamePool[0] != "Ada" {
		t.Fatalf("expected pool override, got %v", cfg.Podcast.NamePool)
	}
	if !cfg.Bus.Enabled || cfg.Bus.Embedded {
		t.Fatalf("expected bus overrides, got %+v", cfg.Bus)
	}
	if len(cfg.Bus.Servers) != 2 {
		t.Fatalf("expected 2 servers, got %v", cfg.Bus.Servers)
	}
}

func TestValidateRejectsMissingKey(t *testing.T) {
	t.Setenv("PAPERWAVE_GEN_MODE", "gemini")

	if _, err := Load(""); err == nil {
		t.Fatal("expected error for gemini mode without api key")
	}
}

func TestValidateRejectsBadMode(t *testing.T) {
	t.Setenv("PAPERWAVE_EXTRACT_MODE", "docx")

	if _, err := Load(""); err == nil {
		t.Fatal("expected error for unknown extract mode")
	}
}

func TestValidateRejectsSmallPool(t *testing.T) {
	t.Setenv("PAPERWAVE_PODCAST_NAME_POOL", "Ada,Grace")

	if _, err := Load(""); err == nil {
		t.Fatal("expected error for undersized name pool")
	}
}
