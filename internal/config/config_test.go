package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "skai.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `{
		"server": {"port": 9090, "log_level": "debug"},
		"providers": [
			{"id": "or", "type": "openrouter", "name": "OpenRouter", "api_key": "sk-test", "model": "m", "timeout": 30}
		],
		"kernel": {"name": "kernel_agent", "model": "m"},
		"session": {"storage": "file", "dir": "/tmp/sessions"},
		"voice": {"idle_timeout_seconds": 20, "wake_phrase": "Hey Sky"}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if len(cfg.Providers) != 1 || cfg.Providers[0].Timeout != 30 {
		t.Errorf("unexpected providers: %+v", cfg.Providers)
	}
	if cfg.Voice.IdleTimeoutSeconds != 20 {
		t.Errorf("expected idle timeout 20, got %d", cfg.Voice.IdleTimeoutSeconds)
	}
}

func TestLoadEnvSubstitution(t *testing.T) {
	t.Setenv("SKAI_TEST_KEY", "sk-from-env")

	path := writeConfig(t, `{
		"server": {"port": 8080},
		"providers": [{"id": "or", "type": "openrouter", "api_key": "${SKAI_TEST_KEY}"}],
		"session": {"dir": "${SKAI_TEST_DIR:fallback-dir}"}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Providers[0].APIKey != "sk-from-env" {
		t.Errorf("expected env value, got %q", cfg.Providers[0].APIKey)
	}
	// Unset var falls back to the inline default.
	if cfg.Session.Dir != "fallback-dir" {
		t.Errorf("expected fallback, got %q", cfg.Session.Dir)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `{}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port, got %d", cfg.Server.Port)
	}
	if cfg.Session.Storage != "file" || cfg.Session.Dir != "sessions" {
		t.Errorf("unexpected session defaults: %+v", cfg.Session)
	}
	if cfg.Voice.IdleTimeoutSeconds != 10 {
		t.Errorf("expected default idle timeout, got %d", cfg.Voice.IdleTimeoutSeconds)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	path := writeConfig(t, `{not json`)
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
