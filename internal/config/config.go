package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
)

// Config is the top-level configuration structure.
type Config struct {
	Server    ServerConfig     `json:"server"`
	Providers []ProviderConfig `json:"providers"`
	Kernel    KernelConfig     `json:"kernel"`
	Session   SessionConfig    `json:"session"`
	Redis     RedisConfig      `json:"redis"`
	Voice     VoiceConfig      `json:"voice"`
}

type ServerConfig struct {
	Port     int    `json:"port"`
	LogLevel string `json:"log_level"`
}

type ProviderConfig struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Name     string `json:"name"`
	Endpoint string `json:"endpoint"`
	APIKey   string `json:"api_key"`
	Model    string `json:"model"`
	Timeout  int    `json:"timeout,omitempty"`
}

type KernelConfig struct {
	Name        string `json:"name"`
	Model       string `json:"model"`
	Instruction string `json:"instruction"`
}

type SessionConfig struct {
	// Storage selects the persistence backend: "file" or "postgres".
	Storage     string `json:"storage"`
	Dir         string `json:"dir"`
	PostgresDSN string `json:"postgres_dsn"`
}

type RedisConfig struct {
	URL string `json:"url"`
}

type VoiceConfig struct {
	// IdleTimeoutSeconds is the silence window before the wake-word prompt.
	IdleTimeoutSeconds int      `json:"idle_timeout_seconds"`
	WakePhrase         string   `json:"wake_phrase"`
	Greeting           string   `json:"greeting"`
	ExitPhrases        []string `json:"exit_phrases,omitempty"`
}

// envVarRe matches ${VAR} and ${VAR:default} patterns.
var envVarRe = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load reads a JSON config file and substitutes environment variable references.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	// Substitute ${VAR} and ${VAR:default} with environment values.
	resolved := envVarRe.ReplaceAllStringFunc(string(data), func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		name := parts[1]
		defaultVal := parts[2]
		if v := os.Getenv(name); v != "" {
			return v
		}
		return defaultVal
	})

	var cfg Config
	if err := json.Unmarshal([]byte(resolved), &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = "info"
	}
	if cfg.Session.Storage == "" {
		cfg.Session.Storage = "file"
	}
	if cfg.Session.Dir == "" {
		cfg.Session.Dir = "sessions"
	}
	if cfg.Voice.IdleTimeoutSeconds == 0 {
		cfg.Voice.IdleTimeoutSeconds = 10
	}
}
