package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "petpals.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	ec := cfg.EngineConfig()
	if ec.QuestCooldown != time.Hour || ec.QuestTarget != 5 || ec.Location != time.UTC {
		t.Errorf("engine config = %+v", ec)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
[log]
level = "debug"

[server]
port = "9090"
rate_limit = 30
rate_window = "30s"

[remote]
backend = "postgres"
dsn = "postgres://localhost/petpals"
timeout = "2s"

[engine]
quest_cooldown = "90m"
quest_target = 3
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
	if cfg.Server.Port != "9090" || cfg.Server.RateLimit != 30 || cfg.Server.RateWindow.Duration != 30*time.Second {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Remote.Backend != "postgres" || cfg.Remote.Timeout.Duration != 2*time.Second {
		t.Errorf("remote = %+v", cfg.Remote)
	}
	if cfg.Engine.QuestCooldown.Duration != 90*time.Minute || cfg.Engine.QuestTarget != 3 {
		t.Errorf("engine = %+v", cfg.Engine)
	}
	// Untouched sections keep their defaults.
	if cfg.Local.Path != "petpals.db" {
		t.Errorf("local path = %q", cfg.Local.Path)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "[server]\nprot = \"80\"\n")
	if _, err := Load(path); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	env := map[string]string{
		"PETPALS_PORT":           "7000",
		"PETPALS_REMOTE_BACKEND": "mongo",
		"PETPALS_REMOTE_URI":     "mongodb://localhost:27017",
		"PETPALS_QUEST_COOLDOWN": "10m",
		"PETPALS_QUEST_TARGET":   "7",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	if err := cfg.applyEnv(lookup); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Server.Port != "7000" || cfg.Remote.Backend != "mongo" {
		t.Errorf("overrides not applied: %+v %+v", cfg.Server, cfg.Remote)
	}
	if cfg.Engine.QuestCooldown.Duration != 10*time.Minute || cfg.Engine.QuestTarget != 7 {
		t.Errorf("engine = %+v", cfg.Engine)
	}
}

func TestEnvBadDuration(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(func(k string) (string, bool) {
		if k == "PETPALS_REMOTE_TIMEOUT" {
			return "soon", true
		}
		return "", false
	})
	if err == nil {
		t.Error("expected error for bad duration")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown backend", func(c *Config) { c.Remote.Backend = "redis" }},
		{"postgres without dsn", func(c *Config) { c.Remote.Backend = "postgres"; c.Remote.DSN = "" }},
		{"mongo without uri", func(c *Config) { c.Remote.Backend = "mongo" }},
		{"bad port", func(c *Config) { c.Server.Port = "http" }},
		{"bad timezone", func(c *Config) { c.Engine.Timezone = "Mars/Olympus" }},
		{"zero target", func(c *Config) { c.Engine.QuestTarget = 0 }},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
