package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/dukerupert/petpals/internal/engine"
)

const envPrefix = "PETPALS_"

var validate = validator.New()

type Config struct {
	Log    LogConfig    `toml:"log"`
	Server ServerConfig `toml:"server"`
	Local  LocalConfig  `toml:"local"`
	Remote RemoteConfig `toml:"remote"`
	Engine EngineConfig `toml:"engine"`
}

type LogConfig struct {
	Level  string `toml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `toml:"format" validate:"omitempty,oneof=text json"`
}

type ServerConfig struct {
	Port           string   `toml:"port" validate:"required,numeric"`
	RateLimit      int      `toml:"rate_limit" validate:"gte=1"`
	RateWindow     Duration `toml:"rate_window"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// LocalConfig is the on-device cache.
type LocalConfig struct {
	Path      string `toml:"path" validate:"required"`
	CacheSize int    `toml:"cache_size" validate:"gte=0"`
}

// RemoteConfig selects the shared document store. The sqlite backend keeps
// documents in a second database file; memory keeps nothing across restarts.
type RemoteConfig struct {
	Backend    string   `toml:"backend" validate:"oneof=memory sqlite postgres mongo"`
	Path       string   `toml:"path" validate:"required_if=Backend sqlite"`
	DSN        string   `toml:"dsn" validate:"required_if=Backend postgres"`
	URI        string   `toml:"uri" validate:"required_if=Backend mongo"`
	Database   string   `toml:"database"`
	Collection string   `toml:"collection"`
	Timeout    Duration `toml:"timeout"`
}

type EngineConfig struct {
	Timezone      string   `toml:"timezone"`
	QuestCooldown Duration `toml:"quest_cooldown"`
	QuestTarget   int      `toml:"quest_target" validate:"gte=1,lte=100"`
}

// Duration reads TOML strings such as "90s" or "1h".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func Default() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Server: ServerConfig{
			Port:       "8080",
			RateLimit:  120,
			RateWindow: Duration{time.Minute},
		},
		Local: LocalConfig{Path: "petpals.db", CacheSize: 1024},
		Remote: RemoteConfig{
			Backend:    "sqlite",
			Path:       "petpals-remote.db",
			Database:   "petpals",
			Collection: "documents",
			Timeout:    Duration{5 * time.Second},
		},
		Engine: EngineConfig{
			Timezone:      "UTC",
			QuestCooldown: Duration{time.Hour},
			QuestTarget:   5,
		},
	}
}

// Load reads path over the defaults, then applies PETPALS_* environment
// overrides. A missing file is not an error when path is empty.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.Open(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return cfg, fmt.Errorf("config file %s does not exist", path)
		case err != nil:
			return cfg, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := toml.NewDecoder(file).DisallowUnknownFields().Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"LOG_LEVEL":         &c.Log.Level,
		"LOG_FORMAT":        &c.Log.Format,
		"PORT":              &c.Server.Port,
		"DB_PATH":           &c.Local.Path,
		"REMOTE_BACKEND":    &c.Remote.Backend,
		"REMOTE_PATH":       &c.Remote.Path,
		"REMOTE_DSN":        &c.Remote.DSN,
		"REMOTE_URI":        &c.Remote.URI,
		"REMOTE_DATABASE":   &c.Remote.Database,
		"REMOTE_COLLECTION": &c.Remote.Collection,
		"TIMEZONE":          &c.Engine.Timezone,
	}
	for name, dst := range str {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			*dst = v
		}
	}

	dur := map[string]*Duration{
		"REMOTE_TIMEOUT": &c.Remote.Timeout,
		"QUEST_COOLDOWN": &c.Engine.QuestCooldown,
	}
	for name, dst := range dur {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			if err := dst.UnmarshalText([]byte(v)); err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, name, err)
			}
		}
	}

	if v, ok := lookup(envPrefix + "QUEST_TARGET"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sQUEST_TARGET: %w", envPrefix, err)
		}
		c.Engine.QuestTarget = n
	}
	return nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := time.LoadLocation(c.Engine.Timezone); err != nil {
		return fmt.Errorf("invalid config: timezone %q: %w", c.Engine.Timezone, err)
	}
	if c.Engine.QuestCooldown.Duration < 0 {
		return errors.New("invalid config: quest_cooldown must not be negative")
	}
	return nil
}

// EngineConfig converts the [engine] section. Validate has already checked
// the timezone.
func (c *Config) EngineConfig() engine.Config {
	loc, err := time.LoadLocation(c.Engine.Timezone)
	if err != nil {
		loc = time.UTC
	}
	return engine.Config{
		Location:      loc,
		QuestCooldown: c.Engine.QuestCooldown.Duration,
		QuestTarget:   c.Engine.QuestTarget,
	}
}
