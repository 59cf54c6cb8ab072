// Package config provides application configuration with multi-source
// priority.
//
// Sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.quill/config.yaml)
//  3. Default values
//
// Error handling uses sentinel errors so callers can check with errors.Is().
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrNoModels indicates the model catalog is empty.
	ErrNoModels = errors.New("model catalog is empty")

	// ErrUnknownDefaultModel indicates the default model is not in the catalog.
	ErrUnknownDefaultModel = errors.New("default model not in catalog")

	// ErrInvalidStoreBackend indicates an unsupported session store backend.
	ErrInvalidStoreBackend = errors.New("invalid store backend")

	// ErrInvalidTimeout indicates the turn timeout is out of range.
	ErrInvalidTimeout = errors.New("invalid turn timeout")

	// ErrInvalidAddr indicates the listen address is empty.
	ErrInvalidAddr = errors.New("invalid listen address")
)

// Session store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Model is one entry of the served model catalog.
type Model struct {
	ID   string `mapstructure:"id" json:"id"`
	Name string `mapstructure:"name" json:"name"`
}

// Config stores application configuration.
type Config struct {
	// Model catalog served by GET /models. DefaultModel is used when a turn
	// request names no model.
	Models       []Model `mapstructure:"models" json:"models"`
	DefaultModel string  `mapstructure:"default_model" json:"default_model"`
	MaxTurns     int     `mapstructure:"max_turns" json:"max_turns"`

	// Server
	Addr            string   `mapstructure:"addr" json:"addr"`
	TurnTimeoutSecs int      `mapstructure:"turn_timeout_secs" json:"turn_timeout_secs"`
	RateBurst       int      `mapstructure:"rate_burst" json:"rate_burst"`
	CORSOrigins     []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy      bool     `mapstructure:"trust_proxy" json:"trust_proxy"`

	// Storage
	StoreBackend string `mapstructure:"store_backend" json:"store_backend"` // "memory" or "sqlite"
	SQLitePath   string `mapstructure:"sqlite_path" json:"sqlite_path"`
	ArtifactsDir string `mapstructure:"artifacts_dir" json:"artifacts_dir"`

	// Web search. The key comes from TAVILY_API_KEY; an empty key disables
	// the search tool rather than failing startup.
	TavilyAPIKey string `mapstructure:"tavily_api_key" json:"-"`

	// Logging
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`
}

// TurnTimeout returns the per-turn deadline as a duration.
func (c *Config) TurnTimeout() time.Duration {
	return time.Duration(c.TurnTimeoutSecs) * time.Second
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".quill")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v, configDir)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("models", []map[string]any{
		{"id": "googleai/gemini-2.5-flash", "name": "Gemini 2.5 Flash"},
		{"id": "googleai/gemini-2.5-pro", "name": "Gemini 2.5 Pro"},
	})
	v.SetDefault("default_model", "googleai/gemini-2.5-flash")
	v.SetDefault("max_turns", 5)

	v.SetDefault("addr", "localhost:8080")
	v.SetDefault("turn_timeout_secs", 300)
	v.SetDefault("rate_burst", 60)
	v.SetDefault("cors_origins", []string{"http://localhost:5173"})
	v.SetDefault("trust_proxy", false)

	v.SetDefault("store_backend", StoreMemory)
	v.SetDefault("sqlite_path", filepath.Join(configDir, "conversations.db"))
	v.SetDefault("artifacts_dir", filepath.Join(configDir, "artifacts"))

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
}

// bindEnvVariables binds environment overrides explicitly.
// GEMINI_API_KEY is read directly by the model plugin, not via viper.
func bindEnvVariables(v *viper.Viper) {
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("tavily_api_key", "TAVILY_API_KEY")
	mustBind("addr", "QUILL_ADDR")
	mustBind("default_model", "QUILL_DEFAULT_MODEL")
	mustBind("store_backend", "QUILL_STORE_BACKEND")
	mustBind("sqlite_path", "QUILL_SQLITE_PATH")
	mustBind("artifacts_dir", "QUILL_ARTIFACTS_DIR")
	mustBind("cors_origins", "QUILL_CORS_ORIGINS")
	mustBind("trust_proxy", "QUILL_TRUST_PROXY")
	mustBind("log_level", "QUILL_LOG_LEVEL")
}

// Validate checks the configuration for consistency. Fail fast: a bad config
// should stop startup, not surface mid-turn.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if c.Addr == "" {
		return ErrInvalidAddr
	}

	if len(c.Models) == 0 {
		return ErrNoModels
	}
	if c.DefaultModel != "" {
		found := false
		for _, m := range c.Models {
			if m.ID == c.DefaultModel {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: %q", ErrUnknownDefaultModel, c.DefaultModel)
		}
	}

	switch c.StoreBackend {
	case StoreMemory, StoreSQLite:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStoreBackend, c.StoreBackend)
	}

	if c.TurnTimeoutSecs <= 0 || c.TurnTimeoutSecs > 3600 {
		return fmt.Errorf("%w: %d seconds", ErrInvalidTimeout, c.TurnTimeoutSecs)
	}

	return nil
}
