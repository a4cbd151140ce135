// Package config loads youvisa settings from the environment.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// ErrMissingConfiguration is returned when a required secret is not set.
// The process must refuse to start when it sees it.
var ErrMissingConfiguration = errors.New("missing configuration")

// Config is the full runtime configuration.
type Config struct {
	TransportToken string `env:"TRANSPORT_TOKEN"`
	OpenAIKey      string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL  string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OpenAIModel    string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`

	DBDriver   string `env:"YOUVISA_DB_DRIVER" envDefault:"sqlite"`
	DBDSN      string `env:"YOUVISA_DB_DSN" envDefault:"youvisa.db"`
	StorageDir string `env:"YOUVISA_STORAGE_DIR" envDefault:"uploads"`

	RedisURL   string        `env:"YOUVISA_REDIS_URL"`
	SessionKey string        `env:"YOUVISA_SESSION_KEY"`
	SessionTTL time.Duration `env:"YOUVISA_SESSION_TTL" envDefault:"24h"`

	HTTPAddr  string `env:"YOUVISA_HTTP_ADDR" envDefault:":8080"`
	LogLevel  string `env:"YOUVISA_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"YOUVISA_LOG_FORMAT" envDefault:"text"`

	ClassifyTimeout     time.Duration `env:"YOUVISA_CLASSIFY_TIMEOUT" envDefault:"60s"`
	AssistantTimeout    time.Duration `env:"YOUVISA_ASSISTANT_TIMEOUT" envDefault:"30s"`
	MaxClassifyAttempts int           `env:"YOUVISA_MAX_CLASSIFY_ATTEMPTS" envDefault:"0"`
	ActiveTaskPolicy    string        `env:"YOUVISA_ACTIVE_TASK_POLICY" envDefault:"allow"`
	MatchMode           string        `env:"YOUVISA_MATCH_MODE" envDefault:"first"`
	MaxInputSize        int           `env:"YOUVISA_MAX_INPUT_SIZE" envDefault:"4096"`
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	cfg, err := Parse()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse reads the environment without enforcing required secrets.
// Offline commands (country import, report) use it directly.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// Validate checks required secrets and enumerated values.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.TransportToken) == "" {
		missing = append(missing, "TRANSPORT_TOKEN")
	}
	if strings.TrimSpace(c.OpenAIKey) == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfiguration, strings.Join(missing, ", "))
	}

	switch c.DBDriver {
	case "sqlite", "postgres", "memory":
	default:
		return fmt.Errorf("YOUVISA_DB_DRIVER: unsupported driver %q", c.DBDriver)
	}
	switch c.ActiveTaskPolicy {
	case "allow", "reuse", "forbid":
	default:
		return fmt.Errorf("YOUVISA_ACTIVE_TASK_POLICY: unsupported policy %q", c.ActiveTaskPolicy)
	}
	switch c.MatchMode {
	case "first", "longest", "exact":
	default:
		return fmt.Errorf("YOUVISA_MATCH_MODE: unsupported mode %q", c.MatchMode)
	}
	if c.MaxClassifyAttempts < 0 {
		return fmt.Errorf("YOUVISA_MAX_CLASSIFY_ATTEMPTS must not be negative")
	}
	if _, err := c.SessionKeyBytes(); err != nil {
		return err
	}
	return nil
}

// SessionKeyBytes decodes YOUVISA_SESSION_KEY. It returns nil when unset.
func (c *Config) SessionKeyBytes() ([]byte, error) {
	if c.SessionKey == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(c.SessionKey)
	if err != nil {
		return nil, fmt.Errorf("YOUVISA_SESSION_KEY: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("YOUVISA_SESSION_KEY: want 32 bytes, got %d", len(key))
	}
	return key, nil
}
