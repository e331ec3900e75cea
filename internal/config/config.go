// Package config loads runtime settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds every tunable of the marquee binaries.
type Config struct {
	LeftURL  string `env:"MARQUEE_LEFT_URL" default:"wss://rand.haha.computer"`
	RightURL string `env:"MARQUEE_RIGHT_URL" default:"wss://entropy.haha.computer"`

	MaxBodies    int    `env:"MARQUEE_MAX_BODIES" default:"200"`
	SpawnPerStep int    `env:"MARQUEE_SPAWN_PER_STEP" default:"3"`
	FPS          int    `env:"MARQUEE_FPS" default:"60"`
	Seed         int64  `env:"MARQUEE_SEED" default:"0"` // 0 picks a random seed
	Theme        string `env:"MARQUEE_THEME" default:"auto"`

	ReconnectDelay   time.Duration `env:"MARQUEE_RECONNECT_DELAY" default:"2s"`
	LivenessInterval time.Duration `env:"MARQUEE_LIVENESS_INTERVAL" default:"2s"`
	StaleThreshold   time.Duration `env:"MARQUEE_STALE_THRESHOLD" default:"5s"`

	SSHHost        string `env:"SSH_HOST" default:"::"`
	SSHPort        string `env:"SSH_PORT" default:"2222"`
	SSHHostKey     string `env:"SSH_HOST_KEY" default:"/app/keys/host_key"`
	SSHDisplayHost string `env:"SSH_DISPLAY_HOST" default:"your-server.com"`
	HTTPAddr       string `env:"HTTP_ADDR" default:":9090"`
	WebHost        string `env:"WEB_HOST" default:"0.0.0.0"`
	WebPort        string `env:"WEB_PORT" default:"8080"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
	LogFile   string `env:"LOG_FILE"`
}

// Load reads .env (if present) and the process environment, then validates.
// The returned bool reports whether a .env file was found.
func Load() (*Config, bool, error) {
	dotenv := godotenv.Load() == nil

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, dotenv, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, dotenv, err
	}

	return &cfg, dotenv, nil
}

// Validate checks ranges and URL schemes.
func (c *Config) Validate() error {
	positive := []struct {
		name  string
		value int64
	}{
		{"MARQUEE_MAX_BODIES", int64(c.MaxBodies)},
		{"MARQUEE_SPAWN_PER_STEP", int64(c.SpawnPerStep)},
		{"MARQUEE_RECONNECT_DELAY", int64(c.ReconnectDelay)},
		{"MARQUEE_LIVENESS_INTERVAL", int64(c.LivenessInterval)},
		{"MARQUEE_STALE_THRESHOLD", int64(c.StaleThreshold)},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalid, p.name)
		}
	}

	if c.FPS < 1 || c.FPS > 240 {
		return fmt.Errorf("%w: MARQUEE_FPS must be between 1 and 240, got %d", ErrInvalid, c.FPS)
	}

	for name, raw := range map[string]string{
		"MARQUEE_LEFT_URL":  c.LeftURL,
		"MARQUEE_RIGHT_URL": c.RightURL,
	} {
		if err := validateFeedURL(raw); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalid, name, err)
		}
	}

	switch c.Theme {
	case "auto", "dark", "light":
	default:
		return fmt.Errorf("%w: MARQUEE_THEME must be auto, dark or light, got %q", ErrInvalid, c.Theme)
	}

	switch c.LogFormat {
	case "text", "json", "logfmt":
	default:
		return fmt.Errorf("%w: LOG_FORMAT must be text, json or logfmt, got %q", ErrInvalid, c.LogFormat)
	}

	return nil
}

func validateFeedURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("scheme must be ws or wss, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("host is required")
	}
	return nil
}
