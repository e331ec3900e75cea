package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, _, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "wss://rand.haha.computer", cfg.LeftURL)
	assert.Equal(t, "wss://entropy.haha.computer", cfg.RightURL)
	assert.Equal(t, 200, cfg.MaxBodies)
	assert.Equal(t, 3, cfg.SpawnPerStep)
	assert.Equal(t, 2*time.Second, cfg.ReconnectDelay)
	assert.Equal(t, 2*time.Second, cfg.LivenessInterval)
	assert.Equal(t, 5*time.Second, cfg.StaleThreshold)
	assert.Equal(t, 60, cfg.FPS)
	assert.Equal(t, "auto", cfg.Theme)
	assert.Equal(t, "2222", cfg.SSHPort)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("MARQUEE_LEFT_URL", "ws://localhost:9000/feed")
	t.Setenv("MARQUEE_MAX_BODIES", "50")
	t.Setenv("MARQUEE_STALE_THRESHOLD", "1500ms")
	t.Setenv("MARQUEE_SEED", "42")
	t.Setenv("MARQUEE_THEME", "light")

	cfg, _, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ws://localhost:9000/feed", cfg.LeftURL)
	assert.Equal(t, 50, cfg.MaxBodies)
	assert.Equal(t, 1500*time.Millisecond, cfg.StaleThreshold)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, "light", cfg.Theme)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"zero max bodies", "MARQUEE_MAX_BODIES", "0", "MARQUEE_MAX_BODIES must be positive"},
		{"negative spawn rate", "MARQUEE_SPAWN_PER_STEP", "-1", "MARQUEE_SPAWN_PER_STEP must be positive"},
		{"zero reconnect delay", "MARQUEE_RECONNECT_DELAY", "0s", "MARQUEE_RECONNECT_DELAY must be positive"},
		{"fps too high", "MARQUEE_FPS", "500", "MARQUEE_FPS must be between 1 and 240"},
		{"fps zero", "MARQUEE_FPS", "0", "MARQUEE_FPS must be between 1 and 240"},
		{"http feed", "MARQUEE_RIGHT_URL", "https://example.com", "scheme must be ws or wss"},
		{"no host", "MARQUEE_LEFT_URL", "ws://", "host is required"},
		{"unknown theme", "MARQUEE_THEME", "neon", "MARQUEE_THEME must be auto, dark or light"},
		{"unknown log format", "LOG_FORMAT", "xml", "LOG_FORMAT must be text, json or logfmt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, _, err := Load()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_UnparsableValue(t *testing.T) {
	t.Setenv("MARQUEE_MAX_BODIES", "lots")

	_, _, err := Load()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalid)
}
