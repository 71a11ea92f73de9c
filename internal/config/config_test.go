package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// unsetEnv clears keys for the test and restores them afterwards.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadDefaults(t *testing.T) {
	unsetEnv(t, "CHAT_PORT", "CHAT_STORE_BACKEND", "CHAT_EVENT_SOURCE", "CHAT_DISPATCH_WORKERS", "CHAT_DISPATCH_TIMEOUT")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "8083", cfg.Port)
	require.Equal(t, "memory", cfg.StoreBackend)
	require.Equal(t, "channel", cfg.EventSource)
	require.Equal(t, 16, cfg.DispatchWorkers)
	require.Equal(t, 10*time.Second, cfg.DispatchTimeout)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CHAT_PORT", "9000")
	t.Setenv("CHAT_STORE_BACKEND", "postgres")
	t.Setenv("CHAT_DB_DSN", "postgres://localhost/chat")
	t.Setenv("CHAT_EVENT_SOURCE", "postgres")
	t.Setenv("CHAT_DISPATCH_WORKERS", "4")
	t.Setenv("CHAT_DISPATCH_TIMEOUT", "250ms")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "9000", cfg.Port)
	require.Equal(t, "postgres", cfg.EventSource)
	require.Equal(t, 4, cfg.DispatchWorkers)
	require.Equal(t, 250*time.Millisecond, cfg.DispatchTimeout)
}

func TestValidate(t *testing.T) {
	base := Config{StoreBackend: "memory", EventSource: "channel", DispatchWorkers: 1}
	require.NoError(t, base.Validate())

	cases := map[string]func(c *Config){
		"unknown store":           func(c *Config) { c.StoreBackend = "redis" },
		"unknown source":          func(c *Config) { c.EventSource = "kafka" },
		"notify without postgres": func(c *Config) { c.EventSource = "postgres" },
		"amqp without url":        func(c *Config) { c.EventSource = "amqp" },
		"postgres without dsn":    func(c *Config) { c.StoreBackend = "postgres" },
		"zero workers":            func(c *Config) { c.DispatchWorkers = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
