package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(kv map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := kv[k]
		return v, ok
	}
}

var fullEnv = map[string]string{
	EnvPracticumToken: "p-token",
	EnvTelegramToken:  "t-token",
	EnvTelegramChatID: "-100123",
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestParseMissingFileUsesDefaults(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "absent.yaml"))
	m.SetLookup(envMap(fullEnv))

	cfg, err := m.Parse()
	require.NoError(t, err)
	assert.Equal(t, Default().Practicum.Endpoint, cfg.Practicum.Endpoint)
	assert.Equal(t, "10m", cfg.Practicum.PollInterval)
	assert.Equal(t, "p-token", cfg.Practicum.Token)
	assert.Equal(t, "-100123", cfg.Telegram.ChatID)
}

func TestParseYAMLOverDefaults(t *testing.T) {
	p := writeFile(t, "config.yaml", `
practicum:
  poll_interval: "*/5 * * * *"
  token: from-file
telegram:
  chat_id: "42"
  token: tg
logging:
  level: DEBUG
`)
	m := NewManager(p)
	m.SetLookup(envMap(nil))

	cfg, err := m.Parse()
	require.NoError(t, err)
	assert.Equal(t, "*/5 * * * *", cfg.Practicum.PollInterval)
	assert.Equal(t, "from-file", cfg.Practicum.Token)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	// untouched keys keep their defaults
	assert.Equal(t, "30s", cfg.Practicum.RequestTimeout)
	assert.Equal(t, "127.0.0.1:9464", cfg.Ops.Addr)
}

func TestEnvOverridesFile(t *testing.T) {
	p := writeFile(t, "config.json", `{"practicum":{"token":"file"},"telegram":{"token":"file","chat_id":"1"}}`)
	m := NewManager(p)
	m.SetLookup(envMap(map[string]string{EnvPracticumToken: "env", EnvTelegramChatID: "  "}))

	cfg, err := m.Parse()
	require.NoError(t, err)
	assert.Equal(t, "env", cfg.Practicum.Token)
	assert.Equal(t, "file", cfg.Telegram.Token)
	// blank env values do not clear file values
	assert.Equal(t, "1", cfg.Telegram.ChatID)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	p := writeFile(t, "config.json", `{"practicum":{"pol_interval":"1m"}}`)
	_, err := NewManager(p).Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pol_interval")
}

func TestParseRejectsTrailingData(t *testing.T) {
	p := writeFile(t, "config.json", `{} {}`)
	_, err := NewManager(p).Parse()
	require.Error(t, err)
}

func TestLoadIncompleteConfiguration(t *testing.T) {
	m := NewManager("")
	m.SetLookup(envMap(map[string]string{EnvTelegramToken: "t"}))

	_, err := m.Load()
	require.ErrorIs(t, err, ErrConfigurationIncomplete)
	assert.Contains(t, err.Error(), EnvPracticumToken)
	assert.Contains(t, err.Error(), EnvTelegramChatID)
	assert.NotContains(t, err.Error(), EnvTelegramToken+",")
	assert.Nil(t, m.Get())
}

func TestLoadCommits(t *testing.T) {
	m := NewManager("")
	m.SetLookup(envMap(fullEnv))

	cfg, err := m.Load()
	require.NoError(t, err)
	assert.Same(t, cfg, m.Get())
	assert.Equal(t, 30*time.Second, cfg.PracticumTimeout())
	assert.Equal(t, 10*time.Second, cfg.TelegramTimeout())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		c := Default()
		ApplyEnv(c, envMap(fullEnv))
		return c
	}
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"ok", func(*Config) {}, ""},
		{"bad chat id", func(c *Config) { c.Telegram.ChatID = "@channel" }, "telegram.chat_id"},
		{"bad group log", func(c *Config) { c.Telegram.GroupLog = "x" }, "telegram.group_log"},
		{"bad interval", func(c *Config) { c.Practicum.PollInterval = "sometimes" }, "practicum.poll_interval"},
		{"bad timezone", func(c *Config) { c.Practicum.Timezone = "Mars/Olympus" }, "practicum.timezone"},
		{"negative timeout", func(c *Config) { c.Practicum.RequestTimeout = "-1s" }, "practicum.request_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := Validate(c)
			if tt.want == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.False(t, errors.Is(err, ErrConfigurationIncomplete))
		})
	}
}

func TestLoadDotEnvSkipsMissing(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
}

func TestLoadDotEnvDoesNotOverwrite(t *testing.T) {
	p := writeFile(t, ".env", "HWBOT_TEST_A=from-file\nHWBOT_TEST_B=from-file\n")
	t.Setenv("HWBOT_TEST_A", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("HWBOT_TEST_B") })

	require.NoError(t, LoadDotEnv(p))
	assert.Equal(t, "from-env", os.Getenv("HWBOT_TEST_A"))
	assert.Equal(t, "from-file", os.Getenv("HWBOT_TEST_B"))
}

func TestWatchReloadsValidEdits(t *testing.T) {
	p := writeFile(t, "config.yaml", "logging:\n  level: INFO\n")
	m := NewManager(p)
	m.SetLookup(envMap(fullEnv))
	_, err := m.Load()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() { done <- m.Watch(ctx, func(c *Config) { got <- c }) }()

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(p, []byte("logging:\n  level: DEBUG\n"), 0o600))

	select {
	case c := <-got:
		assert.Equal(t, "DEBUG", c.Logging.Level)
		assert.Same(t, c, m.Get())
	case <-time.After(3 * time.Second):
		t.Fatal("no reload observed")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestParseRejectsDuplicateYAMLKeys(t *testing.T) {
	p := writeFile(t, "config.yml", "logging:\n  level: INFO\n  level: DEBUG\n")
	_, err := NewManager(p).Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `line 3: duplicate key "level"`)
}

func TestParseEmptyYAMLKeepsDefaults(t *testing.T) {
	p := writeFile(t, "config.yaml", "# nothing yet\n")
	m := NewManager(p)
	m.SetLookup(envMap(nil))

	cfg, err := m.Parse()
	require.NoError(t, err)
	assert.Equal(t, Default().Ops.Addr, cfg.Ops.Addr)
}

func TestWatchIgnoresEditsAfterCancel(t *testing.T) {
	p := writeFile(t, "config.yaml", "logging:\n  level: INFO\n")
	m := NewManager(p)
	m.SetLookup(envMap(fullEnv))
	_, err := m.Load()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	done := make(chan error, 1)
	go func() { done <- m.Watch(ctx, func(*Config) { calls.Add(1) }) }()

	time.Sleep(100 * time.Millisecond)
	// schedule a debounced reload, then stop before it fires
	require.NoError(t, os.WriteFile(p, []byte("logging:\n  level: DEBUG\n"), 0o600))
	time.Sleep(50 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	time.Sleep(400 * time.Millisecond)
	assert.Zero(t, calls.Load())
	assert.Equal(t, "INFO", m.Get().Logging.Level)
}
