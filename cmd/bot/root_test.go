package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homeworkbot/internal/config"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// clearSecrets unsets the secret variables for the test; godotenv never
// overrides a variable that exists, even when empty.
func clearSecrets(t *testing.T) {
	t.Helper()
	for _, k := range []string{config.EnvPracticumToken, config.EnvTelegramToken, config.EnvTelegramChatID} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestCheckConfigMissingSecrets(t *testing.T) {
	clearSecrets(t)
	dir := t.TempDir()

	_, err := runCmd(t, "check-config",
		"--config", filepath.Join(dir, "none.yaml"),
		"--env-file", filepath.Join(dir, ".env"))
	require.ErrorIs(t, err, config.ErrConfigurationIncomplete)
	assert.Contains(t, err.Error(), config.EnvPracticumToken)
}

func TestCheckConfigFromEnvFile(t *testing.T) {
	clearSecrets(t)
	dir := t.TempDir()
	env := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(env, []byte("PRACTICUM_TOKEN=p\nTELEGRAM_TOKEN=t\nTELEGRAM_CHAT_ID=12345\n"), 0o600))
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("practicum:\n  poll_interval: 5m\nops:\n  enabled: true\n  pprof: true\n"), 0o600))

	out, err := runCmd(t, "check-config", "--config", cfgPath, "--env-file", env)
	require.NoError(t, err)
	assert.Contains(t, out, "config ok")
	assert.Contains(t, out, "every 5m0s")
	assert.Contains(t, out, "12345")
	assert.Contains(t, out, "127.0.0.1:9464 pprof")
}
