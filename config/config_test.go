package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/agentmesh/uagents-go/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "Ed25519", cfg.Identity.KeyType)
	assert.Equal(t, 8000, cfg.Network.Port)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default().Network.Port, cfg.Network.Port)
}

func TestLoadParsesYAMLAndSubstitutesEnv(t *testing.T) {
	t.Setenv("ALMANAC_RPC_TEST", "https://rpc.example.test")

	dir := t.TempDir()
	path := filepath.Join(dir, "agent.yaml")
	yaml := `
environment: production
identity:
  key_type: Ed25519
  seed: test-seed
network:
  name: weather-agent
  port: 9000
  endpoints:
    - http://localhost:9000/submit
  almanac_rpc: ${ALMANAC_RPC_TEST}
registration:
  mode: ledger
logging:
  level: debug
  output: stdout
metrics:
  enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "weather-agent", cfg.Network.Name)
	assert.Equal(t, 9000, cfg.Network.Port)
	assert.Equal(t, "https://rpc.example.test", cfg.Network.AlmanacRPC)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadEnvOverrideTakesPriorityOverFile(t *testing.T) {
	t.Setenv("AGENT_PORT", "7777")

	dir := t.TempDir()
	path := filepath.Join(dir, "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte("network:\n  port: 9000\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Network.Port)
}

func TestValidateRejectsUnknownKeyType(t *testing.T) {
	cfg := config.Default()
	cfg.Identity.KeyType = "RSA"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsPortOutOfRange(t *testing.T) {
	cfg := config.Default()
	cfg.Network.Port = 70000
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownRegistrationMode(t *testing.T) {
	cfg := config.Default()
	cfg.Registration.Mode = "bogus"
	assert.Error(t, cfg.Validate())
}

func TestSubstituteEnvVarsUsesDefaultWhenUnset(t *testing.T) {
	os.Unsetenv("DOES_NOT_EXIST_VAR")
	got := config.SubstituteEnvVars("${DOES_NOT_EXIST_VAR:fallback}")
	assert.Equal(t, "fallback", got)
}
