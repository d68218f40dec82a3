package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, int64(1), cfg.ChainID)
	assert.Equal(t, 1.2, cfg.GasMultiplier)
	assert.Equal(t, uint64(604800), cfg.CycleSeconds)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
chain_id: 5
hub_address: "0x1111111111111111111111111111111111111111"
driver_address: "0x2222222222222222222222222222222222222222"
gas_multiplier: 1.5
cycle_seconds: 86400
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(5), cfg.ChainID)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", cfg.HubAddress)
	assert.Equal(t, 1.5, cfg.GasMultiplier)
	assert.Equal(t, uint64(86400), cfg.CycleSeconds)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chain_id: 5\n"), 0o644))

	t.Setenv("DRIPFORGE_CHAIN_ID", "10")
	t.Setenv("DRIPFORGE_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(10), cfg.ChainID)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"bad hub address", "hub_address: nope\n"},
		{"multiplier below one", "gas_multiplier: 0.5\n"},
		{"zero cycle", "cycle_seconds: 0\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.yaml), 0o644))

			_, err := Load(path)
			require.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
