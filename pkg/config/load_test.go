package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, document string) string {
	t.Helper()
	filename := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(filename, []byte(document), 0644))
	return filename
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
trigger: "!"
apiKeys:
  weather: key123
plugins:
  greeter:
    enabled: false
  utility:
    config:
      can_do: false
    overrides:
      - level: ">=20"
        config:
          can_do: true
`))
	require.NoError(t, err)
	assert.Equal(t, "!", cfg.Trigger)
	assert.Equal(t, "key123", cfg.ApiKeys["weather"])
	assert.False(t, cfg.PluginEnabled("greeter"))
	assert.True(t, cfg.PluginEnabled("utility"))
	assert.True(t, cfg.PluginEnabled("unmentioned"))
	utility := cfg.Plugin("utility")
	require.Len(t, utility.Overrides, 1)
	assert.Equal(t, ">=20", utility.Overrides[0].Level)
	assert.Equal(t, true, utility.Overrides[0].Config.Get("can_do"))
	assert.Equal(t, false, utility.Config.Get("can_do"))
}

func TestLoadRejectsMalformedOverride(t *testing.T) {
	_, err := Load(writeConfig(t, `
plugins:
  utility:
    overrides:
      - level: ">=twenty"
        config:
          can_do: true
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "utility")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
