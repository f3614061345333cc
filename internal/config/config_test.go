package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "philoca.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 200, cfg.Engine.Resolution)
	assert.Equal(t, 0.05, cfg.Engine.Padding)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 30, cfg.Source.TimeoutSecs)
	assert.Equal(t, 60, cfg.Source.CacheTTLMins)
	assert.NotEmpty(t, cfg.Source.URL)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PHILOCA_STORE_DRIVER", "postgres")
	t.Setenv("PHILOCA_SERVER_PORT", "9090")
	t.Setenv("PHILOCA_ENGINE_RESOLUTION", "50")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 50, cfg.Engine.Resolution)
}

func TestLoadParametersDefault(t *testing.T) {
	params, err := LoadParameters("")
	require.NoError(t, err)
	require.Len(t, params, 4)

	names := make([]string, 0, len(params))
	for _, p := range params {
		names = append(names, p.Name)
	}
	assert.Contains(t, names, "pco2")
	assert.Contains(t, names, "o2conc")
	assert.Contains(t, names, "temp_ctd")
	assert.Contains(t, names, "temp_o2")
}

func TestLoadParametersFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "parameters.yaml")
	doc := `parameters:
  - name: pco2
    display_name: "pCO₂"
    unit: "µatm"
    default_threshold: 400
  - name: salinity
    display_name: Salinity
    unit: PSU
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	params, err := LoadParameters(path)
	require.NoError(t, err)
	require.Len(t, params, 2)

	assert.Equal(t, "pco2", params[0].Name)
	require.NotNil(t, params[0].DefaultThreshold)
	assert.Equal(t, 400.0, *params[0].DefaultThreshold)

	assert.Equal(t, "salinity", params[1].Name)
	assert.Nil(t, params[1].DefaultThreshold)
}

func TestLoadParametersMissingFile(t *testing.T) {
	_, err := LoadParameters("/nonexistent/parameters.yaml")
	assert.Error(t, err)
}

func TestLoadParametersEmptyList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "parameters.yaml")
	require.NoError(t, os.WriteFile(path, []byte("parameters: []\n"), 0o644))

	_, err := LoadParameters(path)
	assert.Error(t, err)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "loud", Format: "json"}))
}
