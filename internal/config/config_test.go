package config

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestDefaults(t *testing.T) {
	cfg := FromViper(newViper(t))
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "http://localhost:5000", cfg.TrackingURI)
	assert.Equal(t, "logs", cfg.LogDir)
	assert.Equal(t, "none", cfg.TimeConfig().Resolution)
	assert.Empty(t, cfg.Params)
}

func TestParamsFromConfigFile(t *testing.T) {
	v := newViper(t)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
log_dir: /tmp/run1
params:
  learning_rate: 0.01
  optimizer: adam
`)))

	cfg := FromViper(v)
	assert.Equal(t, "/tmp/run1", cfg.LogDir)
	assert.Equal(t, 0.01, cfg.Params["learning_rate"])
	assert.Equal(t, "adam", cfg.Params["optimizer"])
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"empty tracking uri", func(c *Config) { c.TrackingURI = "" }},
		{"bad resolution", func(c *Config) { c.TimeResolution = "2d" }},
		{"bad alignment", func(c *Config) { c.TimeAlignment = "up" }},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := FromViper(newViper(t))
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestIsDatabricks(t *testing.T) {
	tests := []struct {
		uri  string
		want bool
	}{
		{"databricks", true},
		{"databricks://dev", true},
		{"https://adb-123.azuredatabricks.net", true},
		{"https://x.cloud.databricks.com/path", true},
		{"https://mlflow.example.com", false},
		{"http://localhost:5000", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, (&Config{TrackingURI: tt.uri}).IsDatabricks(), tt.uri)
	}
}

func TestGetDatabricksProfile(t *testing.T) {
	assert.Equal(t, "dev", (&Config{TrackingURI: "databricks://dev"}).GetDatabricksProfile())
	assert.Equal(t, "dev", (&Config{TrackingURI: "databricks://dev/extra"}).GetDatabricksProfile())
	assert.Empty(t, (&Config{TrackingURI: "databricks"}).GetDatabricksProfile())
}
