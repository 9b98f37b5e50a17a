package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `
reporter:
  url: https://aprs.fi/jsonais/post/secret
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://aprs.fi/jsonais/post/secret", cfg.Reporter.URL)
	assert.Equal(t, "", cfg.Reporter.Name)
	assert.Equal(t, "nmea0183,nmea0183out", cfg.Reporter.Event)
	assert.Equal(t, 30, cfg.Reporter.Interval)
	assert.Equal(t, 300, cfg.Reporter.BufferSize)
	assert.Equal(t, 10, cfg.Upload.TimeoutSeconds)
	assert.Equal(t, 9336, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfig_MissingURLIsNotAnError(t *testing.T) {
	path := writeConfig(t, `
reporter:
  name: OH7ABC
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Reporter.URL)
	assert.Equal(t, "OH7ABC", cfg.Reporter.Name)
}

func TestLoadConfig_Inputs(t *testing.T) {
	path := writeConfig(t, `
reporter:
  url: http://localhost:8080/post
  event: "ais, nmea0183"
  interval: 5
inputs:
  tcp:
    - address: ":10110"
      channel: nmea0183
  udp:
    - address: ":10111"
      channel: ais
  kafka:
    brokers: ["localhost:9092"]
    group_id: ais-reporter
    topics:
      - topic: nmea-raw
        channel: nmea0183
  redis:
    host: localhost
    port: 6379
    channels: [nmea0183out]
circuit_breaker:
  enabled: true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"ais", "nmea0183"}, cfg.Reporter.Channels())
	assert.Equal(t, 5, cfg.Reporter.Interval)
	require.Len(t, cfg.Inputs.TCP, 1)
	assert.Equal(t, ":10110", cfg.Inputs.TCP[0].Address)
	require.Len(t, cfg.Inputs.UDP, 1)
	assert.Equal(t, "ais", cfg.Inputs.UDP[0].Channel)
	assert.True(t, cfg.Inputs.Kafka.Enabled())
	assert.Equal(t, "nmea-raw", cfg.Inputs.Kafka.Topics[0].Topic)
	assert.True(t, cfg.Inputs.Redis.Enabled())
	assert.True(t, cfg.CircuitBreaker.Enabled)
	assert.Equal(t, 1.0, cfg.CircuitBreaker.FailureRatio)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := writeConfig(t, `
reporter:
  url: http://localhost:8080/post
`)
	t.Setenv("REPORTER_NAME", "ENVCALL")
	t.Setenv("REPORTER_INTERVAL", "60")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "ENVCALL", cfg.Reporter.Name)
	assert.Equal(t, 60, cfg.Reporter.Interval)
}

func TestLoadConfig_InvalidInterval(t *testing.T) {
	path := writeConfig(t, `
reporter:
  url: http://localhost:8080/post
  interval: 0
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reporter.interval")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
