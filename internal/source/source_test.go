package source

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aisreporter/internal/config"
	"aisreporter/internal/logger"
)

type published struct {
	channel string
	line    string
}

type recorder struct {
	mu    sync.Mutex
	lines []published
}

func (r *recorder) Publish(channel, line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, published{channel: channel, line: line})
}

func (r *recorder) snapshot() []published {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]published(nil), r.lines...)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lines)
}

func TestPublishLines(t *testing.T) {
	rec := &recorder{}

	n := publishLines(rec, "test", "nmea0183", []byte("!AIVDM,a\r\n\r\n  \n$GPGGA,b\n!AIVDM,c"))

	assert.Equal(t, 3, n)
	assert.Equal(t, []published{
		{channel: "nmea0183", line: "!AIVDM,a"},
		{channel: "nmea0183", line: "$GPGGA,b"},
		{channel: "nmea0183", line: "!AIVDM,c"},
	}, rec.snapshot())
}

func TestNewSources(t *testing.T) {
	cfg := config.InputsConfig{
		TCP: []config.ListenerConfig{{Address: "127.0.0.1:0", Channel: "nmea0183"}},
		UDP: []config.ListenerConfig{
			{Address: "127.0.0.1:0", Channel: "nmea0183"},
			{Address: "127.0.0.1:0", Channel: "nmea0183out"},
		},
		Kafka: config.KafkaConfig{
			Brokers: []string{"localhost:9092"},
			GroupID: "ais-reporter",
			Topics:  []config.TopicConfig{{Topic: "ais-raw", Channel: "nmea0183"}},
		},
		Redis: config.RedisConfig{Host: "localhost", Port: 6379, Channels: []string{"nmea0183"}},
	}

	sources, err := NewSources(cfg, &recorder{}, logger.NopLogger())
	require.NoError(t, err)
	require.Len(t, sources, 5)

	names := make([]string, 0, len(sources))
	for _, s := range sources {
		names = append(names, s.Name())
		defer s.Close()
	}
	assert.Equal(t, []string{
		"tcp://127.0.0.1:0",
		"udp://127.0.0.1:0",
		"udp://127.0.0.1:0",
		"kafka://ais-raw",
		"redis://localhost:6379",
	}, names)
}

func TestNewSources_InvalidTopic(t *testing.T) {
	cfg := config.InputsConfig{
		Kafka: config.KafkaConfig{Topics: []config.TopicConfig{{Topic: "ais-raw"}}},
	}

	_, err := NewSources(cfg, &recorder{}, logger.NopLogger())
	assert.Error(t, err)
}

func TestRetryPolicy(t *testing.T) {
	policy := retryPolicy(config.RetryConfig{InitialIntervalMillis: 250, MaxIntervalMillis: 4000, Multiplier: 1.5})
	assert.Equal(t, 250*time.Millisecond, policy.InitialInterval)
	assert.Equal(t, 4*time.Second, policy.MaxInterval)
	assert.Equal(t, 1.5, policy.Multiplier)
	assert.Equal(t, 0, policy.MaxAttempts)

	defaults := retryPolicy(config.RetryConfig{})
	assert.Equal(t, time.Second, defaults.InitialInterval)
	assert.Equal(t, 2.0, defaults.Multiplier)
}
