package config

import (
	"strings"
)

type Config struct {
	Reporter       ReporterConfig       `mapstructure:"reporter"`
	Upload         UploadConfig         `mapstructure:"upload"`
	Inputs         InputsConfig         `mapstructure:"inputs"`
	Server         ServerConfig         `mapstructure:"server"`
	Management     ManagementConfig     `mapstructure:"management"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Tracing        TracingConfig        `mapstructure:"tracing"`
}

// ReporterConfig is the flat settings record of the reporter core.
type ReporterConfig struct {
	Name       string `mapstructure:"name"`
	URL        string `mapstructure:"url"`
	Event      string `mapstructure:"event"`
	Interval   int    `mapstructure:"interval"`
	BufferSize int    `mapstructure:"buffer_size"`
	Filter     string `mapstructure:"filter"`
}

// Channels returns the event list split on commas, trimmed, without empties.
func (c ReporterConfig) Channels() []string {
	parts := strings.Split(c.Event, ",")
	channels := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			channels = append(channels, p)
		}
	}
	return channels
}

type UploadConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
}

type InputsConfig struct {
	TCP   []ListenerConfig `mapstructure:"tcp"`
	UDP   []ListenerConfig `mapstructure:"udp"`
	Kafka KafkaConfig      `mapstructure:"kafka"`
	Redis RedisConfig      `mapstructure:"redis"`
	Retry RetryConfig      `mapstructure:"retry"`
}

type ListenerConfig struct {
	Address string `mapstructure:"address"`
	Channel string `mapstructure:"channel"`
}

type KafkaConfig struct {
	Brokers []string      `mapstructure:"brokers"`
	GroupID string        `mapstructure:"group_id"`
	Topics  []TopicConfig `mapstructure:"topics"`
}

// Enabled reports whether any Kafka topic is configured.
func (c KafkaConfig) Enabled() bool {
	return len(c.Topics) > 0
}

type TopicConfig struct {
	Topic   string `mapstructure:"topic"`
	Channel string `mapstructure:"channel"`
}

type RedisConfig struct {
	Host     string   `mapstructure:"host"`
	Port     int      `mapstructure:"port"`
	Password string   `mapstructure:"password"`
	DB       int      `mapstructure:"db"`
	Channels []string `mapstructure:"channels"`
}

// Enabled reports whether the Redis pub/sub input is configured.
func (c RedisConfig) Enabled() bool {
	return c.Host != "" && len(c.Channels) > 0
}

type RetryConfig struct {
	InitialIntervalMillis int     `mapstructure:"initial_interval_ms"`
	MaxIntervalMillis     int     `mapstructure:"max_interval_ms"`
	Multiplier            float64 `mapstructure:"multiplier"`
}

type ServerConfig struct {
	Port                int `mapstructure:"port"`
	ReadTimeoutSeconds  int `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int `mapstructure:"write_timeout_seconds"`
}

type ManagementConfig struct {
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	RPS             float64 `mapstructure:"rps"`
	Burst           int     `mapstructure:"burst"`
	CleanupInterval int     `mapstructure:"cleanup_interval"`
	MaxAge          int     `mapstructure:"max_age"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type CircuitBreakerConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	MaxRequests     uint32  `mapstructure:"max_requests"`
	IntervalSeconds int     `mapstructure:"interval_seconds"`
	TimeoutSeconds  int     `mapstructure:"timeout_seconds"`
	FailureRatio    float64 `mapstructure:"failure_ratio"`
	MinRequests     uint32  `mapstructure:"min_requests"`
}

type TracingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	OTLP        OTLPConfig    `mapstructure:"otlp"`
	Sampler     SamplerConfig `mapstructure:"sampler"`
}

type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type SamplerConfig struct {
	Type  string  `mapstructure:"type"`
	Param float64 `mapstructure:"param"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
