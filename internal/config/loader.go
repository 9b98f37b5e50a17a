package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"aisreporter/internal/constants"
)

func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(configFile)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("reporter.event", constants.DefaultEvents)
	viper.SetDefault("reporter.interval", constants.DefaultIntervalSeconds)
	viper.SetDefault("reporter.buffer_size", constants.DefaultBufferSize)

	viper.SetDefault("upload.timeout_seconds", int(constants.DefaultHTTPTimeout.Seconds()))
	viper.SetDefault("upload.user_agent", constants.PluginID)

	viper.SetDefault("inputs.retry.initial_interval_ms", 1000)
	viper.SetDefault("inputs.retry.max_interval_ms", 30000)
	viper.SetDefault("inputs.retry.multiplier", 2.0)

	viper.SetDefault("server.port", constants.DefaultServerPort)
	viper.SetDefault("server.read_timeout_seconds", 10)
	viper.SetDefault("server.write_timeout_seconds", 10)

	viper.SetDefault("management.rate_limit.rps", 10.0)
	viper.SetDefault("management.rate_limit.burst", 20)
	viper.SetDefault("management.rate_limit.cleanup_interval", 300)
	viper.SetDefault("management.rate_limit.max_age", 600)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	viper.SetDefault("circuit_breaker.max_requests", 1)
	viper.SetDefault("circuit_breaker.interval_seconds", 300)
	viper.SetDefault("circuit_breaker.timeout_seconds", 120)
	viper.SetDefault("circuit_breaker.failure_ratio", 1.0)
	viper.SetDefault("circuit_breaker.min_requests", 3)
}

func bindEnvVariables() {
	viper.BindEnv("reporter.name", "REPORTER_NAME")
	viper.BindEnv("reporter.url", "REPORTER_URL")
	viper.BindEnv("reporter.event", "REPORTER_EVENT")
	viper.BindEnv("reporter.interval", "REPORTER_INTERVAL")
	viper.BindEnv("reporter.buffer_size", "REPORTER_BUFFER_SIZE")
	viper.BindEnv("reporter.filter", "REPORTER_FILTER")

	viper.BindEnv("inputs.kafka.group_id", "INPUTS_KAFKA_GROUP_ID")

	viper.BindEnv("inputs.redis.host", "INPUTS_REDIS_HOST")
	viper.BindEnv("inputs.redis.port", "INPUTS_REDIS_PORT")
	viper.BindEnv("inputs.redis.password", "INPUTS_REDIS_PASSWORD")
	viper.BindEnv("inputs.redis.db", "INPUTS_REDIS_DB")

	viper.BindEnv("server.port", "SERVER_PORT")

	viper.BindEnv("logging.level", "LOGGING_LEVEL")
	viper.BindEnv("logging.format", "LOGGING_FORMAT")

	viper.BindEnv("tracing.otlp.endpoint", "TRACING_OTLP_ENDPOINT")
	viper.BindEnv("tracing.otlp.insecure", "TRACING_OTLP_INSECURE")
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.service_name", "TRACING_SERVICE_NAME")
}

func applyEnvOverrides(cfg *Config) error {
	if brokersEnv := viper.GetString("INPUTS_KAFKA_BROKERS"); brokersEnv != "" {
		brokers := strings.Split(brokersEnv, ",")
		for i := range brokers {
			brokers[i] = strings.TrimSpace(brokers[i])
		}
		if len(brokers) > 0 && brokers[0] != "" {
			cfg.Inputs.Kafka.Brokers = brokers
		}
	}

	if channelsEnv := viper.GetString("INPUTS_REDIS_CHANNELS"); channelsEnv != "" {
		cfg.Inputs.Redis.Channels = ReporterConfig{Event: channelsEnv}.Channels()
	}

	return nil
}
