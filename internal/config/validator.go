package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	if err := validateReporter(cfg.Reporter); err != nil {
		errors = append(errors, err)
	}

	if err := validateUpload(cfg.Upload); err != nil {
		errors = append(errors, err)
	}

	if err := validateServer(cfg.Server); err != nil {
		errors = append(errors, err)
	}

	if err := validateInputs(cfg.Inputs); err != nil {
		errors = append(errors, err)
	}

	if err := validateCircuitBreaker(cfg.CircuitBreaker); err != nil {
		errors = append(errors, err)
	}

	if err := validateRateLimit(cfg.Management.RateLimit); err != nil {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

// validateReporter leaves an empty url alone; the reporter reports itself
// as not configured and stays inert.
func validateReporter(cfg ReporterConfig) error {
	if cfg.Interval < 1 {
		return &ValidationError{
			Field:   "reporter.interval",
			Message: fmt.Sprintf("interval must be at least 1 second, got %d", cfg.Interval),
		}
	}

	if cfg.BufferSize < 1 {
		return &ValidationError{
			Field:   "reporter.buffer_size",
			Message: fmt.Sprintf("buffer size must be positive, got %d", cfg.BufferSize),
		}
	}

	if cfg.URL != "" {
		u, err := url.Parse(cfg.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return &ValidationError{
				Field:   "reporter.url",
				Message: fmt.Sprintf("url must be an absolute http(s) URL, got %q", cfg.URL),
			}
		}
	}

	if len(cfg.Channels()) == 0 {
		return &ValidationError{
			Field:   "reporter.event",
			Message: "at least one event channel is required",
		}
	}

	return nil
}

func validateUpload(cfg UploadConfig) error {
	if cfg.TimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "upload.timeout_seconds",
			Message: "upload timeout must be positive",
		}
	}
	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout_seconds",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout_seconds",
			Message: "write timeout must be positive",
		}
	}

	return nil
}

func validateInputs(cfg InputsConfig) error {
	for i, l := range cfg.TCP {
		if err := validateListener(fmt.Sprintf("inputs.tcp[%d]", i), l); err != nil {
			return err
		}
	}

	for i, l := range cfg.UDP {
		if err := validateListener(fmt.Sprintf("inputs.udp[%d]", i), l); err != nil {
			return err
		}
	}

	if cfg.Kafka.Enabled() {
		if err := validateKafka(cfg.Kafka); err != nil {
			return err
		}
	}

	if cfg.Redis.Host != "" || len(cfg.Redis.Channels) > 0 {
		if err := validateRedis(cfg.Redis); err != nil {
			return err
		}
	}

	if cfg.Retry.Multiplier < 1 {
		return &ValidationError{
			Field:   "inputs.retry.multiplier",
			Message: "multiplier must be at least 1",
		}
	}

	if cfg.Retry.InitialIntervalMillis <= 0 || cfg.Retry.MaxIntervalMillis < cfg.Retry.InitialIntervalMillis {
		return &ValidationError{
			Field:   "inputs.retry",
			Message: "initial_interval_ms must be positive and not above max_interval_ms",
		}
	}

	return nil
}

func validateListener(field string, cfg ListenerConfig) error {
	if cfg.Address == "" {
		return &ValidationError{
			Field:   field + ".address",
			Message: "listen address is required",
		}
	}

	if cfg.Channel == "" {
		return &ValidationError{
			Field:   field + ".channel",
			Message: "channel name is required",
		}
	}

	return nil
}

func validateKafka(cfg KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return &ValidationError{
			Field:   "inputs.kafka.brokers",
			Message: "at least one Kafka broker is required",
		}
	}

	for i, broker := range cfg.Brokers {
		if broker == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("inputs.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			}
		}
	}

	if cfg.GroupID == "" {
		return &ValidationError{
			Field:   "inputs.kafka.group_id",
			Message: "Kafka consumer group ID is required",
		}
	}

	for i, t := range cfg.Topics {
		if t.Topic == "" || t.Channel == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("inputs.kafka.topics[%d]", i),
				Message: "topic and channel are required",
			}
		}
	}

	return nil
}

func validateRedis(cfg RedisConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "inputs.redis.host",
			Message: "Redis host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "inputs.redis.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if len(cfg.Channels) == 0 {
		return &ValidationError{
			Field:   "inputs.redis.channels",
			Message: "at least one Redis channel is required",
		}
	}

	return nil
}

func validateCircuitBreaker(cfg CircuitBreakerConfig) error {
	if !cfg.Enabled {
		return nil
	}

	if cfg.FailureRatio <= 0 || cfg.FailureRatio > 1 {
		return &ValidationError{
			Field:   "circuit_breaker.failure_ratio",
			Message: fmt.Sprintf("failure ratio must be in (0, 1], got %v", cfg.FailureRatio),
		}
	}

	if cfg.TimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "circuit_breaker.timeout_seconds",
			Message: "open state timeout must be positive",
		}
	}

	return nil
}

func validateRateLimit(cfg RateLimitConfig) error {
	if !cfg.Enabled {
		return nil
	}

	if cfg.RPS <= 0 || cfg.Burst <= 0 {
		return &ValidationError{
			Field:   "management.rate_limit",
			Message: "rps and burst must be positive",
		}
	}

	return nil
}
