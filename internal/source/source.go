package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"aisreporter/internal/config"
	"aisreporter/internal/logger"
	"aisreporter/pkg/metrics"
	"aisreporter/pkg/retry"
)

// Publisher is the event bus side of an input.
type Publisher interface {
	Publish(channel, line string)
}

// Source feeds raw NMEA 0183 lines from one transport onto the bus.
type Source interface {
	Name() string
	// Run blocks until ctx is cancelled or the source fails permanently.
	Run(ctx context.Context) error
	Close() error
}

// NewSources builds every input enabled in cfg.
func NewSources(cfg config.InputsConfig, pub Publisher, log logger.Logger) ([]Source, error) {
	var sources []Source

	for _, l := range cfg.TCP {
		sources = append(sources, NewTCPListener(l, pub, log))
	}
	for _, l := range cfg.UDP {
		sources = append(sources, NewUDPListener(l, pub, log))
	}

	policy := retryPolicy(cfg.Retry)
	if cfg.Kafka.Enabled() {
		for _, t := range cfg.Kafka.Topics {
			if t.Topic == "" || t.Channel == "" {
				return nil, fmt.Errorf("kafka topic mapping requires topic and channel: %+v", t)
			}
			sources = append(sources, NewKafkaSource(cfg.Kafka, t, policy, pub, log))
		}
	}
	if cfg.Redis.Enabled() {
		sources = append(sources, NewRedisSource(cfg.Redis, policy, pub, log))
	}

	return sources, nil
}

func retryPolicy(cfg config.RetryConfig) retry.Policy {
	policy := retry.DefaultPolicy()
	if cfg.InitialIntervalMillis > 0 {
		policy.InitialInterval = time.Duration(cfg.InitialIntervalMillis) * time.Millisecond
	}
	if cfg.MaxIntervalMillis > 0 {
		policy.MaxInterval = time.Duration(cfg.MaxIntervalMillis) * time.Millisecond
	}
	if cfg.Multiplier >= 1 {
		policy.Multiplier = cfg.Multiplier
	}
	return policy
}

// publishLines splits a payload into lines and publishes the non-empty
// ones. It returns the number published.
func publishLines(pub Publisher, sourceType, channel string, payload []byte) int {
	n := 0
	for _, line := range strings.Split(string(payload), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		pub.Publish(channel, line)
		metrics.IncSourceMessage(sourceType, channel)
		n++
	}
	return n
}

// onRetry returns a retry callback that logs and counts reconnect attempts.
func onRetry(log logger.Logger, sourceType, name string) func(int, error, time.Duration) {
	return func(attempt int, err error, next time.Duration) {
		metrics.IncSourceError(sourceType)
		metrics.RetryAttemptsTotal.WithLabelValues(sourceType).Inc()
		log.Warnw("Input failed, reconnecting",
			"source", name,
			"attempt", attempt,
			"retry_in", next,
			"error", err,
		)
	}
}
