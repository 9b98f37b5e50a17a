package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"aisreporter/internal/config"
	"aisreporter/internal/constants"
	"aisreporter/internal/logger"
	"aisreporter/pkg/retry"
)

var errSubscriptionClosed = errors.New("redis subscription closed")

// RedisSource subscribes to Redis pub/sub channels. Each Redis channel is
// published on the bus channel of the same name.
type RedisSource struct {
	cfg    config.RedisConfig
	client *redis.Client
	policy retry.Policy
	pub    Publisher
	logger logger.Logger
}

func NewRedisSource(cfg config.RedisConfig, policy retry.Policy, pub Publisher, log logger.Logger) *RedisSource {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisSource{
		cfg:    cfg,
		client: client,
		policy: policy,
		pub:    pub,
		logger: log,
	}
}

func (s *RedisSource) Name() string {
	return fmt.Sprintf("%s://%s:%d", constants.SourceTypeRedis, s.cfg.Host, s.cfg.Port)
}

// Client exposes the connection for health checks.
func (s *RedisSource) Client() *redis.Client {
	return s.client
}

func (s *RedisSource) Run(ctx context.Context) error {
	s.logger.Infow("Redis input starting", "address", s.client.Options().Addr, "channels", s.cfg.Channels)

	err := retry.RetryWithCallback(ctx, s.policy, func() error {
		return s.subscribe(ctx)
	}, onRetry(s.logger, constants.SourceTypeRedis, s.Name()))

	if ctx.Err() != nil {
		s.logger.Infow("Redis input stopped")
		return nil
	}
	return err
}

func (s *RedisSource) subscribe(ctx context.Context) error {
	pubsub := s.client.Subscribe(ctx, s.cfg.Channels...)
	defer pubsub.Close()

	// Wait for the subscription confirmation so connection errors surface
	// here and trigger a retry.
	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe to %v: %w", s.cfg.Channels, err)
	}
	s.logger.Infow("Redis subscription active", "channels", s.cfg.Channels)

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return errSubscriptionClosed
			}
			publishLines(s.pub, constants.SourceTypeRedis, msg.Channel, []byte(msg.Payload))
		}
	}
}

func (s *RedisSource) Close() error {
	return s.client.Close()
}
