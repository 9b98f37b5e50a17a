package bootstrap

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"aisreporter/internal/bus"
	"aisreporter/internal/config"
	"aisreporter/internal/logger"
	"aisreporter/internal/source"
)

type Base struct {
	Config  *config.Config
	Logger  logger.Logger
	Bus     *bus.Bus
	Sources []source.Source
}

func NewBase(cfg *config.Config, log logger.Logger) *Base {
	return &Base{
		Config: cfg,
		Logger: log,
		Bus:    bus.New(),
	}
}

// InitSources builds the configured inputs; they publish onto b.Bus.
func (b *Base) InitSources() error {
	sources, err := source.NewSources(b.Config.Inputs, b.Bus, b.Logger)
	if err != nil {
		return fmt.Errorf("failed to create inputs: %w", err)
	}
	if len(sources) == 0 {
		b.Logger.Warnw("No inputs configured; nothing will be published on the bus")
	}

	b.Sources = sources
	return nil
}

// RedisClient returns the client of the Redis input, if one is configured.
func (b *Base) RedisClient() *redis.Client {
	for _, s := range b.Sources {
		if rs, ok := s.(*source.RedisSource); ok {
			return rs.Client()
		}
	}
	return nil
}

func (b *Base) ShutdownSources() []error {
	var errs []error

	for _, s := range b.Sources {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s close error: %w", s.Name(), err))
		}
	}

	return errs
}

func (b *Base) Shutdown(ctx context.Context, additionalShutdown func(ctx context.Context) []error) error {
	b.Logger.Info("Shutting down application...")

	var errs []error

	if additionalShutdown != nil {
		errs = append(errs, additionalShutdown(ctx)...)
	}

	errs = append(errs, b.ShutdownSources()...)

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	b.Logger.Info("Application exited successfully")
	return nil
}
