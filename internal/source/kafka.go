package source

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"

	"aisreporter/internal/config"
	"aisreporter/internal/constants"
	"aisreporter/internal/logger"
	"aisreporter/pkg/logging"
	"aisreporter/pkg/retry"
	"aisreporter/pkg/tracing"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSource consumes raw NMEA lines from one topic and publishes them on
// the mapped channel. A message value may hold several lines.
type KafkaSource struct {
	cfg       config.KafkaConfig
	topic     config.TopicConfig
	policy    retry.Policy
	pub       Publisher
	logger    logger.Logger
	newReader func() messageReader
}

func NewKafkaSource(cfg config.KafkaConfig, topic config.TopicConfig, policy retry.Policy, pub Publisher, log logger.Logger) *KafkaSource {
	s := &KafkaSource{
		cfg:    cfg,
		topic:  topic,
		policy: policy,
		pub:    pub,
		logger: log,
	}
	s.newReader = func() messageReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:  s.cfg.Brokers,
			GroupID:  s.cfg.GroupID,
			Topic:    s.topic.Topic,
			MinBytes: constants.KafkaMinBytes,
			MaxBytes: constants.KafkaMaxBytes,
		})
	}
	return s
}

func (s *KafkaSource) Name() string {
	return fmt.Sprintf("%s://%s", constants.SourceTypeKafka, s.topic.Topic)
}

func (s *KafkaSource) Run(ctx context.Context) error {
	s.logger.Infow("Kafka input starting",
		"topic", s.topic.Topic,
		"channel", s.topic.Channel,
		"brokers", s.cfg.Brokers,
		"group_id", s.cfg.GroupID,
	)

	err := retry.RetryWithCallback(ctx, s.policy, func() error {
		return s.consume(ctx)
	}, onRetry(s.logger, constants.SourceTypeKafka, s.Name()))

	if ctx.Err() != nil {
		s.logger.Infow("Kafka input stopped", "topic", s.topic.Topic)
		return nil
	}
	return err
}

// consume reads until the context ends (nil) or the reader fails.
func (s *KafkaSource) consume(ctx context.Context) error {
	reader := s.newReader()
	defer reader.Close()

	for {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch from %s: %w", s.topic.Topic, err)
		}

		s.handle(ctx, m)

		if err := reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			s.logger.Warnw("Failed to commit kafka message",
				"topic", s.topic.Topic,
				"offset", m.Offset,
				"error", err,
			)
		}
	}
}

func (s *KafkaSource) handle(ctx context.Context, m kafka.Message) {
	msgCtx, span := tracing.StartSpanFromKafkaMessage(ctx, "kafka.consume", m.Headers)
	defer span.End()

	if sc := span.SpanContext(); sc.HasTraceID() {
		msgCtx = logging.WithTraceID(msgCtx, sc.TraceID().String())
	}
	msgCtx = logging.WithChannel(msgCtx, s.topic.Channel)

	n := publishLines(s.pub, constants.SourceTypeKafka, s.topic.Channel, m.Value)
	span.SetAttributes(
		attribute.String("kafka.topic", m.Topic),
		attribute.Int64("kafka.offset", m.Offset),
		attribute.Int("nmea.lines", n),
	)
	s.logger.DebugwCtx(msgCtx, "Kafka message published", "lines", n, "offset", m.Offset)
}

func (s *KafkaSource) Close() error {
	return nil
}
