package flush

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"aisreporter/internal/constants"
	"aisreporter/internal/logger"
	"aisreporter/internal/record"
	"aisreporter/internal/status"
	"aisreporter/internal/upload"
	apperrors "aisreporter/pkg/errors"
	"aisreporter/pkg/logging"
	"aisreporter/pkg/metrics"
	"aisreporter/pkg/tracing"
)

// Drainer is the buffer side of the scheduler.
type Drainer interface {
	DrainAll() []record.Record
}

// Submitter uploads one batch.
type Submitter interface {
	Submit(ctx context.Context, batch upload.Batch) error
}

type Config struct {
	Interval time.Duration
	Name     string
	URL      string
}

// Scheduler drains the buffer on every tick and hands non-empty snapshots
// to the uploader. Uploads run in their own goroutines so a slow endpoint
// never delays the next tick.
type Scheduler struct {
	cfg      Config
	buffer   Drainer
	uploader Submitter
	sink     status.Sink
	logger   logger.Logger
	now      func() time.Time

	uploads sync.WaitGroup
}

func NewScheduler(cfg Config, buffer Drainer, uploader Submitter, sink status.Sink, log logger.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = constants.DefaultIntervalSeconds * time.Second
	}
	return &Scheduler{
		cfg:      cfg,
		buffer:   buffer,
		uploader: uploader,
		sink:     sink,
		logger:   log,
		now:      time.Now,
	}
}

// Run ticks until ctx is cancelled. Ticks are handled one at a time on this
// goroutine, so drains never overlap.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.logger.Infow("Flush scheduler started", "interval", s.cfg.Interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Infow("Flush scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick performs one drain. It reports idle status when the buffer is empty
// and otherwise starts an upload of the drained records, returning whether
// an upload was started.
func (s *Scheduler) Tick(ctx context.Context) bool {
	records := s.buffer.DrainAll()

	if len(records) == 0 {
		metrics.IncFlushTick("idle")
		s.sink.ReportStatus(constants.StatusNoEvents)
		return false
	}

	batch := upload.NewBatch(s.cfg.Name, s.cfg.URL, records, s.now())
	metrics.IncFlushTick("flushing")

	uploadCtx := logging.WithBatchID(ctx, batch.ID)
	s.logger.DebugwCtx(uploadCtx, "Flushing buffered records", "records", len(records))

	s.uploads.Add(1)
	go func() {
		defer s.uploads.Done()
		defer func() {
			if r := recover(); r != nil {
				err := apperrors.RecoverPanic(r)
				s.logger.ErrorwCtx(uploadCtx, "Panic during upload", "error", err)
			}
		}()

		spanCtx, span := tracing.GetTracer(constants.ServiceName).Start(uploadCtx, "flush.tick")
		span.SetAttributes(attribute.Int("batch.records", len(records)))
		defer span.End()

		_ = s.uploader.Submit(spanCtx, batch)
	}()

	return true
}

// Wait blocks until every upload started by Tick has finished.
func (s *Scheduler) Wait() {
	s.uploads.Wait()
}
