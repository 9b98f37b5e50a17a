package reporter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"aisreporter/internal/ais"
	"aisreporter/internal/buffer"
	"aisreporter/internal/config"
	"aisreporter/internal/constants"
	"aisreporter/internal/flush"
	"aisreporter/internal/ingest"
	"aisreporter/internal/logger"
	"aisreporter/internal/record"
	"aisreporter/internal/status"
	"aisreporter/internal/upload"
	"aisreporter/pkg/cel"
	"aisreporter/pkg/metrics"
)

var ErrAlreadyRunning = errors.New("reporter already running")

// Settings is the reporter configuration applied on Start.
type Settings struct {
	Name       string
	URL        string
	Channels   []string
	Interval   time.Duration
	BufferSize int
	Filter     string
}

// SettingsFromConfig maps the reporter section of the service config.
func SettingsFromConfig(cfg config.ReporterConfig) Settings {
	return Settings{
		Name:       cfg.Name,
		URL:        cfg.URL,
		Channels:   cfg.Channels(),
		Interval:   time.Duration(cfg.Interval) * time.Second,
		BufferSize: cfg.BufferSize,
		Filter:     cfg.Filter,
	}
}

// Reporter owns the buffer, the ingestion binding and the flush scheduler
// for one Start/Stop cycle.
type Reporter struct {
	bus        ingest.Subscriber
	sink       status.Sink
	logger     logger.Logger
	client     *http.Client
	uploadOpts []upload.Option

	mu        sync.Mutex
	running   bool
	ring      *buffer.Ring[record.Record]
	binding   *ingest.Binding
	scheduler *flush.Scheduler
	cancel    context.CancelFunc
	done      chan struct{}
}

type Option func(*Reporter)

func WithHTTPClient(c *http.Client) Option {
	return func(r *Reporter) {
		r.client = c
	}
}

func WithUploadOptions(opts ...upload.Option) Option {
	return func(r *Reporter) {
		r.uploadOpts = append(r.uploadOpts, opts...)
	}
}

func New(b ingest.Subscriber, sink status.Sink, log logger.Logger, opts ...Option) *Reporter {
	r := &Reporter{
		bus:    b,
		sink:   sink,
		logger: log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start wires decoder, buffer and scheduler and subscribes to the
// configured channels. Without an upload URL it reports that and stays
// inert.
func (r *Reporter) Start(ctx context.Context, s Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return ErrAlreadyRunning
	}

	if s.URL == "" {
		r.logger.Warnw("Reporter not started", "reason", constants.StatusNotConfigured)
		r.sink.ReportStatus(constants.StatusNotConfigured)
		return nil
	}

	var bindingOpts []ingest.Option
	if s.Filter != "" {
		eval, err := cel.NewEvaluator()
		if err != nil {
			return err
		}
		f, err := eval.CompileFilter(s.Filter)
		if err != nil {
			return fmt.Errorf("invalid record filter: %w", err)
		}
		bindingOpts = append(bindingOpts, ingest.WithFilter(f))
	}

	ring := buffer.New[record.Record](s.BufferSize)
	ring.OnLen(metrics.SetBufferedRecords)
	decoder := ais.NewDecoder()
	binding := ingest.NewBinding(decoder, ring, r.logger, bindingOpts...)
	decoder.OnEvent(binding.HandleEvent)

	uploader := upload.NewUploader(r.client, r.sink, r.logger, r.uploadOpts...)
	scheduler := flush.NewScheduler(flush.Config{
		Interval: s.Interval,
		Name:     s.Name,
		URL:      s.URL,
	}, ring, uploader, r.sink, r.logger)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	binding.Subscribe(r.bus, s.Channels)
	go func() {
		defer close(done)
		scheduler.Run(runCtx)
	}()

	r.ring = ring
	r.binding = binding
	r.scheduler = scheduler
	r.cancel = cancel
	r.done = done
	r.running = true

	r.logger.Infow("Reporter started",
		"channels", s.Channels,
		"interval", s.Interval,
		"buffer_size", ring.Cap(),
		"filter", s.Filter,
	)
	return nil
}

// Stop unsubscribes from every channel and stops the scheduler, cancelling
// uploads still in flight. Buffered records are discarded. Stop is safe to
// call repeatedly and without a prior Start.
func (r *Reporter) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.binding != nil {
		r.binding.Unsubscribe()
	}
	if r.cancel != nil {
		r.cancel()
	}
	if r.done != nil {
		<-r.done
	}
	if r.scheduler != nil {
		r.scheduler.Wait()
	}

	if r.running {
		r.logger.Infow("Reporter stopped")
	}

	r.ring = nil
	r.binding = nil
	r.scheduler = nil
	r.cancel = nil
	r.done = nil
	r.running = false
}

func (r *Reporter) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Buffered returns the number of records waiting for the next tick.
func (r *Reporter) Buffered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ring == nil {
		return 0
	}
	return r.ring.Len()
}

// Channels returns the channels the reporter is subscribed to.
func (r *Reporter) Channels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.binding == nil {
		return nil
	}
	return r.binding.Channels()
}
