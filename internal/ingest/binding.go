package ingest

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"aisreporter/internal/ais"
	"aisreporter/internal/buffer"
	"aisreporter/internal/bus"
	"aisreporter/internal/constants"
	"aisreporter/internal/logger"
	"aisreporter/internal/record"
	"aisreporter/pkg/cel"
	apperrors "aisreporter/pkg/errors"
	"aisreporter/pkg/metrics"
)

// Decoder accepts raw sentences. Decoded events are delivered separately
// through the decoder's own callback.
type Decoder interface {
	Write(line string) error
}

// Subscriber is the part of the event bus the binding needs.
type Subscriber interface {
	Subscribe(channel string, h bus.Handler)
	Unsubscribe(channel string, h bus.Handler)
}

// Binding connects bus channels to the decoder and the decoder's output to
// the record buffer.
type Binding struct {
	decoder Decoder
	ring    *buffer.Ring[record.Record]
	filter  *cel.Filter
	logger  logger.Logger
	now     func() time.Time

	mu       sync.Mutex
	bus      Subscriber
	channels []string
}

type Option func(*Binding)

// WithFilter drops normalized records the filter does not match.
func WithFilter(f *cel.Filter) Option {
	return func(b *Binding) {
		b.filter = f
	}
}

// WithClock overrides the receive-time source.
func WithClock(now func() time.Time) Option {
	return func(b *Binding) {
		b.now = now
	}
}

func NewBinding(dec Decoder, ring *buffer.Ring[record.Record], log logger.Logger, opts ...Option) *Binding {
	b := &Binding{
		decoder: dec,
		ring:    ring,
		logger:  log,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// HandleLine forwards AIS frames to the decoder. Anything else on the
// channel is ignored.
func (b *Binding) HandleLine(channel, line string) {
	defer func() {
		if r := recover(); r != nil {
			err := apperrors.RecoverPanic(r)
			b.logger.Errorw("Panic while handling input line", "channel", channel, "error", err)
			metrics.IncInputLine(channel, "panic")
		}
	}()

	if !strings.Contains(line, constants.AISSentenceMarker) {
		metrics.IncInputLine(channel, "ignored")
		return
	}

	if err := b.decoder.Write(line); err != nil {
		b.logger.Debugw("Failed to decode AIS sentence", "channel", channel, "line", line, "error", err)
		metrics.IncInputLine(channel, "decode_error")
		return
	}
	metrics.IncInputLine(channel, "accepted")
}

// HandleEvent normalizes a decoded event and enqueues it. It never blocks
// on the buffer; when full, the oldest record is evicted.
func (b *Binding) HandleEvent(ev ais.Event) {
	metrics.IncEventDecoded(strconv.Itoa(ev.Type))

	rec := record.Normalize(ev, b.now())

	if b.filter != nil {
		ok, err := b.filter.Match(context.Background(), rec.Fields())
		if err != nil {
			b.logger.Debugw("Record filter evaluation failed", "mmsi", rec.MMSI, "error", err)
		}
		if !ok {
			metrics.RecordsFilteredTotal.Inc()
			return
		}
	}

	if b.ring.Enqueue(rec) {
		metrics.RecordsEvictedTotal.Inc()
	}
	metrics.RecordsEnqueuedTotal.Inc()
}

// Subscribe registers the binding on every channel. Calling it again
// replaces the previous subscription set.
func (b *Binding) Subscribe(s Subscriber, channels []string) {
	b.Unsubscribe()

	b.mu.Lock()
	defer b.mu.Unlock()

	b.bus = s
	b.channels = append([]string(nil), channels...)
	for _, ch := range b.channels {
		s.Subscribe(ch, b)
		b.logger.Debugw("Subscribed to channel", "channel", ch)
	}
}

// Unsubscribe removes the binding from every channel it joined. It is safe
// to call when nothing was subscribed.
func (b *Binding) Unsubscribe() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bus == nil {
		return
	}
	for _, ch := range b.channels {
		b.bus.Unsubscribe(ch, b)
	}
	b.bus = nil
	b.channels = nil
}

// Channels returns the channels currently subscribed.
func (b *Binding) Channels() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.channels...)
}
