package status

import (
	"sync"
	"time"

	"aisreporter/internal/logger"
	"aisreporter/pkg/metrics"
)

// Sink receives human-readable status and error messages from the reporter.
type Sink interface {
	ReportStatus(msg string)
	ReportError(msg string)
}

// Snapshot is the last reported status and error.
type Snapshot struct {
	Status   string    `json:"status,omitempty"`
	StatusAt time.Time `json:"status_at,omitempty"`
	Error    string    `json:"error,omitempty"`
	ErrorAt  time.Time `json:"error_at,omitempty"`
	Statuses uint64    `json:"statuses"`
	Errors   uint64    `json:"errors"`
}

// Tracker is the Sink used by the service. It logs every message, counts it
// and remembers the latest one of each kind for the admin API.
type Tracker struct {
	logger logger.Logger
	now    func() time.Time

	mu   sync.RWMutex
	snap Snapshot
}

func NewTracker(log logger.Logger) *Tracker {
	return &Tracker{
		logger: log,
		now:    time.Now,
	}
}

func (t *Tracker) ReportStatus(msg string) {
	t.logger.Infow("Status", "status", msg)
	metrics.IncStatusReport("status")

	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Status = msg
	t.snap.StatusAt = t.now()
	t.snap.Statuses++
}

func (t *Tracker) ReportError(msg string) {
	t.logger.Errorw("Status error", "error", msg)
	metrics.IncStatusReport("error")

	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Error = msg
	t.snap.ErrorAt = t.now()
	t.snap.Errors++
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap
}
