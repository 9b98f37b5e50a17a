package status

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"aisreporter/internal/logger"
	"aisreporter/pkg/metrics"
)

func TestTracker_ReportStatus(t *testing.T) {
	tr := NewTracker(logger.NopLogger())
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return fixed }

	before := testutil.ToFloat64(metrics.StatusReportsTotal.WithLabelValues("status"))

	tr.ReportStatus("No AIS events to report")
	tr.ReportStatus("Submitted 3 AIS entries")

	snap := tr.Snapshot()
	assert.Equal(t, "Submitted 3 AIS entries", snap.Status)
	assert.Equal(t, fixed, snap.StatusAt)
	assert.Equal(t, uint64(2), snap.Statuses)
	assert.Empty(t, snap.Error)
	assert.Equal(t, before+2, testutil.ToFloat64(metrics.StatusReportsTotal.WithLabelValues("status")))
}

func TestTracker_ReportError(t *testing.T) {
	tr := NewTracker(logger.NopLogger())

	tr.ReportStatus("No AIS events to report")
	tr.ReportError("Request failed with HTTP 500")

	snap := tr.Snapshot()
	assert.Equal(t, "Request failed with HTTP 500", snap.Error)
	assert.Equal(t, uint64(1), snap.Errors)
	assert.Equal(t, "No AIS events to report", snap.Status, "an error does not clear the last status")
	assert.False(t, snap.ErrorAt.IsZero())
}

func TestTracker_ImplementsSink(t *testing.T) {
	var _ Sink = NewTracker(logger.NopLogger())
}
