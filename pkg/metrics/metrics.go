package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	InputLinesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ais_input_lines_total",
			Help: "Total number of raw lines seen by the ingestion binding (count)",
		},
		[]string{"channel", "result"},
	)

	EventsDecodedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ais_events_decoded_total",
			Help: "Total number of AIS events emitted by the decoder (count)",
		},
		[]string{"msgtype"},
	)

	RecordsEnqueuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ais_records_enqueued_total",
			Help: "Total number of normalized records added to the buffer (count)",
		},
	)

	RecordsEvictedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ais_records_evicted_total",
			Help: "Total number of buffered records overwritten before upload (count)",
		},
	)

	RecordsFilteredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ais_records_filtered_total",
			Help: "Total number of records rejected by the record filter (count)",
		},
	)

	BufferedRecords = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ais_buffered_records",
			Help: "Number of records currently held in the buffer (count)",
		},
	)

	FlushTicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ais_flush_ticks_total",
			Help: "Total number of flush ticks by outcome (count)",
		},
		[]string{"result"},
	)

	UploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ais_uploads_total",
			Help: "Total number of batch uploads by outcome (count)",
		},
		[]string{"status"},
	)

	UploadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ais_upload_duration_ms",
			Help:    "Duration of batch uploads in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
	)

	UploadBatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ais_upload_batch_records",
			Help:    "Number of records per uploaded batch (count)",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 200, 300, 500},
		},
	)

	StatusReportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ais_status_reports_total",
			Help: "Total number of status sink reports by kind (count)",
		},
		[]string{"kind"},
	)

	SourceMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ais_source_messages_total",
			Help: "Total number of lines published by input sources (count)",
		},
		[]string{"source", "channel"},
	)

	SourceErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ais_source_errors_total",
			Help: "Total number of input source errors (count)",
		},
		[]string{"source"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"source"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)
)

var (
	reporterOnce   sync.Once
	sourceOnce     sync.Once
	breakerOnce    sync.Once
	managementOnce sync.Once
)

func RegisterReporterMetrics() {
	reporterOnce.Do(func() {
		prometheus.MustRegister(InputLinesTotal)
		prometheus.MustRegister(EventsDecodedTotal)
		prometheus.MustRegister(RecordsEnqueuedTotal)
		prometheus.MustRegister(RecordsEvictedTotal)
		prometheus.MustRegister(RecordsFilteredTotal)
		prometheus.MustRegister(BufferedRecords)
		prometheus.MustRegister(FlushTicksTotal)
		prometheus.MustRegister(UploadsTotal)
		prometheus.MustRegister(UploadDuration)
		prometheus.MustRegister(UploadBatchSize)
		prometheus.MustRegister(StatusReportsTotal)
	})
}

func RegisterSourceMetrics() {
	sourceOnce.Do(func() {
		prometheus.MustRegister(SourceMessagesTotal)
		prometheus.MustRegister(SourceErrorsTotal)
		prometheus.MustRegister(RetryAttemptsTotal)
	})
}

func RegisterCircuitBreakerMetrics() {
	breakerOnce.Do(func() {
		prometheus.MustRegister(CircuitBreakerState)
		prometheus.MustRegister(CircuitBreakerRequests)
		prometheus.MustRegister(CircuitBreakerFailures)
	})
}

func RegisterManagementMetrics() {
	managementOnce.Do(func() {
		prometheus.MustRegister(RateLimitRequestsTotal)
	})
}

func IncInputLine(channel, result string) {
	InputLinesTotal.WithLabelValues(channel, result).Inc()
}

func IncEventDecoded(msgType string) {
	EventsDecodedTotal.WithLabelValues(msgType).Inc()
}

func SetBufferedRecords(n int) {
	BufferedRecords.Set(float64(n))
}

func IncFlushTick(result string) {
	FlushTicksTotal.WithLabelValues(result).Inc()
}

func IncUpload(status string) {
	UploadsTotal.WithLabelValues(status).Inc()
}

func ObserveUpload(duration time.Duration, records int) {
	UploadDuration.Observe(float64(duration.Milliseconds()))
	UploadBatchSize.Observe(float64(records))
}

func IncStatusReport(kind string) {
	StatusReportsTotal.WithLabelValues(kind).Inc()
}

func IncSourceMessage(source, channel string) {
	SourceMessagesTotal.WithLabelValues(source, channel).Inc()
}

func IncSourceError(source string) {
	SourceErrorsTotal.WithLabelValues(source).Inc()
}
