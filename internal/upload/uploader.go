package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"aisreporter/internal/constants"
	"aisreporter/internal/logger"
	"aisreporter/internal/status"
	"aisreporter/pkg/circuitbreaker"
	apperrors "aisreporter/pkg/errors"
	"aisreporter/pkg/logging"
	"aisreporter/pkg/metrics"
	"aisreporter/pkg/tracing"
)

// NewHTTPClient returns the client used for uploads, instrumented for
// tracing.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// Uploader posts batches to the jsonais endpoint. Each batch gets exactly
// one attempt; failures are reported and the batch is dropped.
type Uploader struct {
	client    *http.Client
	sink      status.Sink
	breaker   *circuitbreaker.Wrapper
	userAgent string
	logger    logger.Logger
}

type Option func(*Uploader)

// WithCircuitBreaker skips uploads while the endpoint keeps failing.
func WithCircuitBreaker(cb *circuitbreaker.Wrapper) Option {
	return func(u *Uploader) {
		u.breaker = cb
	}
}

func WithUserAgent(ua string) Option {
	return func(u *Uploader) {
		u.userAgent = ua
	}
}

func NewUploader(client *http.Client, sink status.Sink, log logger.Logger, opts ...Option) *Uploader {
	if client == nil {
		client = NewHTTPClient(constants.DefaultHTTPTimeout)
	}
	u := &Uploader{
		client:    client,
		sink:      sink,
		userAgent: constants.PluginID,
		logger:    log,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Submit sends the batch and reports the outcome to the status sink.
func (u *Uploader) Submit(ctx context.Context, batch Batch) error {
	ctx = logging.WithBatchID(ctx, batch.ID)
	ctx, span := tracing.GetTracer(constants.ServiceName).Start(ctx, "upload.submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("batch.id", batch.ID),
		attribute.Int("batch.records", len(batch.Records)),
	)

	body, err := json.Marshal(batch.Envelope())
	if err != nil {
		u.fail(ctx, "encode_error", err.Error())
		span.RecordError(err)
		return fmt.Errorf("failed to encode batch: %w", err)
	}

	start := time.Now()
	if u.breaker != nil {
		_, err = u.breaker.ExecuteWithContext(ctx, func() (interface{}, error) {
			return nil, u.post(ctx, batch.URL, body)
		})
	} else {
		err = u.post(ctx, batch.URL, body)
	}
	metrics.ObserveUpload(time.Since(start), len(batch.Records))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		u.handleError(ctx, err)
		return err
	}

	metrics.IncUpload("success")
	u.logger.InfowCtx(ctx, "Batch uploaded", "records", len(batch.Records))
	u.sink.ReportStatus(fmt.Sprintf("Submitted %d AIS entries", len(batch.Records)))
	return nil
}

func (u *Uploader) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", constants.ContentTypeJSON)
	if u.userAgent != "" {
		req.Header.Set("User-Agent", u.userAgent)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
		return apperrors.ErrUpstream.
			WithDetail("status", resp.StatusCode).
			AsRetryable()
	}
	return nil
}

func (u *Uploader) handleError(ctx context.Context, err error) {
	var appErr *apperrors.Error
	switch {
	case ctx.Err() != nil:
		// Shutdown aborted the request; nothing to report to the operator.
		metrics.IncUpload("cancelled")
		u.logger.WarnwCtx(ctx, "Upload cancelled", "error", err)
	case circuitbreaker.IsRejected(err):
		u.fail(ctx, "circuit_open", apperrors.ErrCircuitOpen.WithCause(err).Error())
	case errors.As(err, &appErr) && appErr.Code == apperrors.ErrUpstream.Code:
		u.fail(ctx, "http_error", fmt.Sprintf("Request failed with HTTP %v", appErr.Details["status"]))
	default:
		u.fail(ctx, "transport_error", transportMessage(err))
	}
}

func (u *Uploader) fail(ctx context.Context, kind, msg string) {
	metrics.IncUpload(kind)
	u.logger.ErrorwCtx(ctx, "Batch upload failed", "kind", kind, "error", msg)
	u.sink.ReportError(msg)
}

// transportMessage strips the request URL from client errors; upload URLs
// carry the account password.
func transportMessage(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err.Error()
	}
	return err.Error()
}
