package flush

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aisreporter/internal/buffer"
	"aisreporter/internal/logger"
	"aisreporter/internal/record"
	"aisreporter/internal/upload"
	"aisreporter/pkg/metrics"
)

type fakeSink struct {
	mu       sync.Mutex
	statuses []string
	errors   []string
}

func (s *fakeSink) ReportStatus(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, msg)
}

func (s *fakeSink) ReportError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, msg)
}

func (s *fakeSink) snapshot() ([]string, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.statuses...), append([]string(nil), s.errors...)
}

type fakeSubmitter struct {
	mu      sync.Mutex
	batches []upload.Batch
	block   chan struct{}
}

func (f *fakeSubmitter) Submit(ctx context.Context, batch upload.Batch) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, batch)
	return nil
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func rec(mmsi uint32) record.Record {
	return record.Record{MsgType: 1, MMSI: mmsi, RxTime: "20240102030405"}
}

func TestScheduler_TickEmptyReportsIdle(t *testing.T) {
	ring := buffer.New[record.Record](10)
	sub := &fakeSubmitter{}
	sink := &fakeSink{}
	s := NewScheduler(Config{Interval: time.Second, URL: "http://example.invalid"}, ring, sub, sink, logger.NopLogger())

	started := s.Tick(context.Background())
	s.Wait()

	assert.False(t, started)
	assert.Equal(t, 0, sub.count())
	statuses, _ := sink.snapshot()
	assert.Equal(t, []string{"No AIS events to report"}, statuses)
}

func TestScheduler_TickDrainsAndSubmits(t *testing.T) {
	ring := buffer.New[record.Record](10)
	ring.Enqueue(rec(1))
	ring.Enqueue(rec(2))

	sub := &fakeSubmitter{}
	s := NewScheduler(Config{Interval: time.Second, Name: "OH7LZB", URL: "http://example.invalid"}, ring, sub, &fakeSink{}, logger.NopLogger())

	assert.True(t, s.Tick(context.Background()))
	assert.Equal(t, 0, ring.Len(), "drain happens before the upload starts")
	s.Wait()

	require.Equal(t, 1, sub.count())
	batch := sub.batches[0]
	assert.Equal(t, "OH7LZB", batch.Name)
	assert.Equal(t, "http://example.invalid", batch.URL)
	require.Len(t, batch.Records, 2)
	assert.Equal(t, uint32(1), batch.Records[0].MMSI)
	assert.Equal(t, uint32(2), batch.Records[1].MMSI)
}

func TestScheduler_SlowUploadDoesNotBlockNextTick(t *testing.T) {
	ring := buffer.New[record.Record](10)
	sub := &fakeSubmitter{block: make(chan struct{})}
	s := NewScheduler(Config{Interval: time.Second}, ring, sub, &fakeSink{}, logger.NopLogger())

	ring.Enqueue(rec(1))
	require.True(t, s.Tick(context.Background()))

	ring.Enqueue(rec(2))
	require.True(t, s.Tick(context.Background()))

	close(sub.block)
	s.Wait()
	assert.Equal(t, 2, sub.count())
}

func TestScheduler_RecordsEnqueuedAfterDrainGoToNextBatch(t *testing.T) {
	ring := buffer.New[record.Record](10)
	sub := &fakeSubmitter{}
	s := NewScheduler(Config{Interval: time.Second}, ring, sub, &fakeSink{}, logger.NopLogger())

	ring.Enqueue(rec(1))
	s.Tick(context.Background())
	ring.Enqueue(rec(2))
	s.Tick(context.Background())
	s.Wait()

	require.Equal(t, 2, sub.count())
	total := 0
	for _, b := range sub.batches {
		total += len(b.Records)
	}
	assert.Equal(t, 2, total)
}

func TestScheduler_FailedUploadIsNotResent(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []upload.Envelope
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		var env upload.Envelope
		_ = json.Unmarshal(data, &env)
		mu.Lock()
		bodies = append(bodies, env)
		first := len(bodies) == 1
		mu.Unlock()
		if first {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ring := buffer.New[record.Record](10)
	sink := &fakeSink{}
	u := upload.NewUploader(server.Client(), sink, logger.NopLogger())
	s := NewScheduler(Config{Interval: time.Second, URL: server.URL}, ring, u, sink, logger.NopLogger())

	ring.Enqueue(rec(1))
	ring.Enqueue(rec(2))
	s.Tick(context.Background())
	s.Wait()

	ring.Enqueue(rec(3))
	s.Tick(context.Background())
	s.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, bodies, 2)
	assert.Len(t, bodies[0].Groups[0].Msgs, 2)
	require.Len(t, bodies[1].Groups[0].Msgs, 1)
	assert.Equal(t, uint32(3), bodies[1].Groups[0].Msgs[0].MMSI)

	statuses, errs := sink.snapshot()
	assert.Equal(t, []string{"Request failed with HTTP 500"}, errs)
	assert.Equal(t, []string{"Submitted 1 AIS entries"}, statuses)
}

func TestScheduler_RunTicksUntilCancelled(t *testing.T) {
	ring := buffer.New[record.Record](10)
	sink := &fakeSink{}
	s := NewScheduler(Config{Interval: 20 * time.Millisecond}, ring, &fakeSubmitter{}, sink, logger.NopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		statuses, _ := sink.snapshot()
		return len(statuses) >= 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}

	statuses, _ := sink.snapshot()
	after := len(statuses)
	time.Sleep(60 * time.Millisecond)
	statuses, _ = sink.snapshot()
	assert.Equal(t, after, len(statuses), "no ticks after cancel")
}

func TestScheduler_CancelAbortsInFlightUpload(t *testing.T) {
	ring := buffer.New[record.Record](10)
	sub := &fakeSubmitter{block: make(chan struct{})}
	s := NewScheduler(Config{Interval: time.Second}, ring, sub, &fakeSink{}, logger.NopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	ring.Enqueue(rec(1))
	require.True(t, s.Tick(ctx))

	var waited int32
	go func() {
		s.Wait()
		atomic.StoreInt32(&waited, 1)
	}()

	cancel()
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&waited) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, sub.count())
}

// racingDrainer enqueues a record right after the drain returns, the way an
// ingest goroutine can between DrainAll and the rest of Tick.
type racingDrainer struct {
	ring *buffer.Ring[record.Record]
}

func (d racingDrainer) DrainAll() []record.Record {
	out := d.ring.DrainAll()
	d.ring.Enqueue(rec(99))
	return out
}

func TestScheduler_BufferedGaugeFollowsRingAfterDrain(t *testing.T) {
	ring := buffer.New[record.Record](10)
	ring.OnLen(metrics.SetBufferedRecords)
	ring.Enqueue(rec(1))
	ring.Enqueue(rec(2))
	require.Equal(t, float64(2), testutil.ToFloat64(metrics.BufferedRecords))

	s := NewScheduler(Config{Interval: time.Second}, racingDrainer{ring: ring}, &fakeSubmitter{}, &fakeSink{}, logger.NopLogger())
	require.True(t, s.Tick(context.Background()))
	s.Wait()

	assert.Equal(t, 1, ring.Len())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.BufferedRecords))
}
