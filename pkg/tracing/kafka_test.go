package tracing

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestExtractTraceContext(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	headers := []kafka.Header{
		{Key: "source", Value: []byte("ais")},
		{Key: traceParentHeader, Value: []byte("00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")},
		{Key: traceStateHeader, Value: []byte("ais=1")},
	}

	sc := trace.SpanContextFromContext(ExtractTraceContext(context.Background(), headers))
	require.True(t, sc.IsValid())
	assert.True(t, sc.IsRemote())
	assert.True(t, sc.IsSampled())
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", sc.TraceID().String())
	assert.Equal(t, "00f067aa0ba902b7", sc.SpanID().String())
	assert.Equal(t, "ais=1", sc.TraceState().String())
}

func TestExtractTraceContext_NoHeaders(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	sc := trace.SpanContextFromContext(ExtractTraceContext(context.Background(), nil))
	assert.False(t, sc.IsValid())
}

func TestStartSpanFromKafkaMessage_KeepsTraceID(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	headers := []kafka.Header{
		{Key: traceParentHeader, Value: []byte("00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")},
	}

	ctx, span := StartSpanFromKafkaMessage(context.Background(), "kafka.consume", headers)
	defer span.End()

	parent := trace.SpanContextFromContext(ctx)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", parent.TraceID().String())
}

func TestKafkaHeaderCarrier(t *testing.T) {
	c := &kafkaHeaderCarrier{headers: []kafka.Header{{Key: traceStateHeader, Value: []byte("a=1")}}}
	c.Set(traceStateHeader, "b=2")
	c.Set("other", "x")

	assert.Equal(t, "b=2", c.Get(traceStateHeader))
	assert.Equal(t, []string{traceStateHeader, "other"}, c.Keys())
	assert.Empty(t, c.Get("missing"))
}
