package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	cfg := Config{
		Enabled:     true,
		Endpoint:    "localhost:4317",
		ServiceName: "test-service",
		Version:     "1.0.0",
		Environment: "test",
		SampleRate:  0.5,
	}

	assert.Equal(t, "test-service", cfg.ServiceName)
}

func TestInit_Disabled(t *testing.T) {
	cfg := Config{
		Enabled:     false,
		ServiceName: "test",
	}

	provider, err := Init(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, provider)
	assert.NotNil(t, provider.tracer)
}

func TestGet_Uninitialized(t *testing.T) {
	globalProvider = nil

	provider := Get()
	require.NotNil(t, provider)
	assert.NotNil(t, provider.tracer)
}

func TestStartSpan(t *testing.T) {
	globalProvider = nil

	ctx := context.Background()
	newCtx, span := StartSpan(ctx, "test-span")

	require.NotNil(t, span)
	_ = newCtx
	span.End()
}

func TestSpanFromContext(t *testing.T) {
	ctx := context.Background()
	span := SpanFromContext(ctx)
	assert.NotNil(t, span)
}

func TestAddEvent(t *testing.T) {
	ctx := context.Background()
	newCtx, span := StartSpan(ctx, "test-span")
	defer span.End()

	AddEvent(newCtx, "test-event",
		attribute.String("key", "value"),
		attribute.Int("count", 42),
	)
}

func TestSetError(t *testing.T) {
	ctx := context.Background()
	newCtx, span := StartSpan(ctx, "test-span")
	defer span.End()

	SetError(newCtx, context.DeadlineExceeded)
}

func TestSetAttributes(t *testing.T) {
	ctx := context.Background()
	newCtx, span := StartSpan(ctx, "test-span")
	defer span.End()

	SetAttributes(newCtx,
		attribute.String("key1", "value1"),
		attribute.Int("key2", 42),
	)
}

func TestWithAttributes(t *testing.T) {
	opt := WithAttributes(attribute.String("key", "value"))
	assert.NotNil(t, opt)
}

func TestProvider_Tracer(t *testing.T) {
	provider := &Provider{
		tracer: noop.NewTracerProvider().Tracer("test"),
	}

	assert.NotNil(t, provider.Tracer())
}

func TestProvider_Shutdown(t *testing.T) {
	provider := &Provider{
		tp:     nil,
		tracer: noop.NewTracerProvider().Tracer("test"),
	}

	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestGraphAttributes(t *testing.T) {
	attrs := GraphAttributes(10, 20, "directed", 1)
	require.Len(t, attrs, 4)

	expected := map[string]bool{
		AttrGraphVertices: true,
		AttrGraphEdges:    true,
		AttrGraphMode:     true,
		AttrSourceVertex:  true,
	}
	for _, attr := range attrs {
		assert.True(t, expected[string(attr.Key)], "unexpected attribute key: %s", attr.Key)
	}
}

func TestRunAttributes(t *testing.T) {
	attrs := RunAttributes("run-123", 4)
	require.Len(t, attrs, 2)
}

func TestIterationAttributes(t *testing.T) {
	attrs := IterationAttributes(0, 12, 5000, 1e6, true)
	require.Len(t, attrs, 5)
}

func TestRoundAttributes(t *testing.T) {
	attrs := RoundAttributes(3, 1)
	require.Len(t, attrs, 2)
}
