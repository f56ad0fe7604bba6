package tracing

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInit_DisabledInstallsPropagatorOnly(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{ServiceName: "games-service"})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))

	fields := otel.GetTextMapPropagator().Fields()
	assert.Contains(t, fields, "traceparent")
}

func TestInit_Enabled(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	shutdown, err := Init(context.Background(), Config{
		ServiceName:    "games-service",
		ServiceVersion: "1.0.0",
		Environment:    "test",
		OTLPEndpoint:   "127.0.0.1:0",
		SampleRate:     1.0,
		Enabled:        true,
	})
	require.NoError(t, err)

	_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	assert.True(t, ok)

	// The collector is unreachable, so a flush error is acceptable here.
	_ = shutdown(context.Background())
}

func TestSampler(t *testing.T) {
	assert.True(t, strings.HasPrefix(Sampler(1).Description(), "ParentBased{root:AlwaysOnSampler"))
	assert.True(t, strings.HasPrefix(Sampler(0).Description(), "ParentBased{root:AlwaysOffSampler"))
	assert.True(t, strings.HasPrefix(Sampler(0.25).Description(), "ParentBased{root:TraceIDRatioBased{0.25}"))
	assert.True(t, strings.HasPrefix(Sampler(-3).Description(), "ParentBased{root:AlwaysOffSampler"))
}
