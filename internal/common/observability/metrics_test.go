package observability

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"place-discovery/internal/common/logger"
)

func familyNames(t *testing.T, reg *prometheus.Registry) []string {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	return names
}

func TestObservability_ExportsDiscoverMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	o := New("place-discovery-test", reg, logger.NewTestLogger(t))
	defer o.Shutdown()

	ctx := context.Background()
	o.RecordDiscover(ctx, "hotel", "transport", "ok", 120*time.Millisecond)
	o.RecordDiscover(ctx, "hotel", "cache", "ok", time.Millisecond)
	o.RecordJobProcessed(ctx, "completed")
	o.RecordJobDuration(ctx, 30*time.Millisecond, "completed")

	names := familyNames(t, reg)
	for _, want := range []string{
		"discover_requests_total",
		"discover_duration_milliseconds",
		"jobs_processed_total",
		"jobs_duration_milliseconds",
	} {
		assert.Contains(t, names, want)
	}
	for _, n := range names {
		assert.NotContains(t, n, ".", "exported names are valid classic prometheus names")
	}
}

func TestObservability_NilIsSafe(t *testing.T) {
	var o *Observability
	ctx := context.Background()

	assert.NotPanics(t, func() {
		o.RecordDiscover(ctx, "hotel", "cache", "ok", time.Millisecond)
		o.RecordJobProcessed(ctx, "failed")
		o.RecordJobDuration(ctx, time.Millisecond, "failed")
		spanCtx, span := o.StartSpan(ctx, "transport.search")
		span.End()
		assert.NotNil(t, spanCtx)
		o.Shutdown()
	})
}

func TestObservability_StartSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	o := New("place-discovery-test", prometheus.NewRegistry(), logger.NewNoOpLogger(), WithSpanProcessor(rec))
	defer o.Shutdown()

	ctx, span := o.StartSpan(context.Background(), "transport.search", attribute.String("provider", "googleplaces"))
	require.NotNil(t, span)
	assert.True(t, span.SpanContext().IsValid())
	span.SetStatus(codes.Error, "boom")
	span.End()
	assert.NotNil(t, ctx)

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "transport.search", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Contains(t, ended[0].Attributes(), attribute.String("provider", "googleplaces"))
}
