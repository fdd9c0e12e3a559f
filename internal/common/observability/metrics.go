package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"place-discovery/internal/common/logger"
)

// Observability records discovery and job instruments through the OpenTelemetry SDK,
// exported on the prometheus registry, and traces through an SDK tracer provider.
// A nil *Observability is valid and records nothing.
type Observability struct {
	meterProvider    *metric.MeterProvider
	tracerProvider   *sdktrace.TracerProvider
	tracer           trace.Tracer
	logger           logger.Logger
	jobCounter       otelmetric.Int64Counter
	jobDuration      otelmetric.Float64Histogram
	discoverCounter  otelmetric.Int64Counter
	discoverDuration otelmetric.Float64Histogram
}

type Option func(*options)

type options struct {
	spanProcessors []sdktrace.SpanProcessor
	sampler        sdktrace.Sampler
}

// WithSpanProcessor attaches a span processor (an exporter pipeline or a test
// recorder) to the tracer provider.
func WithSpanProcessor(sp sdktrace.SpanProcessor) Option {
	return func(o *options) { o.spanProcessors = append(o.spanProcessors, sp) }
}

// New registers the exporter on reg, or on the default registerer when reg is nil.
func New(serviceName string, reg prometheus.Registerer, log logger.Logger, opts ...Option) *Observability {
	var cfg options
	for _, opt := range opts {
		opt(&cfg)
	}

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
	}
	if cfg.sampler != nil {
		tpOpts = append(tpOpts, sdktrace.WithSampler(cfg.sampler))
	}
	for _, sp := range cfg.spanProcessors {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(sp))
	}
	tp := sdktrace.NewTracerProvider(tpOpts...)
	if len(cfg.spanProcessors) > 0 {
		otel.SetTracerProvider(tp)
	}

	o := &Observability{
		tracerProvider: tp,
		tracer:         tp.Tracer(serviceName),
		logger:         log.WithFields(map[string]interface{}{"component": "observability"}),
	}

	promOpts := []otelprom.Option{}
	if reg != nil {
		promOpts = append(promOpts, otelprom.WithRegisterer(reg))
	}
	exporter, err := otelprom.New(promOpts...)
	if err != nil {
		o.logger.WithError(err).Warn("prometheus exporter unavailable, otel metrics disabled", nil)
		return o
	}

	o.meterProvider = metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(o.meterProvider)
	meter := o.meterProvider.Meter(serviceName)

	o.jobCounter, _ = meter.Int64Counter(
		"jobs_processed",
		otelmetric.WithDescription("Number of jobs processed"),
	)
	o.jobDuration, _ = meter.Float64Histogram(
		"jobs_duration",
		otelmetric.WithDescription("Job processing duration"),
		otelmetric.WithUnit("ms"),
	)
	o.discoverCounter, _ = meter.Int64Counter(
		"discover_requests",
		otelmetric.WithDescription("Discover calls by category, source and outcome"),
	)
	o.discoverDuration, _ = meter.Float64Histogram(
		"discover_duration",
		otelmetric.WithDescription("Discover latency"),
		otelmetric.WithUnit("ms"),
	)
	return o
}

// StartSpan starts a span on the service tracer. On a nil receiver the span is a no-op.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if o == nil || o.tracer == nil {
		return noop.NewTracerProvider().Tracer("").Start(ctx, name)
	}
	return o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordDiscover counts one Discover call. source is cache or transport; outcome is ok
// or the error code.
func (o *Observability) RecordDiscover(ctx context.Context, category, source, outcome string, duration time.Duration) {
	if o == nil || o.discoverCounter == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("category", category),
		attribute.String("source", source),
		attribute.String("outcome", outcome),
	)
	o.discoverCounter.Add(ctx, 1, attrs)
	o.discoverDuration.Record(ctx, float64(duration.Microseconds())/1000, attrs)
}

func (o *Observability) RecordJobProcessed(ctx context.Context, status string) {
	if o == nil || o.jobCounter == nil {
		return
	}
	o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("status", status),
	))
}

func (o *Observability) RecordJobDuration(ctx context.Context, duration time.Duration, status string) {
	if o == nil || o.jobDuration == nil {
		return
	}
	o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("status", status),
	))
}

// Shutdown flushes pending spans and stops both providers.
func (o *Observability) Shutdown() {
	if o == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.tracerProvider != nil {
		if err := o.tracerProvider.Shutdown(ctx); err != nil {
			o.logger.WithError(err).Warn("tracer provider shutdown failed", nil)
		}
	}
	if o.meterProvider != nil {
		if err := o.meterProvider.Shutdown(ctx); err != nil {
			o.logger.WithError(err).Warn("meter provider shutdown failed", nil)
		}
	}
}
