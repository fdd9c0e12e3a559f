package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"place-discovery/internal/common/config"
)

// NewSpanExporter builds the OTLP exporter named by cfg.Exporter. Neither exporter
// dials until the first batch is sent.
func NewSpanExporter(ctx context.Context, cfg config.TracingConfig) (sdktrace.SpanExporter, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	switch cfg.Exporter {
	case config.TraceExporterOTLPGRPC:
		opts := []otlptracegrpc.Option{}
		if cfg.Endpoint != "" {
			opts = append(opts, otlptracegrpc.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	case config.TraceExporterOTLPHTTP, "":
		opts := []otlptracehttp.Option{}
		if cfg.Endpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported trace exporter: %s", cfg.Exporter)
	}
}

// WithExporter batches finished spans to exp.
func WithExporter(exp sdktrace.SpanExporter) Option {
	return WithSpanProcessor(sdktrace.NewBatchSpanProcessor(exp,
		sdktrace.WithBatchTimeout(5*time.Second),
		sdktrace.WithMaxExportBatchSize(512),
	))
}

// WithSamplingRate samples root spans at rate; child spans follow their parent.
func WithSamplingRate(rate float64) Option {
	var root sdktrace.Sampler
	switch {
	case rate >= 1:
		root = sdktrace.AlwaysSample()
	case rate <= 0:
		root = sdktrace.NeverSample()
	default:
		root = sdktrace.TraceIDRatioBased(rate)
	}
	return func(o *options) { o.sampler = sdktrace.ParentBased(root) }
}

// Tracing turns cfg into provider options. It returns nothing when tracing is disabled,
// leaving spans unexported.
func Tracing(ctx context.Context, cfg config.TracingConfig) ([]Option, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	exp, err := NewSpanExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	return []Option{WithSamplingRate(cfg.SamplingRate), WithExporter(exp)}, nil
}
