// Package observability owns the OpenTelemetry meter and tracer providers.
package observability

import (
	"context"
	"log"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Observability records job and submission metrics through the Prometheus
// exporter and wraps submission steps in spans. A nil *Observability is
// valid and records nothing.
type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	meter          otelmetric.Meter
	tracer         trace.Tracer

	jobCounter        otelmetric.Int64Counter
	jobDuration       otelmetric.Float64Histogram
	submissionCounter otelmetric.Int64Counter
	submissionLatency otelmetric.Float64Histogram
	uploadBytes       otelmetric.Int64Histogram
}

// Option customises New.
type Option func(*options)

type options struct {
	registerer    promclient.Registerer
	spanProcessor sdktrace.SpanProcessor
}

// WithRegisterer registers the exporter somewhere other than the default
// Prometheus registry.
func WithRegisterer(r promclient.Registerer) Option {
	return func(o *options) { o.registerer = r }
}

// WithSpanProcessor attaches a span processor (exporter or recorder).
func WithSpanProcessor(sp sdktrace.SpanProcessor) Option {
	return func(o *options) { o.spanProcessor = sp }
}

func New(serviceName string, opts ...Option) *Observability {
	cfg := options{}
	for _, opt := range opts {
		opt(&cfg)
	}

	exporterOpts := []prometheus.Option{}
	if cfg.registerer != nil {
		exporterOpts = append(exporterOpts, prometheus.WithRegisterer(cfg.registerer))
	}
	exporter, err := prometheus.New(exporterOpts...)
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{tracer: otel.Tracer(serviceName)}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	tracerProvider := newTracerProvider(serviceName, cfg.spanProcessor)
	otel.SetTracerProvider(tracerProvider)

	meter := provider.Meter(serviceName)

	jobCounter, _ := meter.Int64Counter(
		"jobs.processed",
		otelmetric.WithDescription("Number of jobs processed"),
	)
	jobDuration, _ := meter.Float64Histogram(
		"jobs.duration",
		otelmetric.WithDescription("Job processing duration"),
		otelmetric.WithUnit("ms"),
	)
	submissionCounter, _ := meter.Int64Counter(
		"applications.submitted",
		otelmetric.WithDescription("Application submissions by outcome"),
	)
	submissionLatency, _ := meter.Float64Histogram(
		"applications.submit.duration",
		otelmetric.WithDescription("Upload plus insert latency"),
		otelmetric.WithUnit("ms"),
	)
	uploadBytes, _ := meter.Int64Histogram(
		"resumes.upload.size",
		otelmetric.WithDescription("Uploaded resume size"),
		otelmetric.WithUnit("By"),
	)

	return &Observability{
		meterProvider:     provider,
		tracerProvider:    tracerProvider,
		meter:             meter,
		tracer:            tracerProvider.Tracer(serviceName),
		jobCounter:        jobCounter,
		jobDuration:       jobDuration,
		submissionCounter: submissionCounter,
		submissionLatency: submissionLatency,
		uploadBytes:       uploadBytes,
	}
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

// RecordSubmission records one transport run.
func (o *Observability) RecordSubmission(ctx context.Context, outcome string, duration time.Duration) {
	if o == nil || o.submissionCounter == nil {
		return
	}
	attrs := otelmetric.WithAttributes(attribute.String("outcome", outcome))
	o.submissionCounter.Add(ctx, 1, attrs)
	o.submissionLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
}

func (o *Observability) RecordUploadBytes(ctx context.Context, n int64) {
	if o == nil || o.uploadBytes == nil {
		return
	}
	o.uploadBytes.Record(ctx, n)
}

func (o *Observability) Shutdown() {
	if o == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
}
