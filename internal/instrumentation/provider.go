package instrumentation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Provider owns the OpenTelemetry meter and tracer providers and the
// metrics recorder built on top of them.
type Provider struct {
	config Config

	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	registry       *prometheus.Registry

	metrics     *Metrics
	auditLogger *AuditLogger
}

// ProviderOption configures optional Provider behavior.
type ProviderOption func(*providerOptions)

type providerOptions struct {
	readers []sdkmetric.Reader
	logger  *slog.Logger
}

// WithMetricReader attaches an additional metric reader, such as a
// sdkmetric.ManualReader in tests.
func WithMetricReader(reader sdkmetric.Reader) ProviderOption {
	return func(o *providerOptions) {
		o.readers = append(o.readers, reader)
	}
}

// WithLogger sets the logger used for audit records.
func WithLogger(logger *slog.Logger) ProviderOption {
	return func(o *providerOptions) {
		o.logger = logger
	}
}

// NewProvider creates a Provider from config. When instrumentation is
// disabled the returned provider records into no-op instruments.
func NewProvider(ctx context.Context, config Config, opts ...ProviderOption) (*Provider, error) {
	options := &providerOptions{}
	for _, opt := range opts {
		opt(options)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid instrumentation config: %w", err)
	}
	if config.ServiceName == "" {
		config.ServiceName = "mcp-kubectl"
	}
	if config.MetricsExporter == "" {
		config.MetricsExporter = MetricsExporterPrometheus
	}
	if config.TracingExporter == "" {
		config.TracingExporter = TracingExporterNone
	}

	p := &Provider{
		config:      config,
		auditLogger: NewAuditLogger(options.logger),
	}

	if !config.Enabled {
		metrics, err := NewMetrics(noop.NewMeterProvider().Meter(TracerName), config.DetailedLabels)
		if err != nil {
			return nil, err
		}
		p.metrics = metrics
		return p, nil
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", config.ServiceName),
		attribute.String("service.version", config.ServiceVersion),
	)

	if err := p.initMetrics(ctx, res, options.readers); err != nil {
		return nil, err
	}

	if err := p.initTracing(ctx, res); err != nil {
		_ = p.meterProvider.Shutdown(ctx)
		return nil, err
	}

	return p, nil
}

func (p *Provider) initMetrics(ctx context.Context, res *resource.Resource, extra []sdkmetric.Reader) error {
	mpOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	switch p.config.MetricsExporter {
	case MetricsExporterPrometheus:
		p.registry = prometheus.NewRegistry()
		p.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		exporter, err := otelprom.New(otelprom.WithRegisterer(p.registry))
		if err != nil {
			return fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		mpOpts = append(mpOpts, sdkmetric.WithReader(exporter))

	case MetricsExporterOTLP:
		host, insecure, err := otlpEndpoint(p.config.OTLPEndpoint)
		if err != nil {
			return err
		}
		exporterOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(host)}
		if insecure || p.config.OTLPInsecure {
			exporterOpts = append(exporterOpts, otlpmetrichttp.WithInsecure())
		}
		exporter, err := otlpmetrichttp.New(ctx, exporterOpts...)
		if err != nil {
			return fmt.Errorf("failed to create OTLP metric exporter: %w", err)
		}
		mpOpts = append(mpOpts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(DefaultMetricInterval)),
		))

	case MetricsExporterStdout:
		// stdout carries the MCP stream in stdio mode.
		exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(os.Stderr))
		if err != nil {
			return fmt.Errorf("failed to create stdout metric exporter: %w", err)
		}
		mpOpts = append(mpOpts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(DefaultMetricInterval)),
		))
	}

	for _, reader := range extra {
		mpOpts = append(mpOpts, sdkmetric.WithReader(reader))
	}

	p.meterProvider = sdkmetric.NewMeterProvider(mpOpts...)
	otel.SetMeterProvider(p.meterProvider)

	metrics, err := NewMetrics(p.meterProvider.Meter(TracerName), p.config.DetailedLabels)
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}
	p.metrics = metrics
	return nil
}

func (p *Provider) initTracing(ctx context.Context, res *resource.Resource) error {
	var exporter sdktrace.SpanExporter

	switch p.config.TracingExporter {
	case TracingExporterNone:
		return nil

	case TracingExporterOTLP:
		host, insecure, err := otlpEndpoint(p.config.OTLPEndpoint)
		if err != nil {
			return err
		}
		exporterOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(host)}
		if insecure || p.config.OTLPInsecure {
			exporterOpts = append(exporterOpts, otlptracehttp.WithInsecure())
		}
		exporter, err = otlptracehttp.New(ctx, exporterOpts...)
		if err != nil {
			return fmt.Errorf("failed to create OTLP trace exporter: %w", err)
		}

	case TracingExporterStdout:
		var err error
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(os.Stderr))
		if err != nil {
			return fmt.Errorf("failed to create stdout trace exporter: %w", err)
		}
	}

	p.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(p.config.TraceSamplingRate))),
	)
	otel.SetTracerProvider(p.tracerProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return nil
}

// otlpEndpoint splits an endpoint such as "http://collector:4318" into the
// host:port the OTLP exporters expect and whether plain HTTP was requested.
func otlpEndpoint(raw string) (string, bool, error) {
	if raw == "" {
		return "", false, errors.New("OTLP endpoint is not configured")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		// Bare host:port.
		return raw, false, nil
	}
	return u.Host, u.Scheme == "http", nil
}

// Enabled reports whether metrics and tracing are being exported.
func (p *Provider) Enabled() bool {
	return p != nil && p.config.Enabled
}

// Config returns the effective configuration.
func (p *Provider) Config() Config {
	return p.config
}

// Metrics returns the metrics recorder. It is never nil for a non-nil provider.
func (p *Provider) Metrics() *Metrics {
	if p == nil {
		return nil
	}
	return p.metrics
}

// AuditLogger returns the logger for tool invocation audit records.
func (p *Provider) AuditLogger() *AuditLogger {
	if p == nil {
		return NewAuditLogger(nil)
	}
	return p.auditLogger
}

// PrometheusHandler returns the handler serving the Prometheus registry.
// It responds 404 when the Prometheus exporter is not in use.
func (p *Provider) PrometheusHandler() http.Handler {
	if p == nil || p.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Shutdown flushes and stops the meter and tracer providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}

	var errs []error
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}
