package instrumentation

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Exporter names accepted in Config.
const (
	MetricsExporterPrometheus = "prometheus"
	MetricsExporterOTLP       = "otlp"
	MetricsExporterStdout     = "stdout"

	TracingExporterNone   = "none"
	TracingExporterOTLP   = "otlp"
	TracingExporterStdout = "stdout"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvEnabled         = "INSTRUMENTATION_ENABLED"
	EnvServiceName     = "OTEL_SERVICE_NAME"
	EnvMetricsExporter = "METRICS_EXPORTER"
	EnvTracingExporter = "TRACING_EXPORTER"
	EnvOTLPEndpoint    = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvOTLPInsecure    = "OTEL_EXPORTER_OTLP_INSECURE"
	EnvSamplingRate    = "OTEL_TRACES_SAMPLER_ARG"
	EnvDetailedLabels  = "METRICS_DETAILED_LABELS"
)

// DefaultMetricInterval is the export period of the push-based exporters.
const DefaultMetricInterval = 10 * time.Second

// Config holds the configuration for OpenTelemetry instrumentation.
// Instrumentation is off unless Enabled is set.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Enabled        bool

	// MetricsExporter is prometheus, otlp or stdout.
	MetricsExporter string
	// TracingExporter is none, otlp or stdout.
	TracingExporter string

	// OTLPEndpoint is the collector URL, e.g. "http://localhost:4318".
	// An http:// scheme implies plaintext export.
	OTLPEndpoint string
	// OTLPInsecure forces plaintext export. Spans carry context names and
	// verbs, so only use it against local collectors.
	OTLPInsecure bool

	// TraceSamplingRate is the ratio of sampled root spans, from 0 to 1.
	TraceSamplingRate float64

	// DetailedLabels adds the normalized kubectl verb to command metrics.
	DetailedLabels bool
}

// ConfigFromEnv builds a Config from the variables named by the Env
// constants, using getenv to read them. Unset variables take their
// defaults; values that do not parse are reported together.
func ConfigFromEnv(getenv func(string) string) (Config, error) {
	r := envReader{getenv: getenv}
	config := Config{
		ServiceName:       r.str(EnvServiceName, "mcp-kubectl"),
		ServiceVersion:    "unknown",
		Enabled:           r.bool(EnvEnabled, false),
		MetricsExporter:   r.str(EnvMetricsExporter, MetricsExporterPrometheus),
		TracingExporter:   r.str(EnvTracingExporter, TracingExporterNone),
		OTLPEndpoint:      r.str(EnvOTLPEndpoint, ""),
		OTLPInsecure:      r.bool(EnvOTLPInsecure, false),
		TraceSamplingRate: r.float(EnvSamplingRate, 0.1),
		DetailedLabels:    r.bool(EnvDetailedLabels, true),
	}
	return config, errors.Join(r.errs...)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.MetricsExporter {
	case "", MetricsExporterPrometheus, MetricsExporterOTLP, MetricsExporterStdout:
	default:
		return fmt.Errorf("unsupported metrics exporter %q", c.MetricsExporter)
	}

	switch c.TracingExporter {
	case "", TracingExporterNone, TracingExporterOTLP, TracingExporterStdout:
	default:
		return fmt.Errorf("unsupported tracing exporter %q", c.TracingExporter)
	}

	if c.Enabled && c.OTLPEndpoint == "" {
		if c.MetricsExporter == MetricsExporterOTLP {
			return fmt.Errorf("metrics exporter %q requires %s", MetricsExporterOTLP, EnvOTLPEndpoint)
		}
		if c.TracingExporter == TracingExporterOTLP {
			return fmt.Errorf("tracing exporter %q requires %s", TracingExporterOTLP, EnvOTLPEndpoint)
		}
	}

	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0 and 1, got %v", c.TraceSamplingRate)
	}

	return nil
}

// envReader reads typed values and collects parse errors.
type envReader struct {
	getenv func(string) string
	errs   []error
}

func (r *envReader) str(key, def string) string {
	if v := r.getenv(key); v != "" {
		return v
	}
	return def
}

func (r *envReader) bool(key string, def bool) bool {
	v := r.getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not a boolean", key, v))
		return def
	}
	return b
}

func (r *envReader) float(key string, def float64) float64 {
	v := r.getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not a number", key, v))
		return def
	}
	return f
}

// Metric label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	// kubectl command outcomes
	CommandStatusSuccess = "success" // exit code 0
	CommandStatusFailed  = "failed"  // non-zero exit code
	CommandStatusError   = "error"   // process could not run
	CommandStatusTimeout = "timeout" // killed after the command timeout
	CommandStatusDenied  = "denied"  // rejected by the read-only policy
	CommandStatusInvalid = "invalid" // malformed command

	DecisionAllowed = "allowed"
	DecisionDenied  = "denied"
)
