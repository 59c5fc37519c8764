package observe

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Config holds all configuration for telemetry setup.
type Config struct {
	ServiceName string
	Version     string
	Tracing     TracingConfig
	Metrics     MetricsConfig
	Logging     LoggingConfig
}

// TracingConfig configures the tracing subsystem.
type TracingConfig struct {
	Enabled   bool
	Exporter  string  // otlp|stdout|none
	SamplePct float64 // 0.0-1.0; 0 means always sample
}

// MetricsConfig configures the metrics subsystem.
type MetricsConfig struct {
	Enabled  bool
	Exporter string // otlp|prometheus|stdout|none
}

// LoggingConfig configures the logging subsystem.
type LoggingConfig struct {
	Enabled bool
	Level   string // debug|info|warn|error
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return errors.New("service name is required")
	}
	if c.Tracing.Enabled {
		switch c.Tracing.Exporter {
		case "otlp", "stdout", "none", "":
		default:
			return fmt.Errorf("unknown tracing exporter: %q", c.Tracing.Exporter)
		}
		if c.Tracing.SamplePct < 0 || c.Tracing.SamplePct > 1.0 {
			return fmt.Errorf("sample percentage must be between 0.0 and 1.0, got: %f", c.Tracing.SamplePct)
		}
	}
	if c.Metrics.Enabled {
		switch c.Metrics.Exporter {
		case "otlp", "prometheus", "stdout", "none", "":
		default:
			return fmt.Errorf("unknown metrics exporter: %q", c.Metrics.Exporter)
		}
	}
	return nil
}

// Observer provides access to the configured telemetry primitives.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: Shutdown is idempotent and returns the first error encountered.
type Observer struct {
	tracer   trace.Tracer
	meter    metric.Meter
	logger   Logger
	shutdown []func(context.Context) error
	done     bool
}

// Setup configures telemetry from the given config. Providers are installed
// globally so instrumented packages pick them up through the otel globals.
func Setup(ctx context.Context, cfg Config) (*Observer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	obs := &Observer{
		tracer: tracenoop.NewTracerProvider().Tracer(cfg.ServiceName),
		meter:  noop.NewMeterProvider().Meter(cfg.ServiceName),
		logger: NopLogger{},
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.Version),
	))
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	if cfg.Tracing.Enabled {
		exp, err := newTraceExporter(ctx, cfg.Tracing.Exporter)
		if err != nil {
			return nil, err
		}
		opts := []sdktrace.TracerProviderOption{
			sdktrace.WithBatcher(exp),
			sdktrace.WithResource(res),
		}
		if cfg.Tracing.SamplePct > 0 {
			opts = append(opts, sdktrace.WithSampler(
				sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.Tracing.SamplePct))))
		}
		tp := sdktrace.NewTracerProvider(opts...)
		otel.SetTracerProvider(tp)
		obs.tracer = tp.Tracer(cfg.ServiceName)
		obs.shutdown = append(obs.shutdown, tp.Shutdown)
	}

	if cfg.Metrics.Enabled {
		reader, err := newMetricReader(ctx, cfg.Metrics.Exporter)
		if err != nil {
			return nil, err
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(reader),
			sdkmetric.WithResource(res),
		)
		otel.SetMeterProvider(mp)
		obs.meter = mp.Meter(cfg.ServiceName)
		obs.shutdown = append(obs.shutdown, mp.Shutdown)
	}

	if cfg.Logging.Enabled {
		obs.logger = NewLogger(cfg.Logging.Level)
	}

	return obs, nil
}

// Tracer returns the configured tracer.
func (o *Observer) Tracer() trace.Tracer {
	return o.tracer
}

// Meter returns the configured meter.
func (o *Observer) Meter() metric.Meter {
	return o.meter
}

// Logger returns the configured logger.
func (o *Observer) Logger() Logger {
	return o.logger
}

// Shutdown flushes and tears down the installed providers.
func (o *Observer) Shutdown(ctx context.Context) error {
	if o.done {
		return nil
	}
	o.done = true

	var first error
	for _, fn := range o.shutdown {
		if err := fn(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}
