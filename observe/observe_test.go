package observe

import (
	"context"
	"testing"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "minimal",
			config: Config{ServiceName: "taskauth"},
		},
		{
			name:    "missing service name",
			config:  Config{},
			wantErr: true,
		},
		{
			name: "valid exporters",
			config: Config{
				ServiceName: "taskauth",
				Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 0.5},
				Metrics:     MetricsConfig{Enabled: true, Exporter: "none"},
			},
		},
		{
			name: "unknown tracing exporter",
			config: Config{
				ServiceName: "taskauth",
				Tracing:     TracingConfig{Enabled: true, Exporter: "jaeger"},
			},
			wantErr: true,
		},
		{
			name: "sample percentage out of range",
			config: Config{
				ServiceName: "taskauth",
				Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 1.5},
			},
			wantErr: true,
		},
		{
			name: "unknown metrics exporter",
			config: Config{
				ServiceName: "taskauth",
				Metrics:     MetricsConfig{Enabled: true, Exporter: "graphite"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSetup(t *testing.T) {
	ctx := context.Background()

	obs, err := Setup(ctx, Config{
		ServiceName: "taskauth-test",
		Version:     "0.0.1",
		Tracing:     TracingConfig{Enabled: true, Exporter: "none"},
		Metrics:     MetricsConfig{Enabled: true, Exporter: "none"},
		Logging:     LoggingConfig{Enabled: true, Level: "error"},
	})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	if obs.Tracer() == nil {
		t.Error("Tracer() = nil")
	}
	if obs.Meter() == nil {
		t.Error("Meter() = nil")
	}
	if obs.Logger() == nil {
		t.Error("Logger() = nil")
	}

	if err := obs.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	// Idempotent.
	if err := obs.Shutdown(ctx); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
}

func TestSetup_Disabled(t *testing.T) {
	obs, err := Setup(context.Background(), Config{ServiceName: "taskauth-test"})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	// Everything defaults to no-op implementations.
	if obs.Tracer() == nil || obs.Meter() == nil {
		t.Error("disabled setup should still return usable primitives")
	}
	if _, ok := obs.Logger().(NopLogger); !ok {
		t.Errorf("Logger() = %T, want NopLogger", obs.Logger())
	}
	if err := obs.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
