package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRegistry_CheckAll(t *testing.T) {
	reg := NewRegistry(RegistryConfig{})
	reg.Register(NewCheckerFunc("good", func(ctx context.Context) Result {
		return Healthy("fine")
	}))
	reg.Register(NewCheckerFunc("bad", func(ctx context.Context) Result {
		return Unhealthy("broken", errors.New("down"))
	}))

	results := reg.CheckAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results["good"].Status != StatusHealthy {
		t.Errorf("good status = %v, want healthy", results["good"].Status)
	}
	if results["bad"].Status != StatusUnhealthy {
		t.Errorf("bad status = %v, want unhealthy", results["bad"].Status)
	}
	if Overall(results) != StatusUnhealthy {
		t.Error("Overall() = healthy, want unhealthy")
	}
}

func TestRegistry_Timeout(t *testing.T) {
	reg := NewRegistry(RegistryConfig{Timeout: 20 * time.Millisecond})
	reg.Register(NewCheckerFunc("slow", func(ctx context.Context) Result {
		select {
		case <-time.After(time.Second):
			return Healthy("too late")
		case <-ctx.Done():
			return Unhealthy("cancelled", ctx.Err())
		}
	}))

	results := reg.CheckAll(context.Background())
	if results["slow"].Status != StatusUnhealthy {
		t.Errorf("slow status = %v, want unhealthy", results["slow"].Status)
	}
}

func TestOverall_Empty(t *testing.T) {
	if Overall(map[string]Result{}) != StatusHealthy {
		t.Error("Overall() of no checks should be healthy")
	}
}

func TestStatus_String(t *testing.T) {
	if StatusHealthy.String() != "healthy" || StatusUnhealthy.String() != "unhealthy" {
		t.Error("Status.String() mismatch")
	}
	if Status(99).String() != "unknown" {
		t.Error("unknown status should print unknown")
	}
}
