package health

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCheckTimeout is returned when a check does not finish in time.
var ErrCheckTimeout = errors.New("health: check timed out")

// Status represents the health status of a component.
type Status int

const (
	// StatusHealthy indicates the component is functioning normally.
	StatusHealthy Status = iota
	// StatusUnhealthy indicates the component is not functioning properly.
	StatusUnhealthy
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Result contains the outcome of a health check.
type Result struct {
	Status   Status
	Message  string
	Duration time.Duration
	Error    error
}

// Healthy creates a healthy result.
func Healthy(message string) Result {
	return Result{Status: StatusHealthy, Message: message}
}

// Unhealthy creates an unhealthy result.
func Unhealthy(message string, err error) Result {
	return Result{Status: StatusUnhealthy, Message: message, Error: err}
}

// Checker is the interface for health checks.
type Checker interface {
	// Name returns the name of this checker.
	Name() string

	// Check performs the health check and returns the result.
	Check(ctx context.Context) Result
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc struct {
	name string
	fn   func(context.Context) Result
}

// NewCheckerFunc creates a CheckerFunc.
func NewCheckerFunc(name string, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

// Name returns the name of this checker.
func (f *CheckerFunc) Name() string { return f.name }

// Check performs the health check.
func (f *CheckerFunc) Check(ctx context.Context) Result { return f.fn(ctx) }

// RegistryConfig configures the check registry.
type RegistryConfig struct {
	// Timeout bounds a full CheckAll pass.
	// Default: 5s
	Timeout time.Duration
}

// Registry runs a set of named checkers and reports a combined verdict.
type Registry struct {
	config RegistryConfig

	mu       sync.RWMutex
	checkers []Checker
}

// NewRegistry creates a check registry.
func NewRegistry(config RegistryConfig) *Registry {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	return &Registry{config: config}
}

// Register adds a checker. Registration order is reporting order.
func (r *Registry) Register(checker Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers = append(r.checkers, checker)
}

// CheckAll runs every registered check in parallel under the registry
// timeout and returns results keyed by checker name.
func (r *Registry) CheckAll(ctx context.Context) map[string]Result {
	r.mu.RLock()
	checkers := make([]Checker, len(r.checkers))
	copy(checkers, r.checkers)
	r.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	results := make(map[string]Result, len(checkers))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, checker := range checkers {
		wg.Add(1)
		go func(checker Checker) {
			defer wg.Done()
			result := runCheck(ctx, checker)
			mu.Lock()
			results[checker.Name()] = result
			mu.Unlock()
		}(checker)
	}
	wg.Wait()

	return results
}

// Overall reduces a result set to a single status. Any unhealthy check
// makes the whole service unhealthy.
func Overall(results map[string]Result) Status {
	for _, result := range results {
		if result.Status != StatusHealthy {
			return StatusUnhealthy
		}
	}
	return StatusHealthy
}

func runCheck(ctx context.Context, checker Checker) Result {
	start := time.Now()
	resultCh := make(chan Result, 1)

	go func() {
		result := checker.Check(ctx)
		result.Duration = time.Since(start)
		resultCh <- result
	}()

	select {
	case result := <-resultCh:
		return result
	case <-ctx.Done():
		return Result{
			Status:   StatusUnhealthy,
			Message:  "check timed out",
			Error:    ErrCheckTimeout,
			Duration: time.Since(start),
		}
	}
}
