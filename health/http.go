package health

import (
	"encoding/json"
	"net/http"
	"time"
)

// LivenessHandler reports that the process is running.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// ReadinessHandler runs all registered checks and reports pass/fail.
func ReadinessHandler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results := reg.CheckAll(r.Context())

		w.Header().Set("Content-Type", "text/plain")
		if Overall(results) == StatusHealthy {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("OK"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("UNHEALTHY"))
	}
}

// healthResponse is the JSON body of the detailed health endpoint.
type healthResponse struct {
	Status    string                   `json:"status"`
	Timestamp string                   `json:"timestamp"`
	Checks    map[string]checkResponse `json:"checks,omitempty"`
}

type checkResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	Duration string `json:"duration,omitempty"`
	Error    string `json:"error,omitempty"`
}

// DetailedHandler reports per-check results as JSON.
func DetailedHandler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results := reg.CheckAll(r.Context())
		status := Overall(results)

		response := healthResponse{
			Status:    status.String(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks:    make(map[string]checkResponse, len(results)),
		}
		for name, result := range results {
			check := checkResponse{
				Status:   result.Status.String(),
				Message:  result.Message,
				Duration: result.Duration.String(),
			}
			if result.Error != nil {
				check.Error = result.Error.Error()
			}
			response.Checks[name] = check
		}

		w.Header().Set("Content-Type", "application/json")
		if status == StatusHealthy {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(response)
	}
}

// RegisterHandlers mounts the probe endpoints on mux.
func RegisterHandlers(mux *http.ServeMux, reg *Registry) {
	mux.HandleFunc("/healthz", LivenessHandler())
	mux.HandleFunc("/readyz", ReadinessHandler(reg))
	mux.HandleFunc("/health", DetailedHandler(reg))
}
