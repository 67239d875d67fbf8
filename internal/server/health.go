// Package server implements health check handlers.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// PipelineHealth tracks component readiness for the ingestion pipeline.
// Components report their state as they come up and shut down; the
// process is live as long as it runs and ready only once both the
// consumer and the sink are up.
type PipelineHealth struct {
	mu            sync.RWMutex
	consumerReady bool
	sinkReady     bool
}

// NewPipelineHealth creates a pipeline health tracker.
func NewPipelineHealth() *PipelineHealth {
	return &PipelineHealth{}
}

// SetConsumerReady records consumer readiness.
func (h *PipelineHealth) SetConsumerReady(ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.consumerReady = ready
}

// SetSinkReady records sink readiness.
func (h *PipelineHealth) SetSinkReady(ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sinkReady = ready
}

// Liveness reports process liveness.
func (h *PipelineHealth) Liveness() bool {
	return true
}

// Readiness reports whether the pipeline can process batches.
func (h *PipelineHealth) Readiness(ctx context.Context) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.consumerReady && h.sinkReady
}

// GetStatus returns per-component status strings.
func (h *PipelineHealth) GetStatus() map[string]string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return map[string]string{
		"consumer": statusString(h.consumerReady),
		"sink":     statusString(h.sinkReady),
	}
}

func statusString(ready bool) string {
	if ready {
		return "up"
	}
	return "down"
}

// LivenessHandler returns a handler for Kubernetes liveness probes.
// Liveness probes should only fail if the process needs to be restarted.
func LivenessHandler(checker HealthChecker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "alive"
		statusCode := http.StatusOK

		if !checker.Liveness() {
			status = "not alive"
			statusCode = http.StatusServiceUnavailable
		}

		response := HealthResponse{
			Status:    status,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)

		if err := json.NewEncoder(w).Encode(response); err != nil {
			logger.Error("failed to encode liveness response", "error", err)
		}
	}
}

// ReadinessHandler returns a handler for Kubernetes readiness probes.
// Readiness probes indicate if the application can handle traffic.
func ReadinessHandler(checker HealthChecker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ready"
		statusCode := http.StatusOK

		if !checker.Readiness(r.Context()) {
			status = "not ready"
			statusCode = http.StatusServiceUnavailable
		}

		response := HealthResponse{
			Status:    status,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks:    checker.GetStatus(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)

		if err := json.NewEncoder(w).Encode(response); err != nil {
			logger.Error("failed to encode readiness response", "error", err)
		}
	}
}
