package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/bull/docbase/internal/corpus"
)

// HealthResponse represents the JSON response from the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Documents int    `json:"documents"`
	Chunks    int    `json:"chunks"`
	Timestamp string `json:"timestamp"`
}

// HealthChecker reports collection statistics. The corpus manager
// implements this via its Health() method.
type HealthChecker interface {
	Health(ctx context.Context) (corpus.Stats, error)
}

// NewHealthHandler creates an HTTP handler for the /health endpoint.
// It checks store connectivity and returns appropriate status codes.
func NewHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		stats, err := checker.Health(ctx)

		response := HealthResponse{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}

		w.Header().Set("Content-Type", "application/json")

		if err != nil {
			response.Status = "unhealthy"
			w.WriteHeader(http.StatusServiceUnavailable) // 503
			json.NewEncoder(w).Encode(response)
			return
		}

		response.Status = "healthy"
		response.Documents = stats.Documents
		response.Chunks = stats.Chunks
		w.WriteHeader(http.StatusOK) // 200
		json.NewEncoder(w).Encode(response)
	}
}
