package server

import (
	"net/http"
	"time"

	"github.com/normanking/pmcortex/internal/llm"
	"github.com/normanking/pmcortex/internal/router"
)

// LLMMetricsResponse is the JSON response for the LLM stats endpoint.
type LLMMetricsResponse struct {
	Timestamp string              `json:"timestamp"`
	Provider  *llm.ProviderStats  `json:"provider,omitempty"`
	Router    *router.RouterStats `json:"router,omitempty"`
}

// handleLLMMetrics returns completion call counters and classifier stats.
// GET /api/v1/metrics/llm
func (s *Server) handleLLMMetrics(w http.ResponseWriter, r *http.Request) {
	response := LLMMetricsResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if s.deps.Provider != nil {
		if stats, ok := llm.StatsOf(s.deps.Provider); ok {
			response.Provider = &stats
		}
	}
	if s.deps.Classifier != nil {
		stats := s.deps.Classifier.Stats()
		response.Router = &stats
	}

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	writeJSON(w, http.StatusOK, response)
}
