package api

import (
	"context"
	"net/http"

	"github.com/okian/hoopiq/internal/adapters/repository"
)

// StatsProvider exposes the service counters and the stored job summary.
type StatsProvider interface {
	GetStats() map[string]interface{}
	JobSummary(ctx context.Context) (repository.Summary, error)
}

// statsResponse is the /stats body. Jobs is omitted while the service is not running.
type statsResponse struct {
	Service map[string]interface{} `json:"service"`
	Jobs    *repository.Summary    `json:"jobs,omitempty"`
}

// StatsHandler handles stats requests.
type StatsHandler struct {
	statsProvider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	out := statsResponse{Service: h.statsProvider.GetStats()}
	if sum, err := h.statsProvider.JobSummary(r.Context()); err == nil {
		out.Jobs = &sum
	}
	writeJSON(w, http.StatusOK, out)
}
