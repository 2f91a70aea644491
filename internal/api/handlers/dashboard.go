package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/peptiq-labs/peptiq/internal/api"
	"github.com/peptiq-labs/peptiq/internal/repository"
)

const defaultDashboardWindow = 24 * time.Hour

// UsageStatsSource aggregates recorded usage events over a time window.
type UsageStatsSource interface {
	Dashboard(ctx context.Context, since time.Time) (*repository.DashboardStats, error)
}

type DashboardHandler struct {
	usage UsageStatsSource
	now   func() time.Time
}

func NewDashboardHandler(usage UsageStatsSource) *DashboardHandler {
	return &DashboardHandler{usage: usage, now: time.Now}
}

// Get returns usage aggregates for the requested window. The window query
// parameter accepts Go duration syntax, e.g. ?window=72h.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	window := defaultDashboardWindow
	if raw := r.URL.Query().Get("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			api.Error(w, http.StatusBadRequest, "window must be a positive duration")
			return
		}
		window = parsed
	}

	stats, err := h.usage.Dashboard(r.Context(), h.now().UTC().Add(-window))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, stats)
}
