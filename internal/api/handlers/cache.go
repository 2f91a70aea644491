package handlers

import (
	"net/http"

	"github.com/peptiq-labs/peptiq/internal/api"
	"github.com/peptiq-labs/peptiq/internal/cache"
)

type CacheHandler struct {
	tier1 cache.Store
	tier2 cache.Store
}

// NewCacheHandler creates the cache admin handler. tier2 may be nil when no
// Redis tier is configured.
func NewCacheHandler(tier1, tier2 cache.Store) *CacheHandler {
	return &CacheHandler{tier1: tier1, tier2: tier2}
}

type CacheStatsResponse struct {
	Tier1 *cache.Stats `json:"tier1"`
	Tier2 *cache.Stats `json:"tier2,omitempty"`
}

func (h *CacheHandler) Stats(w http.ResponseWriter, r *http.Request) {
	tier1Stats, err := h.tier1.Stats(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	out := CacheStatsResponse{Tier1: &tier1Stats}

	if h.tier2 != nil {
		tier2Stats, err := h.tier2.Stats(r.Context())
		if err != nil {
			api.HandleError(w, err)
			return
		}
		out.Tier2 = &tier2Stats
	}

	api.Success(w, http.StatusOK, out)
}

func (h *CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.tier1.Clear(r.Context()); err != nil {
		api.HandleError(w, err)
		return
	}

	if h.tier2 != nil {
		if err := h.tier2.Clear(r.Context()); err != nil {
			api.HandleError(w, err)
			return
		}
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "cleared"})
}
