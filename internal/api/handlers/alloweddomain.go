package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/peptiq-labs/peptiq/internal/api"
	"github.com/peptiq-labs/peptiq/internal/domain"
)

// AllowedDomainStore persists the web-search allowlist.
type AllowedDomainStore interface {
	Create(ctx context.Context, d *domain.AllowedDomain) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*domain.AllowedDomain, error)
}

type AllowedDomainHandler struct {
	store AllowedDomainStore
}

func NewAllowedDomainHandler(store AllowedDomainStore) *AllowedDomainHandler {
	return &AllowedDomainHandler{store: store}
}

type CreateAllowedDomainRequest struct {
	Host string `json:"host"`
}

type AllowedDomainResponse struct {
	ID        string `json:"id"`
	Host      string `json:"host"`
	CreatedAt string `json:"created_at"`
}

func allowedDomainToResponse(d *domain.AllowedDomain) *AllowedDomainResponse {
	return &AllowedDomainResponse{
		ID:        d.ID,
		Host:      d.Host,
		CreatedAt: d.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *AllowedDomainHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAllowedDomainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	host := strings.TrimSpace(req.Host)
	if host == "" {
		api.Error(w, http.StatusBadRequest, "host is required")
		return
	}

	allowed := &domain.AllowedDomain{
		ID:        uuid.NewString(),
		Host:      host,
		CreatedAt: time.Now().UTC(),
	}

	if err := h.store.Create(r.Context(), allowed); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, allowedDomainToResponse(allowed))
}

func (h *AllowedDomainHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.store.Delete(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"deleted": id})
}

func (h *AllowedDomainHandler) List(w http.ResponseWriter, r *http.Request) {
	domains, err := h.store.List(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	out := make([]*AllowedDomainResponse, 0, len(domains))
	for _, d := range domains {
		out = append(out, allowedDomainToResponse(d))
	}

	api.Success(w, http.StatusOK, out)
}
