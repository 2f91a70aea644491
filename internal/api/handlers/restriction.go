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

// RestrictionStore persists generation restrictions.
type RestrictionStore interface {
	Create(ctx context.Context, r *domain.Restriction) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*domain.Restriction, error)
}

type RestrictionHandler struct {
	store RestrictionStore
}

func NewRestrictionHandler(store RestrictionStore) *RestrictionHandler {
	return &RestrictionHandler{store: store}
}

type CreateRestrictionRequest struct {
	Text string `json:"text"`
}

type RestrictionResponse struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

func restrictionToResponse(r *domain.Restriction) *RestrictionResponse {
	return &RestrictionResponse{
		ID:        r.ID,
		Text:      r.Text,
		CreatedAt: r.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *RestrictionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRestrictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		api.Error(w, http.StatusBadRequest, "text is required")
		return
	}

	restriction := &domain.Restriction{
		ID:        uuid.NewString(),
		Text:      strings.TrimSpace(req.Text),
		CreatedAt: time.Now().UTC(),
	}

	if err := h.store.Create(r.Context(), restriction); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, restrictionToResponse(restriction))
}

func (h *RestrictionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.store.Delete(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"deleted": id})
}

func (h *RestrictionHandler) List(w http.ResponseWriter, r *http.Request) {
	restrictions, err := h.store.List(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	out := make([]*RestrictionResponse, 0, len(restrictions))
	for _, restriction := range restrictions {
		out = append(out, restrictionToResponse(restriction))
	}

	api.Success(w, http.StatusOK, out)
}
