package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/peptiq-labs/peptiq/internal/api"
	"github.com/peptiq-labs/peptiq/internal/domain"
	"github.com/peptiq-labs/peptiq/internal/pipeline"
	"github.com/peptiq-labs/peptiq/internal/service"
)

const defaultSimilarLimit = 5

type PeptideService interface {
	Create(ctx context.Context, input service.CreateInput) (*domain.Peptide, error)
	Get(ctx context.Context, name string) (*domain.Peptide, error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]*domain.Peptide, error)
	Similar(ctx context.Context, name string, limit int) ([]domain.SimilarityResult, error)
}

type PeptideHandler struct {
	svc PeptideService
}

func NewPeptideHandler(svc PeptideService) *PeptideHandler {
	return &PeptideHandler{svc: svc}
}

type CreatePeptideRequest struct {
	Name           string   `json:"name"`
	Overview       string   `json:"overview"`
	Mechanism      string   `json:"mechanism"`
	ResearchFields []string `json:"research_fields"`
}

type PeptideResponse struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Overview       string   `json:"overview"`
	Mechanism      string   `json:"mechanism,omitempty"`
	ResearchFields []string `json:"research_fields,omitempty"`
	CreatedAt      string   `json:"created_at"`
}

type SimilarPeptideResponse struct {
	Name            string  `json:"name"`
	SimilarityScore float64 `json:"similarity_score"`
	Overview        string  `json:"overview"`
}

func peptideToResponse(p *domain.Peptide) *PeptideResponse {
	return &PeptideResponse{
		ID:             p.ID,
		Name:           p.Name,
		Overview:       p.Overview,
		Mechanism:      p.Mechanism,
		ResearchFields: p.ResearchFields,
		CreatedAt:      p.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *PeptideHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePeptideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Overview == "" {
		api.Error(w, http.StatusBadRequest, "overview is required")
		return
	}

	peptide, err := h.svc.Create(r.Context(), service.CreateInput{
		Name:           req.Name,
		Overview:       req.Overview,
		Mechanism:      req.Mechanism,
		ResearchFields: req.ResearchFields,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, peptideToResponse(peptide))
}

func (h *PeptideHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	peptide, err := h.svc.Get(r.Context(), name)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, peptideToResponse(peptide))
}

func (h *PeptideHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := h.svc.Delete(r.Context(), name); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"deleted": name})
}

func (h *PeptideHandler) List(w http.ResponseWriter, r *http.Request) {
	peptides, err := h.svc.List(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	out := make([]*PeptideResponse, 0, len(peptides))
	for _, p := range peptides {
		out = append(out, peptideToResponse(p))
	}

	api.Success(w, http.StatusOK, out)
}

func (h *PeptideHandler) Similar(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	limit := defaultSimilarLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			api.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	results, err := h.svc.Similar(r.Context(), name, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	out := make([]SimilarPeptideResponse, 0, len(results))
	for _, res := range results {
		out = append(out, SimilarPeptideResponse{
			Name:            res.Name,
			SimilarityScore: pipeline.Round6(res.Score),
			Overview:        res.Overview,
		})
	}

	api.Success(w, http.StatusOK, out)
}
