package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/peptiq-labs/peptiq/internal/api"
	"github.com/peptiq-labs/peptiq/internal/domain"
	"github.com/peptiq-labs/peptiq/internal/pipeline"
)

// Pipeline runs one query through the tiered retrieval chain.
type Pipeline interface {
	Run(ctx context.Context, query domain.Query) (*domain.PipelineResult, error)
}

type AskHandler struct {
	pipeline Pipeline
}

func NewAskHandler(p Pipeline) *AskHandler {
	return &AskHandler{pipeline: p}
}

type AskRequest struct {
	Question string `json:"question"`
}

type SourceResponse struct {
	URL             string  `json:"url"`
	Title           string  `json:"title"`
	SimilarityScore float64 `json:"similarity_score"`
	ContentLength   int     `json:"content_length"`
}

type AskResponse struct {
	Answer               string           `json:"answer"`
	MatchedPeptide       string           `json:"matched_peptide,omitempty"`
	SimilarityScore      *float64         `json:"similarity_score,omitempty"`
	Sources              []SourceResponse `json:"sources,omitempty"`
	ServedFromCache      bool             `json:"served_from_cache"`
	Tier                 string           `json:"tier"`
	Uncertain            bool             `json:"uncertain"`
	WebSearchRecommended bool             `json:"web_search_recommended"`
}

func resultToResponse(res *domain.PipelineResult) *AskResponse {
	out := &AskResponse{
		Answer:               res.AnswerText,
		MatchedPeptide:       res.MatchedPeptide,
		ServedFromCache:      res.ServedFromCache,
		Tier:                 string(res.Tier),
		Uncertain:            res.Uncertain,
		WebSearchRecommended: res.WebSearchRecommended,
	}

	if res.SimilarityScore != nil {
		rounded := pipeline.Round6(*res.SimilarityScore)
		out.SimilarityScore = &rounded
	}

	for _, src := range res.Sources {
		out.Sources = append(out.Sources, SourceResponse{
			URL:             src.URL,
			Title:           src.Title,
			SimilarityScore: pipeline.Round6(src.BestScore),
			ContentLength:   src.ContentLength,
		})
	}

	return out
}

func (h *AskHandler) run(w http.ResponseWriter, r *http.Request, query domain.Query) {
	result, err := h.pipeline.Run(r.Context(), query)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, resultToResponse(result))
}

// Ask answers a free-form question against the whole store.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	query, err := domain.NewQuery(req.Question, domain.QueryModeGeneral, "")
	if err != nil {
		api.HandleError(w, err)
		return
	}

	h.run(w, r, query)
}

// AskAbout answers a question scoped to one named peptide.
func (h *AskHandler) AskAbout(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	query, err := domain.NewQuery(req.Question, domain.QueryModeSpecific, name)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	h.run(w, r, query)
}

// Recommend lists peptides similar to the named one, with generated prose.
func (h *AskHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	query, err := domain.NewQuery(r.URL.Query().Get("question"), domain.QueryModeRecommendation, name)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	h.run(w, r, query)
}
