package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// QueryMode selects which entry path a query takes through the pipeline.
// All modes share the same cache and fallback machinery.
type QueryMode string

const (
	// QueryModeGeneral answers against the best-matching peptide system-wide.
	QueryModeGeneral QueryMode = "general"
	// QueryModeSpecific answers about one named peptide.
	QueryModeSpecific QueryMode = "specific"
	// QueryModeRecommendation lists peptides similar to a named one.
	QueryModeRecommendation QueryMode = "recommendation"
)

// Query is an immutable question posed to the pipeline. PeptideName is set
// for specific and recommendation modes and empty otherwise.
type Query struct {
	Text        string
	Mode        QueryMode
	PeptideName string
}

// NewQuery builds a validated Query.
func NewQuery(text string, mode QueryMode, peptideName string) (Query, error) {
	if strings.TrimSpace(text) == "" && mode != QueryModeRecommendation {
		return Query{}, ErrEmptyQuery
	}
	switch mode {
	case QueryModeGeneral:
	case QueryModeSpecific, QueryModeRecommendation:
		if strings.TrimSpace(peptideName) == "" {
			return Query{}, ErrMissingPeptideName
		}
	default:
		return Query{}, ErrInvalidQueryMode
	}
	return Query{Text: text, Mode: mode, PeptideName: peptideName}, nil
}

// NormalizedKey derives the deterministic cache key for this query. Two
// queries with the same normalized key are the same cache entry. The key
// folds in the mode and, when set, the target peptide name, so the same
// question about two different peptides never collides.
func (q Query) NormalizedKey() string {
	parts := []string{string(q.Mode), strings.ToLower(strings.TrimSpace(q.Text))}
	if q.PeptideName != "" {
		parts = append(parts, strings.ToLower(strings.TrimSpace(q.PeptideName)))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
