package domain

import "time"

// Tier identifies which layer of the retrieval chain answered a query.
type Tier string

const (
	TierMemory Tier = "tier1"
	TierVector Tier = "vector"
	TierRedis  Tier = "tier2"
	TierWeb    Tier = "web"
)

// SimilarityResult is an ephemeral nearest-neighbor match produced per query.
// Score is cosine similarity in [-1, 1].
type SimilarityResult struct {
	Name     string
	Score    float64
	Overview string
	FullText string
}

// Chunk is one overlapping window cut from a fetched page. It lives for a
// single pipeline invocation.
type Chunk struct {
	SourceURL string
	Title     string
	Text      string
	Offset    int
	Score     float64
}

// RankedSource is the best-scoring chunk for one source URL, the unit exposed
// to callers as a citation. BestScore is kept at full precision internally;
// serialization rounds it to 6 decimal digits.
type RankedSource struct {
	URL           string  `json:"url"`
	Title         string  `json:"title"`
	BestScore     float64 `json:"similarity_score"`
	BestChunkText string  `json:"-"`
	ContentLength int     `json:"content_length"`
}

// AnswerBundle is the opaque payload written to both cache tiers. A Tier-1 or
// Tier-2 hit returns the stored answer without re-invoking the generator.
type AnswerBundle struct {
	AnswerText           string         `json:"answer_text"`
	MatchedPeptide       string         `json:"matched_peptide,omitempty"`
	SimilarityScore      *float64       `json:"similarity_score,omitempty"`
	Sources              []RankedSource `json:"sources,omitempty"`
	Tier                 Tier           `json:"tier"`
	Uncertain            bool           `json:"uncertain,omitempty"`
	WebSearchRecommended bool           `json:"web_search_recommended,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
}

// PipelineResult is the unified outcome of one pipeline invocation.
type PipelineResult struct {
	AnswerText           string
	MatchedPeptide       string
	SimilarityScore      *float64
	Sources              []RankedSource
	ServedFromCache      bool
	Tier                 Tier
	Uncertain            bool
	WebSearchRecommended bool
}

// UsageEvent is the structured record emitted once per query to the usage
// sink. Emission is fire-and-forget; sink failures are swallowed.
type UsageEvent struct {
	ID              string
	Mode            QueryMode
	Tier            Tier
	SimilarityScore *float64
	LatencyMS       int64
	Success         bool
	CreatedAt       time.Time
}
