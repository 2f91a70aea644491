package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/peptiq-labs/peptiq/internal/cache"
	"github.com/peptiq-labs/peptiq/internal/domain"
	"github.com/peptiq-labs/peptiq/internal/telemetry"
	"github.com/peptiq-labs/peptiq/internal/websearch"
)

const (
	// ApologyText is the fixed degraded answer returned when the generator
	// fails after its retry.
	ApologyText = "Sorry, something went wrong while preparing your answer. Please try again in a moment."
	// NoWebContextText is the fixed answer returned when every retrieval
	// tier missed and web search produced no usable sources.
	NoWebContextText = "No web context found for this question. Try rephrasing it or ask about a specific peptide."

	recommendationLimit = 5
)

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Generator produces the final answer text from context and restrictions.
type Generator interface {
	GenerateAnswer(ctx context.Context, query domain.Query, contextText string, restrictions domain.RestrictionSet) (string, error)
}

// PeptideStoreInterface is the semantic store the vector tier reads from.
type PeptideStoreInterface interface {
	FindBest(ctx context.Context, embedding []float32) (*domain.SimilarityResult, error)
	FindByName(ctx context.Context, name string) (*domain.Peptide, error)
	FindSimilarTo(ctx context.Context, name string, limit int) ([]domain.SimilarityResult, error)
}

// RestrictionSourceInterface supplies the per-run restriction snapshot.
type RestrictionSourceInterface interface {
	ListRestrictions(ctx context.Context) ([]string, error)
}

// AllowlistSourceInterface supplies the per-run allow-list snapshot.
type AllowlistSourceInterface interface {
	ListAllowedDomains(ctx context.Context) ([]string, error)
}

// UsageSinkInterface receives one event per query. The orchestrator never
// blocks on it.
type UsageSinkInterface interface {
	Record(ctx context.Context, event domain.UsageEvent) error
}

// PageFetcherInterface fills in content for search results that arrived
// without raw text.
type PageFetcherInterface interface {
	Hydrate(ctx context.Context, pages []websearch.Page) []websearch.Page
}

// Settings is the routing and sizing configuration one pipeline run uses.
// The source is re-read per query so threshold changes apply to live traffic.
type Settings struct {
	HighThreshold   float64
	MediumThreshold float64
	LowThreshold    float64

	Tier1TTL time.Duration
	Tier2TTL time.Duration

	ChunkSize        int
	ChunkOverlap     int
	MaxChunksPerPage int
	MaxPages         int
	ConfidenceFloor  float64

	EmbedTimeout    time.Duration
	SearchTimeout   time.Duration
	GenerateTimeout time.Duration
}

// SettingsSource returns the current Settings.
type SettingsSource func() Settings

// Orchestrator runs one query through the tiered retrieval chain and returns
// a unified result. It is safe for concurrent use; the cache tiers are the
// only shared mutable state.
type Orchestrator struct {
	settings     SettingsSource
	tier1        cache.Store
	tier2        cache.Store
	embedder     Embedder
	generator    Generator
	peptides     PeptideStoreInterface
	restrictions RestrictionSourceInterface
	allowlist    AllowlistSourceInterface
	searcher     websearch.Searcher
	fetcher      PageFetcherInterface
	usage        UsageSinkInterface
}

// NewOrchestrator wires the pipeline. tier2 and usage may be nil; fetcher may
// be nil when the searcher always returns raw content.
func NewOrchestrator(
	settings SettingsSource,
	tier1, tier2 cache.Store,
	embedder Embedder,
	generator Generator,
	peptides PeptideStoreInterface,
	restrictions RestrictionSourceInterface,
	allowlist AllowlistSourceInterface,
	searcher websearch.Searcher,
	fetcher PageFetcherInterface,
	usage UsageSinkInterface,
) *Orchestrator {
	return &Orchestrator{
		settings:     settings,
		tier1:        tier1,
		tier2:        tier2,
		embedder:     embedder,
		generator:    generator,
		peptides:     peptides,
		restrictions: restrictions,
		allowlist:    allowlist,
		searcher:     searcher,
		fetcher:      fetcher,
		usage:        usage,
	}
}

// run carries the mutable state of one pipeline invocation.
type run struct {
	query          domain.Query
	key            string
	settings       Settings
	state          State
	queryEmbedding []float32

	matchedPeptide  string
	similarityScore *float64
	contextText     string
	sources         []domain.RankedSource
	uncertain       bool
	webRecommended  bool
	tier            domain.Tier
}

// Run executes the full state machine for one query. Validation errors and a
// missing peptide in recommendation or specific mode surface as domain
// errors; every upstream failure is downgraded to a fallback or a fixed
// degraded answer.
func (o *Orchestrator) Run(ctx context.Context, query domain.Query) (*domain.PipelineResult, error) {
	started := time.Now()

	r := &run{
		query:    query,
		key:      query.NormalizedKey(),
		settings: o.settings(),
		state:    StateStart,
	}

	result, err := o.advance(ctx, r)
	o.emitUsage(query, result, time.Since(started), err)
	return result, err
}

func (o *Orchestrator) advance(ctx context.Context, r *run) (*domain.PipelineResult, error) {
	r.state = StateTier1Check
	spanCtx, span := o.stageSpan(ctx, r, "tier1_check")
	result := o.checkTier(spanCtx, o.tier1, r, domain.TierMemory)
	span.End()
	if result != nil {
		r.state = StateDone
		return result, nil
	}

	r.state = StateVectorCheck
	spanCtx, span = o.stageSpan(ctx, r, "vector_check")
	found, err := o.vectorCheck(spanCtx, r)
	span.End()
	if err != nil {
		if errors.Is(err, domain.ErrPeptideNotFound) {
			r.state = StateFailed
			return nil, err
		}
		// upstream failure with no further fallback degrades, never crashes
		r.state = StateDone
		return o.degradedResult(r, ApologyText), nil
	}
	if found {
		return o.generate(ctx, r)
	}

	r.state = StateTier2Check
	if o.tier2 != nil {
		spanCtx, span = o.stageSpan(ctx, r, "tier2_check")
		result = o.checkTier(spanCtx, o.tier2, r, domain.TierRedis)
		span.End()
		if result != nil {
			// write back so the next identical query short-circuits in Tier-1
			bundle := resultBundle(result)
			if err := o.tier1.Set(ctx, r.key, bundle, r.settings.Tier1TTL); err != nil {
				log.Printf("pipeline: tier1 write-back failed: %v", err)
			}
			r.state = StateDone
			return result, nil
		}
	}

	r.state = StateWebSearch
	spanCtx, span = o.stageSpan(ctx, r, "web_search")
	ok := o.webSearch(spanCtx, r)
	span.End()
	if !ok {
		r.state = StateDone
		return o.degradedResult(r, NoWebContextText), nil
	}

	return o.generate(ctx, r)
}

// stageSpan opens a tracing span for one pipeline stage, a child of the
// request transaction when one is in the context.
func (o *Orchestrator) stageSpan(ctx context.Context, r *run, stage string) (context.Context, *telemetry.Span) {
	return telemetry.StartSpan(ctx, "pipeline."+stage, telemetry.SpanAttributes{
		QueryMode: string(r.query.Mode),
		Peptide:   r.query.PeptideName,
		Operation: stage,
	})
}

// checkTier returns the completed result on a cache hit, nil on a miss. A
// tier read error counts as a miss.
func (o *Orchestrator) checkTier(ctx context.Context, store cache.Store, r *run, tier domain.Tier) *domain.PipelineResult {
	bundle, ok, err := store.Get(ctx, r.key)
	if err != nil {
		log.Printf("pipeline: %s read failed: %v", tier, err)
		return nil
	}
	if !ok {
		return nil
	}
	return &domain.PipelineResult{
		AnswerText:           bundle.AnswerText,
		MatchedPeptide:       bundle.MatchedPeptide,
		SimilarityScore:      bundle.SimilarityScore,
		Sources:              bundle.Sources,
		ServedFromCache:      true,
		Tier:                 tier,
		Uncertain:            bundle.Uncertain,
		WebSearchRecommended: bundle.WebSearchRecommended,
	}
}

// vectorCheck consults the semantic store. It reports whether the run now has
// generation context. The only errors it returns are NotFound for the named
// modes; upstream failures degrade to a miss.
func (o *Orchestrator) vectorCheck(ctx context.Context, r *run) (bool, error) {
	switch r.query.Mode {
	case domain.QueryModeSpecific:
		return o.vectorCheckByName(ctx, r)
	case domain.QueryModeRecommendation:
		return o.vectorCheckSimilar(ctx, r)
	default:
		return o.vectorCheckBest(ctx, r)
	}
}

func (o *Orchestrator) vectorCheckBest(ctx context.Context, r *run) (bool, error) {
	embedding, err := o.embedQuery(ctx, r)
	if err != nil {
		log.Printf("pipeline: query embedding failed, skipping vector tier: %v", err)
		return false, nil
	}

	var match *domain.SimilarityResult
	err = o.withRetry(ctx, r.settings.EmbedTimeout, func(ctx context.Context) error {
		var findErr error
		match, findErr = o.peptides.FindBest(ctx, embedding)
		return findErr
	})
	if err != nil {
		log.Printf("pipeline: vector lookup failed, falling through: %v", err)
		return false, nil
	}
	if match == nil {
		return false, nil
	}

	s := r.settings
	route := RouteForScore(match.Score, s.HighThreshold, s.MediumThreshold, s.LowThreshold)
	if route == RouteMiss {
		return false, nil
	}

	score := match.Score
	r.matchedPeptide = match.Name
	r.similarityScore = &score
	r.contextText = match.FullText
	r.uncertain = route == RouteUncertain
	r.webRecommended = route == RouteWebRecommended
	r.tier = domain.TierVector
	return true, nil
}

func (o *Orchestrator) vectorCheckByName(ctx context.Context, r *run) (bool, error) {
	var peptide *domain.Peptide
	err := o.withRetry(ctx, r.settings.EmbedTimeout, func(ctx context.Context) error {
		var findErr error
		peptide, findErr = o.peptides.FindByName(ctx, r.query.PeptideName)
		return findErr
	})
	if err != nil {
		if errors.Is(err, domain.ErrPeptideNotFound) {
			// unknown name is a valid miss, the web tiers may still answer
			return false, nil
		}
		log.Printf("pipeline: name lookup failed, falling through: %v", err)
		return false, nil
	}

	r.matchedPeptide = peptide.Name
	r.contextText = peptide.FullText
	r.tier = domain.TierVector
	return true, nil
}

func (o *Orchestrator) vectorCheckSimilar(ctx context.Context, r *run) (bool, error) {
	var peptide *domain.Peptide
	err := o.withRetry(ctx, r.settings.EmbedTimeout, func(ctx context.Context) error {
		var findErr error
		peptide, findErr = o.peptides.FindByName(ctx, r.query.PeptideName)
		return findErr
	})
	if err != nil {
		if errors.Is(err, domain.ErrPeptideNotFound) {
			return false, domain.ErrPeptideNotFound
		}
		log.Printf("pipeline: reference lookup failed, falling through: %v", err)
		return false, nil
	}

	var neighbors []domain.SimilarityResult
	err = o.withRetry(ctx, r.settings.EmbedTimeout, func(ctx context.Context) error {
		var findErr error
		neighbors, findErr = o.peptides.FindSimilarTo(ctx, peptide.Name, recommendationLimit)
		return findErr
	})
	if err != nil {
		log.Printf("pipeline: similarity lookup failed, falling through: %v", err)
		return false, nil
	}
	if len(neighbors) == 0 {
		// nothing to recommend from the store, let the web tier try
		return false, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Reference peptide:\n%s\n\nSimilar peptides:\n", peptide.FullText)
	for _, n := range neighbors {
		fmt.Fprintf(&b, "\n%s\n", n.FullText)
	}

	best := neighbors[0].Score
	r.matchedPeptide = peptide.Name
	r.similarityScore = &best
	r.contextText = b.String()
	r.tier = domain.TierVector
	return true, nil
}

// webSearch runs search, allow-list filtering, hydration, chunking and
// ranking. It reports whether at least one RankedSource survived.
func (o *Orchestrator) webSearch(ctx context.Context, r *run) bool {
	hosts, err := o.allowlist.ListAllowedDomains(ctx)
	if err != nil {
		log.Printf("pipeline: allow-list load failed, blocking web tier: %v", err)
		return false
	}
	allowlist := websearch.NewAllowlist(hosts)
	if allowlist.Empty() || o.searcher == nil {
		return false
	}

	var pages []websearch.Page
	err = o.withRetry(ctx, r.settings.SearchTimeout, func(ctx context.Context) error {
		var searchErr error
		pages, searchErr = o.searcher.Search(ctx, o.searchQuery(r.query))
		return searchErr
	})
	if err != nil {
		log.Printf("pipeline: web search failed: %v", err)
		return false
	}

	// hosts outside the allow-list are dropped before any fetch happens
	pages = allowlist.Filter(pages)
	if len(pages) > r.settings.MaxPages {
		pages = pages[:r.settings.MaxPages]
	}
	if o.fetcher != nil {
		pages = o.fetcher.Hydrate(ctx, pages)
	}

	chunks := ChunkPages(pages, r.settings.ChunkSize, r.settings.ChunkOverlap, r.settings.MaxChunksPerPage, r.settings.MaxPages)
	if len(chunks) == 0 {
		return false
	}

	embedding, err := o.embedQuery(ctx, r)
	if err != nil {
		log.Printf("pipeline: query embedding failed, dropping web tier: %v", err)
		return false
	}

	scored := ScoreChunks(ctx, o.embedder, embedding, chunks)
	sources := RankSources(scored, r.settings.ConfidenceFloor)
	if len(sources) == 0 {
		return false
	}

	var b strings.Builder
	for _, src := range sources {
		fmt.Fprintf(&b, "Source: %s\n%s\n\n", src.URL, src.BestChunkText)
	}

	r.sources = sources
	r.contextText = strings.TrimRight(b.String(), "\n")
	r.tier = domain.TierWeb
	return true
}

// generate invokes the answer generator with the run's context and the
// current restriction snapshot, then writes the bundle back to both tiers.
func (o *Orchestrator) generate(ctx context.Context, r *run) (*domain.PipelineResult, error) {
	r.state = StateGenerate
	spanCtx, span := o.stageSpan(ctx, r, "generate")
	defer span.End()

	restrictions := o.loadRestrictions(spanCtx)

	var answer string
	err := o.withRetry(spanCtx, r.settings.GenerateTimeout, func(ctx context.Context) error {
		var genErr error
		answer, genErr = o.generator.GenerateAnswer(ctx, r.query, r.contextText, restrictions)
		return genErr
	})
	if err != nil {
		log.Printf("pipeline: answer generation failed: %v", err)
		r.state = StateDone
		return o.degradedResult(r, ApologyText), nil
	}

	result := &domain.PipelineResult{
		AnswerText:           answer,
		MatchedPeptide:       r.matchedPeptide,
		SimilarityScore:      r.similarityScore,
		Sources:              r.sources,
		Tier:                 r.tier,
		Uncertain:            r.uncertain,
		WebSearchRecommended: r.webRecommended,
	}

	o.writeBack(ctx, r, result)
	r.state = StateDone
	return result, nil
}

func (o *Orchestrator) writeBack(ctx context.Context, r *run, result *domain.PipelineResult) {
	bundle := resultBundle(result)
	if err := o.tier1.Set(ctx, r.key, bundle, r.settings.Tier1TTL); err != nil {
		log.Printf("pipeline: tier1 write failed: %v", err)
	}
	if o.tier2 == nil {
		return
	}
	if err := o.tier2.Set(ctx, r.key, bundle, r.settings.Tier2TTL); err != nil {
		log.Printf("pipeline: tier2 write failed: %v", err)
	}
}

// degradedResult finishes the run with a fixed message. Degraded answers are
// never cached, a later identical query should get a real attempt.
func (o *Orchestrator) degradedResult(r *run, text string) *domain.PipelineResult {
	tier := r.tier
	if tier == "" {
		tier = domain.TierWeb
	}
	return &domain.PipelineResult{
		AnswerText:           text,
		MatchedPeptide:       r.matchedPeptide,
		SimilarityScore:      r.similarityScore,
		Sources:              []domain.RankedSource{},
		Tier:                 tier,
		Uncertain:            r.uncertain,
		WebSearchRecommended: r.webRecommended,
	}
}

func (o *Orchestrator) loadRestrictions(ctx context.Context) domain.RestrictionSet {
	statements, err := o.restrictions.ListRestrictions(ctx)
	if err != nil {
		log.Printf("pipeline: restriction load failed, generating without restrictions: %v", err)
		return domain.NewRestrictionSet(nil)
	}
	return domain.NewRestrictionSet(statements)
}

// embedQuery embeds the query text once per run and memoizes the vector.
func (o *Orchestrator) embedQuery(ctx context.Context, r *run) ([]float32, error) {
	if r.queryEmbedding != nil {
		return r.queryEmbedding, nil
	}

	text := strings.TrimSpace(r.query.Text)
	if r.query.PeptideName != "" {
		text = strings.TrimSpace(r.query.PeptideName + " " + text)
	}

	var embedding []float32
	err := o.withRetry(ctx, r.settings.EmbedTimeout, func(ctx context.Context) error {
		var embedErr error
		embedding, embedErr = o.embedder.GenerateEmbedding(ctx, text)
		return embedErr
	})
	if err != nil {
		return nil, err
	}
	r.queryEmbedding = embedding
	return embedding, nil
}

func (o *Orchestrator) searchQuery(query domain.Query) string {
	if query.PeptideName != "" {
		return strings.TrimSpace(query.PeptideName + " peptide " + query.Text)
	}
	return query.Text
}

// withRetry runs fn under the stage timeout and retries exactly once when the
// failure is transient. NotFound and validation errors are never retried.
func (o *Orchestrator) withRetry(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	attempt := func() error {
		stageCtx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			stageCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		return fn(stageCtx)
	}

	err := attempt()
	if err == nil || !isTransient(err) {
		return err
	}
	if ctx.Err() != nil {
		return err
	}
	return attempt()
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == domain.ErrCodeTransientUpstream
	}
	return false
}

func (o *Orchestrator) emitUsage(query domain.Query, result *domain.PipelineResult, latency time.Duration, runErr error) {
	if o.usage == nil {
		return
	}

	event := domain.UsageEvent{
		ID:        uuid.NewString(),
		Mode:      query.Mode,
		LatencyMS: latency.Milliseconds(),
		Success:   runErr == nil,
		CreatedAt: time.Now().UTC(),
	}
	if result != nil {
		event.Tier = result.Tier
		event.SimilarityScore = result.SimilarityScore
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := o.usage.Record(ctx, event); err != nil {
			log.Printf("pipeline: usage event dropped: %v", err)
		}
	}()
}

func resultBundle(result *domain.PipelineResult) *domain.AnswerBundle {
	return &domain.AnswerBundle{
		AnswerText:           result.AnswerText,
		MatchedPeptide:       result.MatchedPeptide,
		SimilarityScore:      result.SimilarityScore,
		Sources:              result.Sources,
		Tier:                 result.Tier,
		Uncertain:            result.Uncertain,
		WebSearchRecommended: result.WebSearchRecommended,
		CreatedAt:            time.Now().UTC(),
	}
}
