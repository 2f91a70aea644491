package websearch

import "context"

// Page is one fetched web document with its provider relevance score.
// Content is the raw page text when the provider returned it, otherwise empty
// until the fallback fetcher fills it in.
type Page struct {
	URL     string
	Title   string
	Content string
	Score   float64
}

// Searcher performs a web search and returns candidate pages, most relevant
// first.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Page, error)
}
