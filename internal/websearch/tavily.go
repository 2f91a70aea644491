package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/peptiq-labs/peptiq/internal/domain"
)

const (
	defaultTavilyBaseURL = "https://api.tavily.com"
	defaultMaxResults    = 10
	defaultTimeout       = 30 * time.Second
)

// TavilyClient is the production Searcher backed by the Tavily search API.
type TavilyClient struct {
	apiKey     string
	baseURL    string
	maxResults int
	httpClient *http.Client
}

type TavilyOption func(*TavilyClient)

// WithBaseURL overrides the API endpoint, used by tests.
func WithBaseURL(url string) TavilyOption {
	return func(c *TavilyClient) { c.baseURL = url }
}

// WithMaxResults overrides how many results are requested per search.
func WithMaxResults(n int) TavilyOption {
	return func(c *TavilyClient) { c.maxResults = n }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) TavilyOption {
	return func(c *TavilyClient) { c.httpClient = hc }
}

func NewTavilyClient(apiKey string, opts ...TavilyOption) *TavilyClient {
	c := &TavilyClient{
		apiKey:     apiKey,
		baseURL:    defaultTavilyBaseURL,
		maxResults: defaultMaxResults,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tavilyRequest struct {
	Query             string `json:"query"`
	MaxResults        int    `json:"max_results"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

type tavilyResponse struct {
	Results []struct {
		Title      string  `json:"title"`
		URL        string  `json:"url"`
		Content    string  `json:"content"`
		RawContent string  `json:"raw_content"`
		Score      float64 `json:"score"`
	} `json:"results"`
}

// Search queries Tavily and returns its results in provider order. Transport
// and non-2xx failures come back as transient upstream errors so the caller
// can retry once.
func (c *TavilyClient) Search(ctx context.Context, query string) ([]Page, error) {
	body, err := json.Marshal(tavilyRequest{
		Query:             query,
		MaxResults:        c.maxResults,
		IncludeRawContent: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewTransientUpstreamError("search request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, domain.NewTransientUpstreamError(
			fmt.Sprintf("search returned status %d: %s", resp.StatusCode, string(snippet)), nil)
	}

	var parsed tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, domain.NewTransientUpstreamError("failed to decode search response", err)
	}

	pages := make([]Page, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		content := r.RawContent
		if content == "" {
			content = r.Content
		}
		pages = append(pages, Page{
			URL:     r.URL,
			Title:   r.Title,
			Content: content,
			Score:   r.Score,
		})
	}
	return pages, nil
}
