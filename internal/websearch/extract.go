package websearch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

const maxPageBytes = 2 << 20

var multiWhitespace = regexp.MustCompile(`\s+`)

// ExtractText strips markup from an HTML document and returns its visible
// text with whitespace collapsed. Script, style and head content is dropped.
func ExtractText(htmlSource string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(htmlSource))

	var (
		b    strings.Builder
		skip int
	)
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(multiWhitespace.ReplaceAllString(b.String(), " "))
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if skippedTag(string(name)) {
				skip++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if skippedTag(string(name)) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(tokenizer.Text())
				b.WriteByte(' ')
			}
		}
	}
}

func skippedTag(name string) bool {
	switch name {
	case "script", "style", "noscript", "head", "svg", "iframe":
		return true
	}
	return false
}

// PageFetcher fills in page content for results the search provider returned
// without raw text.
type PageFetcher struct {
	httpClient *http.Client
}

func NewPageFetcher(hc *http.Client) *PageFetcher {
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &PageFetcher{httpClient: hc}
}

// Fetch downloads the page and returns its extracted text. Only text/html
// responses are extracted; anything else is returned raw.
func (f *PageFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build page request: %w", err)
	}
	req.Header.Set("User-Agent", "peptiq/1.0")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read page body: %w", err)
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		return ExtractText(string(body)), nil
	}
	return strings.TrimSpace(string(body)), nil
}

// Hydrate fills empty page contents via the fetcher. Pages that fail to fetch
// keep empty content; the chunker drops them later.
func (f *PageFetcher) Hydrate(ctx context.Context, pages []Page) []Page {
	out := make([]Page, len(pages))
	copy(out, pages)
	for i := range out {
		if out[i].Content != "" {
			continue
		}
		text, err := f.Fetch(ctx, out[i].URL)
		if err != nil {
			continue
		}
		out[i].Content = text
	}
	return out
}
