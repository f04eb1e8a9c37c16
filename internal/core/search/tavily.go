package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/scoutline/scoutline/internal/core"
	"github.com/scoutline/scoutline/internal/textnorm"
)

// DefaultTavilyBaseURL is the public Tavily API endpoint.
const DefaultTavilyBaseURL = "https://api.tavily.com"

// TavilyClient calls the Tavily search API.
type TavilyClient struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

type tavilyRequest struct {
	APIKey            string `json:"api_key"`
	Query             string `json:"query"`
	MaxResults        int    `json:"max_results"`
	IncludeAnswer     bool   `json:"include_answer"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

type tavilyResponse struct {
	Answer  string         `json:"answer"`
	Results []tavilyResult `json:"results"`
}

type tavilyResult struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	Content    string `json:"content"`
	RawContent string `json:"raw_content"`
}

// Configured reports whether an API key is set.
func (c *TavilyClient) Configured() bool {
	return c != nil && strings.TrimSpace(c.APIKey) != ""
}

// Search runs query and returns sanitized results.
func (c *TavilyClient) Search(ctx context.Context, query string, maxResults int) (*core.SearchResponse, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	query, err := cleanQuery(query)
	if err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	payload, err := json.Marshal(tavilyRequest{
		APIKey:            c.APIKey,
		Query:             query,
		MaxResults:        ClampMaxResults(maxResults),
		IncludeAnswer:     true,
		IncludeRawContent: true,
	})
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var decoded tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	return decoded.toCore(), nil
}

func (r tavilyResponse) toCore() *core.SearchResponse {
	out := &core.SearchResponse{
		Answer:  strings.TrimSpace(r.Answer),
		Results: make([]core.SearchResult, 0, len(r.Results)),
	}
	for _, item := range r.Results {
		text := item.Content
		if strings.TrimSpace(text) == "" {
			text = item.RawContent
		}
		out.Results = append(out.Results, core.SearchResult{
			Title:   strings.TrimSpace(item.Title),
			URL:     strings.TrimSpace(item.URL),
			Content: textnorm.SanitizeSearchText(text, textnorm.DefaultSnippetLimit),
		})
	}
	return out
}

func (c *TavilyClient) endpoint() string {
	base := strings.TrimSpace(c.BaseURL)
	if base == "" {
		base = DefaultTavilyBaseURL
	}
	return strings.TrimRight(base, "/") + "/search"
}

func (c *TavilyClient) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}
