// Package search wraps the web search provider used to gather evidence before answering.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/scoutline/scoutline/internal/core"
	"github.com/scoutline/scoutline/internal/textnorm"
)

// ErrNotConfigured is returned when the provider has no API key.
var ErrNotConfigured = errors.New("TAVILY_API_KEY is missing")

// Searcher runs a single web search.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) (*core.SearchResponse, error)
}

// StatusError reports a non-2xx response from the provider.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Tavily API error: %d", e.StatusCode)
}

// ClampMaxResults bounds n to the range the provider accepts.
func ClampMaxResults(n int) int {
	return textnorm.ClampInt(n, core.SearchMinResults, core.SearchMaxResults)
}

// CacheKey identifies a search by its normalized query and clamped result count.
func CacheKey(query string, maxResults int) string {
	return fmt.Sprintf("%s|%d", textnorm.NormalizeForCompare(query), ClampMaxResults(maxResults))
}

// Configured reports whether s can serve searches. Searchers without a
// Configured method are assumed ready.
func Configured(s Searcher) bool {
	if s == nil {
		return false
	}
	if c, ok := s.(interface{ Configured() bool }); ok {
		return c.Configured()
	}
	return true
}

func cleanQuery(query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", errors.New("query is required")
	}
	return query, nil
}
