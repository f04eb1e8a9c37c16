package engine

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/scoutline/scoutline/internal/core"
	"github.com/scoutline/scoutline/internal/core/search"
	"github.com/scoutline/scoutline/internal/metrics"
)

const searchFailedMessage = "Search failed"

// roundResult holds the outcome of one query. Exactly one field is set.
type roundResult struct {
	Entry   *core.SearchRoundEntry
	Failure *core.SearchFailure
}

// runSearchRound issues every query concurrently and waits for all of them. Results come
// back in query order; a failing query never cancels its siblings.
func runSearchRound(ctx context.Context, searcher search.Searcher, round int, queries []string, maxResults int) []roundResult {
	unique := dedupeExact(queries)
	if len(unique) == 0 {
		return nil
	}

	results := make([]roundResult, len(unique))
	var g errgroup.Group
	for i, query := range unique {
		g.Go(func() error {
			resp, err := searcher.Search(ctx, query, maxResults)
			metrics.RecordSearchQuery(round, err == nil)
			if err != nil {
				msg := err.Error()
				if msg == "" {
					msg = searchFailedMessage
				}
				results[i] = roundResult{Failure: &core.SearchFailure{Round: round, Query: query, Error: msg}}
				return nil
			}

			entry := core.SearchRoundEntry{
				Round:      round,
				Query:      query,
				MaxResults: maxResults,
				Results:    []core.SearchResult{},
			}
			if resp != nil {
				entry.Answer = resp.Answer
				if resp.Results != nil {
					entry.Results = resp.Results
				}
			}
			results[i] = roundResult{Entry: &entry}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func dedupeExact(queries []string) []string {
	out := make([]string, 0, len(queries))
	seen := make(map[string]struct{}, len(queries))
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		out = append(out, q)
	}
	return out
}
