package core

// SearchResult is one sanitized hit returned by the search provider.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// SearchResponse is the provider's answer for a single query.
type SearchResponse struct {
	Answer  string         `json:"answer"`
	Results []SearchResult `json:"results"`
}

// SearchRoundEntry is the outcome of one successful query within a search round.
type SearchRoundEntry struct {
	Round      int            `json:"round"`
	Query      string         `json:"query"`
	MaxResults int            `json:"maxResults"`
	Answer     string         `json:"answer"`
	Results    []SearchResult `json:"results"`
}

// SearchFailure reports a query that produced no entry.
type SearchFailure struct {
	Round int    `json:"round"`
	Query string `json:"query"`
	Error string `json:"error"`
}

// SourceCount sums the results across entries.
func SourceCount(entries []SearchRoundEntry) int {
	total := 0
	for _, entry := range entries {
		total += len(entry.Results)
	}
	return total
}
