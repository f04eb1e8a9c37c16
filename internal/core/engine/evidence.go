package engine

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/scoutline/scoutline/internal/core"
	"github.com/scoutline/scoutline/internal/textnorm"
)

const (
	evidenceResultsPerEntry = 5
	digestResultsPerEntry   = 3
	digestSnippetLength     = 150
)

// BuildEvidence renders every search entry into the context block given to the answer
// model. It returns "" when there is no evidence.
func BuildEvidence(entries []core.SearchRoundEntry) string {
	if len(entries) == 0 {
		return ""
	}

	blocks := make([]string, 0, len(entries))
	for i, entry := range entries {
		results := entry.Results
		if len(results) > evidenceResultsPerEntry {
			results = results[:evidenceResultsPerEntry]
		}
		lines := make([]string, 0, len(results))
		for j, r := range results {
			lines = append(lines, fmt.Sprintf("%d. %s\nURL: %s\nSnippet: %s", j+1, r.Title, r.URL, r.Content))
		}
		body := strings.Join(lines, "\n\n")
		if body == "" {
			body = "(no results)"
		}

		blocks = append(blocks, strings.Join([]string{
			fmt.Sprintf("Search block %d", i+1),
			fmt.Sprintf("Round: %d", entry.Round),
			"Query: " + entry.Query,
			"Tavily answer: " + orNone(entry.Answer),
			body,
		}, "\n"))
	}
	return strings.Join(blocks, "\n\n----\n\n")
}

// decisionDigest summarizes round-one entries for the completeness check.
func decisionDigest(entries []core.SearchRoundEntry) string {
	parts := make([]string, 0, len(entries))
	for i, entry := range entries {
		results := entry.Results
		if len(results) > digestResultsPerEntry {
			results = results[:digestResultsPerEntry]
		}
		top := make([]string, 0, len(results))
		for j, r := range results {
			top = append(top, fmt.Sprintf("%d. %s :: %s", j+1, r.Title, textnorm.Truncate(r.Content, digestSnippetLength)))
		}
		topText := strings.Join(top, "\n")
		if topText == "" {
			topText = "(no results)"
		}
		parts = append(parts, strings.Join([]string{
			fmt.Sprintf("[Primary #%d] query=%s", i+1, entry.Query),
			"answer=" + orNone(entry.Answer),
			topText,
		}, "\n"))
	}
	return strings.Join(parts, "\n\n")
}

// TopDomains lists up to max distinct hostnames in result order, skipping unparsable URLs.
func TopDomains(entries []core.SearchRoundEntry, max int) []string {
	domains := make([]string, 0, max)
	seen := make(map[string]struct{})
	for _, entry := range entries {
		for _, r := range entry.Results {
			if len(domains) >= max {
				return domains
			}
			parsed, err := url.Parse(r.URL)
			if err != nil || parsed.Hostname() == "" {
				continue
			}
			host := parsed.Hostname()
			if _, dup := seen[host]; dup {
				continue
			}
			seen[host] = struct{}{}
			domains = append(domains, host)
		}
	}
	return domains
}

// conversationHistory keeps the user and assistant turns forwarded to the answer model.
func conversationHistory(messages []core.ChatMessage) []core.ChatMessage {
	out := make([]core.ChatMessage, 0, len(messages))
	for _, m := range messages {
		if m.Role == core.RoleUser || m.Role == core.RoleAssistant {
			out = append(out, m)
		}
	}
	return out
}

// plannerHistory renders the last six user and assistant turns as brief planner context.
func plannerHistory(messages []core.ChatMessage) string {
	recent := conversationHistory(messages)
	if len(recent) > 6 {
		recent = recent[len(recent)-6:]
	}
	lines := make([]string, 0, len(recent))
	for _, m := range recent {
		lines = append(lines, m.Role+": "+textnorm.Truncate(m.Content, 300))
	}
	return strings.Join(lines, "\n")
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
