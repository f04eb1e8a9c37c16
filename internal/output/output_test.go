package output

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/scoutline/scoutline/internal/ailink/prompt"
	"github.com/scoutline/scoutline/internal/core"
)

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("table")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	format, err = ParseFormat("JSON")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, format)

	format, err = ParseFormat("md")
	require.NoError(t, err)
	require.Equal(t, FormatMarkdown, format)

	format, err = ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	_, err = ParseFormat("csv")
	require.Error(t, err)
}

func sampleResponse() *core.SearchResponse {
	return &core.SearchResponse{
		Answer: "It is sunny.",
		Results: []core.SearchResult{
			{Title: "Seoul weather", URL: "https://weather.example.com/seoul", Content: "Clear skies\nall day"},
			{Title: "Pipe | title", URL: "https://example.org", Content: ""},
		},
	}
}

func samplePlan() core.SearchPlan {
	return core.SearchPlan{
		ShouldSearch:       true,
		Mode:               core.SearchModeMulti,
		PrimaryQueries:     []string{"seoul weather today", "seoul air quality"},
		PrimaryResultCount: 4,
		Reason:             "Needs current conditions.",
	}
}

func samplePrompts() []*prompt.Prompt {
	temp := 0.2
	return []*prompt.Prompt{
		{Config: prompt.Config{Slug: "planner", Version: "1", Description: "Decide whether to search",
			Request: prompt.RequestOptions{Output: prompt.OutputJSON, MaxTokens: 260, Temperature: &temp, Timeout: 8 * time.Second},
			UserTemplate: "secret template"}},
		{Config: prompt.Config{Slug: "answer", Version: "2", Description: "Final answer",
			Request: prompt.RequestOptions{Role: "response"}}},
		nil,
	}
}

func TestTableFormatter(t *testing.T) {
	f := NewFormatter(FormatTable)

	rendered, err := f.FormatSearch("seoul weather", sampleResponse())
	require.NoError(t, err)
	require.Contains(t, rendered, "Seoul weather")
	require.Contains(t, rendered, "Clear skies all day")
	require.Contains(t, rendered, "2 results")
	require.Contains(t, rendered, "Answer: It is sunny.")

	rendered, err = f.FormatPlan("seoul weather", samplePlan())
	require.NoError(t, err)
	require.Contains(t, rendered, "multi")
	require.Contains(t, rendered, "seoul air quality")

	rendered, err = f.FormatPrompts(samplePrompts())
	require.NoError(t, err)
	require.Less(t, strings.Index(rendered, "answer"), strings.Index(rendered, "planner"))
	require.Contains(t, rendered, "response")
	require.Contains(t, rendered, "8s")
}

func TestJSONFormatter(t *testing.T) {
	f := NewFormatter(FormatJSON)

	rendered, err := f.FormatSearch("q", sampleResponse())
	require.NoError(t, err)
	require.Contains(t, rendered, `"answer": "It is sunny."`)

	rendered, err = f.FormatPlan("q", samplePlan())
	require.NoError(t, err)
	require.Contains(t, rendered, `"shouldSearch": true`)
	require.Contains(t, rendered, `"primaryResultCount": 4`)

	rendered, err = f.FormatPrompts(samplePrompts())
	require.NoError(t, err)
	require.Contains(t, rendered, `"slug": "planner"`)
	require.NotContains(t, rendered, "secret template")
}

func TestMarkdownFormatter(t *testing.T) {
	f := NewFormatter(FormatMarkdown)

	rendered, err := f.FormatSearch("q", sampleResponse())
	require.NoError(t, err)
	require.Contains(t, rendered, "1. [Seoul weather](https://weather.example.com/seoul)")
	require.Contains(t, rendered, `Pipe \| title`)
	require.Contains(t, rendered, "> It is sunny.")

	rendered, err = f.FormatPlan("q", samplePlan())
	require.NoError(t, err)
	require.Contains(t, rendered, "| query 2 | seoul air quality |")

	rendered, err = f.FormatPrompts(samplePrompts())
	require.NoError(t, err)
	require.Contains(t, rendered, "| planner | 1 | orchestrator | json |")
}

func TestSnippet(t *testing.T) {
	require.Equal(t, "a b c", snippet(" a\n b\tc ", 0))
	require.Equal(t, "abc…", snippet("abcdef", 4))
	require.Equal(t, "가나다", snippet("가나다", 3))
}

func TestTurnPrinter(t *testing.T) {
	var sb strings.Builder
	p := &TurnPrinter{W: &sb}

	require.NoError(t, p.Send(string(core.EventStatus), "searching"))
	require.NoError(t, p.Send(string(core.EventThinkingText), "Looking up the forecast."))
	require.NoError(t, p.Send(string(core.EventSearch), core.SearchRoundEntry{Round: 1, Query: "seoul weather", Results: make([]core.SearchResult, 3)}))
	require.NoError(t, p.Send(string(core.EventSearchError), core.SearchFailure{Round: 1, Query: "air", Error: "timeout"}))
	require.NoError(t, p.Send(string(core.EventContent), "Sunny "))
	require.NoError(t, p.Send(string(core.EventContent), "today."))
	require.NoError(t, p.Send(string(core.EventFollowUps), []string{"Tomorrow?"}))
	require.NoError(t, p.Done())

	out := sb.String()
	require.NotContains(t, out, "[searching]")
	require.Contains(t, out, "· Looking up the forecast.\n")
	require.Contains(t, out, "  round 1: seoul weather (3 results)\n")
	require.Contains(t, out, "  round 1 failed: air: timeout\n")
	require.Contains(t, out, "\nSunny today.\n\nFollow-up questions:\n  - Tomorrow?\n")

	sb.Reset()
	p = &TurnPrinter{W: &sb, ShowStatus: true}
	require.NoError(t, p.Send(string(core.EventStatus), "searching"))
	require.Equal(t, "[searching]\n", sb.String())
}

func TestJSONFormatterKeepsURLsReadable(t *testing.T) {
	resp := &core.SearchResponse{Results: []core.SearchResult{{Title: "Q&A", URL: "https://example.com/a?b=1&c=2"}}}

	rendered, err := (&JSONFormatter{}).FormatSearch("q", resp)
	require.NoError(t, err)
	require.Contains(t, rendered, `https://example.com/a?b=1&c=2`)
	require.NotContains(t, rendered, "\n")
}
