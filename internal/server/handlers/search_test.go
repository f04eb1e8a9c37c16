package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scoutline/scoutline/internal/core"
	"github.com/scoutline/scoutline/internal/core/search"
	apperrors "github.com/scoutline/scoutline/internal/errors"
)

type stubSearcher struct {
	configured bool
	resp       *core.SearchResponse
	err        error

	query string
	max   int
}

func (s *stubSearcher) Configured() bool { return s.configured }

func (s *stubSearcher) Search(ctx context.Context, query string, maxResults int) (*core.SearchResponse, error) {
	s.query = query
	s.max = maxResults
	return s.resp, s.err
}

func postSearch(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp apperrors.MessageResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp.Error
}

func TestSearchHandlerReturnsProviderResponse(t *testing.T) {
	searcher := &stubSearcher{
		configured: true,
		resp: &core.SearchResponse{
			Answer:  "Go 1.25 is current.",
			Results: []core.SearchResult{{Title: "Go", URL: "https://go.dev", Content: "release notes"}},
		},
	}
	rec := postSearch(t, &SearchHandler{Searcher: searcher}, `{"query":"  go release  ","maxResults":3}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "go release", searcher.query)
	require.Equal(t, 3, searcher.max)

	var resp core.SearchResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, *searcher.resp, resp)
}

func TestSearchHandlerDefaultsMaxResults(t *testing.T) {
	searcher := &stubSearcher{configured: true, resp: &core.SearchResponse{}}
	rec := postSearch(t, &SearchHandler{Searcher: searcher}, `{"query":"weather"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, core.FollowupDefaultResult, searcher.max)
	require.JSONEq(t, `{"answer":"","results":[]}`, rec.Body.String())
}

func TestSearchHandlerErrors(t *testing.T) {
	t.Run("EmptyQuery", func(t *testing.T) {
		rec := postSearch(t, &SearchHandler{Searcher: &stubSearcher{configured: true}}, `{"query":""}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "query is required", decodeMessage(t, rec))
	})

	t.Run("OutOfRangeMaxResults", func(t *testing.T) {
		rec := postSearch(t, &SearchHandler{Searcher: &stubSearcher{configured: true}}, `{"query":"x","maxResults":0}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "maxResults is out of range", decodeMessage(t, rec))
	})

	t.Run("MissingKey", func(t *testing.T) {
		rec := postSearch(t, &SearchHandler{Searcher: &stubSearcher{}}, `{"query":"x"}`)
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.Equal(t, "TAVILY_API_KEY is missing", decodeMessage(t, rec))
	})

	t.Run("NilSearcher", func(t *testing.T) {
		rec := postSearch(t, &SearchHandler{}, `{"query":"x"}`)
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.Equal(t, "TAVILY_API_KEY is missing", decodeMessage(t, rec))
	})

	t.Run("ProviderFailure", func(t *testing.T) {
		searcher := &stubSearcher{configured: true, err: &search.StatusError{StatusCode: 502, Body: "bad gateway"}}
		rec := postSearch(t, &SearchHandler{Searcher: searcher}, `{"query":"x"}`)
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.Equal(t, "Tavily API error: 502", decodeMessage(t, rec))
	})

	t.Run("TransportFailure", func(t *testing.T) {
		searcher := &stubSearcher{configured: true, err: errors.New("dial tcp: refused")}
		rec := postSearch(t, &SearchHandler{Searcher: searcher}, `{"query":"x"}`)
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.Equal(t, "dial tcp: refused", decodeMessage(t, rec))
	})
}
