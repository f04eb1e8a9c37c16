package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/scoutline/scoutline/internal/core"
	"github.com/scoutline/scoutline/internal/core/search"
	"github.com/scoutline/scoutline/internal/server/middleware"
)

type searchRequest struct {
	Query      string `json:"query"`
	MaxResults *int   `json:"maxResults" validate:"omitempty,gte=1,lte=100"`
}

// SearchHandler serves POST /api/search, a single pass-through provider query.
type SearchHandler struct {
	Searcher search.Searcher
	Logger   *logging.Logger
}

// ServeHTTP runs the query and returns the sanitized provider response.
func (h *SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondBadRequest(w, r, err.Error())
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		respondBadRequest(w, r, "query is required")
		return
	}
	if err := apiValidate.Struct(&req); err != nil {
		respondValidation(w, r, err)
		return
	}
	if !search.Configured(h.Searcher) {
		respondInternal(w, r, search.ErrNotConfigured.Error())
		return
	}

	maxResults := core.FollowupDefaultResult
	if req.MaxResults != nil {
		maxResults = *req.MaxResults
	}

	resp, err := h.Searcher.Search(r.Context(), query, maxResults)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("Search request failed",
				zap.String("request_id", middleware.GetRequestID(r.Context())),
				zap.String("query", query),
				zap.Error(err))
		}
		if errors.Is(err, search.ErrNotConfigured) {
			respondInternal(w, r, search.ErrNotConfigured.Error())
			return
		}
		respondInternal(w, r, err.Error())
		return
	}
	if resp.Results == nil {
		resp.Results = []core.SearchResult{}
	}
	writeJSON(w, http.StatusOK, resp)
}
