package api

import (
	"encoding/json"
	"net/http"

	"github.com/talentops/cv-advisor/internal/log"
	"github.com/talentops/cv-advisor/internal/runner"
)

// SearchHandler handles the standalone web search endpoint. Unlike chat it
// carries no session state and does not touch the corpus.
type SearchHandler struct {
	runner *runner.Runner
	graph  runner.GraphFunc
	logger log.Logger
}

// NewSearchHandler creates a new search handler. graph may be nil when the
// search agent is not configured; the endpoint then returns 503.
func NewSearchHandler(r *runner.Runner, graph runner.GraphFunc, logger log.Logger) *SearchHandler {
	return &SearchHandler{runner: r, graph: graph, logger: logger}
}

// RegisterRoutes registers search routes on the given mux.
func (h *SearchHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/search", h.search)
}

// SearchRequest is the request body for a one-shot search.
type SearchRequest struct {
	Query string `json:"query"`
}

// SearchResponse is the reply for a one-shot search.
type SearchResponse struct {
	Response  string `json:"response"`
	Escalated bool   `json:"escalated,omitempty"`
}

func (h *SearchHandler) search(w http.ResponseWriter, r *http.Request) {
	if h.graph == nil {
		writeError(w, http.StatusServiceUnavailable, "SEARCH_UNAVAILABLE", "web search is not configured")
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "MISSING_QUERY", "query is required")
		return
	}
	if len(req.Query) > MaxQueryLength {
		writeError(w, http.StatusBadRequest, "QUERY_TOO_LONG", "query exceeds the maximum length")
		return
	}

	answer, escalated, err := h.runner.RunWith(r.Context(), h.graph, nil, req.Query)
	if err != nil {
		h.logger.Error("search failed", "error", err)
		writeError(w, http.StatusInternalServerError, "SEARCH_FAILED", "failed to run the search agent")
		return
	}

	writeJSON(w, http.StatusOK, SearchResponse{Response: answer, Escalated: escalated})
}
