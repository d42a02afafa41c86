package api

import (
	"encoding/json"
	"net/http"

	"github.com/talentops/cv-advisor/internal/log"
	"github.com/talentops/cv-advisor/internal/runner"
)

// MaxQueryLength bounds chat and search queries.
const MaxQueryLength = 10000

// defaultUserID stands in when the client does not identify its user.
const defaultUserID = "default"

// ReadyFunc reports whether a retrievable corpus is available.
type ReadyFunc func() bool

// ChatHandler handles the advisor chat endpoint.
type ChatHandler struct {
	runner *runner.Runner
	ready  ReadyFunc
	logger log.Logger
}

// NewChatHandler creates a new chat handler. ready may be nil; chat then
// always reports the corpus as unavailable.
func NewChatHandler(r *runner.Runner, ready ReadyFunc, logger log.Logger) *ChatHandler {
	return &ChatHandler{runner: r, ready: ready, logger: logger}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.chat)
}

// ChatRequest is the request body for one conversational turn.
type ChatRequest struct {
	Query     string `json:"query"`
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
}

// ChatResponse is the reply for one conversational turn.
type ChatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"sessionId"`
	Escalated bool   `json:"escalated,omitempty"`
}

// chat runs one turn. The advisor depends on the corpus, so requests are
// rejected with 409 until ingestion has produced one.
func (h *ChatHandler) chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
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
	if req.UserID == "" {
		req.UserID = defaultUserID
	}

	if h.ready == nil || !h.ready() {
		writeError(w, http.StatusConflict, "CORPUS_NOT_READY", "no corpus has been ingested yet")
		return
	}

	result, err := h.runner.Run(r.Context(), req.UserID, req.SessionID, req.Query)
	if err != nil {
		h.logger.Error("chat turn failed", "error", err, "sessionId", req.SessionID)
		writeError(w, http.StatusInternalServerError, "CHAT_FAILED", "failed to run the advisor")
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		Response:  result.Answer,
		SessionID: result.SessionID,
		Escalated: result.Escalated,
	})
}
