package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/talentops/cv-advisor/internal/log"
	"github.com/talentops/cv-advisor/internal/session"
)

// SessionHandler handles session-related HTTP endpoints.
type SessionHandler struct {
	store  *session.Store
	logger log.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(store *session.Store, logger log.Logger) *SessionHandler {
	return &SessionHandler{store: store, logger: logger}
}

// RegisterRoutes registers session routes on the given mux.
func (h *SessionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/sessions", h.list)
	mux.HandleFunc("POST /api/sessions", h.create)
	mux.HandleFunc("GET /api/sessions/{id}", h.get)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.delete)
}

// SessionSummary is the list representation of a session.
type SessionSummary struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Turns     int       `json:"turns"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SessionDetail adds the transcript to the summary.
type SessionDetail struct {
	SessionSummary
	History []MessageView `json:"history"`
}

// MessageView is one transcript entry.
type MessageView struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

func summarize(s *session.Session) SessionSummary {
	return SessionSummary{
		ID:        s.ID,
		UserID:    s.UserID,
		Turns:     len(s.History) / 2,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func userID(r *http.Request) string {
	if id := r.URL.Query().Get("userId"); id != "" {
		return id
	}
	return defaultUserID
}

// list returns all sessions of one user.
func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	sessions := h.store.List(userID(r))

	out := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, summarize(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": out,
		"total":    len(out),
	})
}

// CreateSessionRequest is the request body for creating a session.
type CreateSessionRequest struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
}

// create creates a new session. An empty sessionId gets a generated one.
func (h *SessionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}
	if req.UserID == "" {
		req.UserID = defaultUserID
	}

	sess := h.store.Create(req.UserID, req.SessionID)
	writeJSON(w, http.StatusCreated, summarize(sess))
}

// get returns one session with its transcript.
func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request) {
	sess, err := h.store.Get(userID(r), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "session does not exist")
			return
		}
		h.logger.Error("failed to fetch session", "error", err)
		writeError(w, http.StatusInternalServerError, "SESSION_FETCH_FAILED", "failed to fetch session")
		return
	}

	detail := SessionDetail{SessionSummary: summarize(sess)}
	for _, m := range sess.History {
		detail.History = append(detail.History, MessageView{Role: m.Role, Text: m.Text})
	}
	writeJSON(w, http.StatusOK, detail)
}

// delete removes one session.
func (h *SessionHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(userID(r), r.PathValue("id")); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "session does not exist")
			return
		}
		h.logger.Error("failed to delete session", "error", err)
		writeError(w, http.StatusInternalServerError, "SESSION_DELETE_FAILED", "failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
