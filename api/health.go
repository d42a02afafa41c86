package api

import (
	"net/http"

	"github.com/talentops/cv-advisor/internal/log"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	ready  ReadyFunc
	logger log.Logger
}

// NewHealthHandler creates a new health handler. ready may be nil; readiness
// then always reports unavailable.
func NewHealthHandler(ready ReadyFunc, logger log.Logger) *HealthHandler {
	return &HealthHandler{ready: ready, logger: logger}
}

// RegisterRoutes registers health routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.liveness)
	mux.HandleFunc("GET /ready", h.readiness)
}

// liveness returns 200 OK if the process is alive.
func (h *HealthHandler) liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readiness reports whether the advisor can answer corpus-backed questions.
// It returns 503 until a corpus is available.
func (h *HealthHandler) readiness(w http.ResponseWriter, _ *http.Request) {
	if h.ready == nil || !h.ready() {
		http.Error(w, "corpus not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
