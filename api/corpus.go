package api

import (
	"errors"
	"net/http"

	"github.com/talentops/cv-advisor/internal/corpus"
	"github.com/talentops/cv-advisor/internal/ingest"
	"github.com/talentops/cv-advisor/internal/log"
)

// RefFunc resolves the active corpus reference.
type RefFunc func() (corpus.Ref, bool)

// CorpusHandler exposes the active corpus.
type CorpusHandler struct {
	ref      RefFunc
	pipeline *ingest.Pipeline
	logger   log.Logger
}

// NewCorpusHandler creates a new corpus handler. pipeline may be nil when
// ingestion is disabled; deletion then returns 503, while the reference stays
// readable for deployments pointed at a pre-provisioned corpus.
func NewCorpusHandler(ref RefFunc, pipeline *ingest.Pipeline, logger log.Logger) *CorpusHandler {
	return &CorpusHandler{ref: ref, pipeline: pipeline, logger: logger}
}

// RegisterRoutes registers corpus routes on the given mux.
func (h *CorpusHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/corpus", h.get)
	mux.HandleFunc("DELETE /api/corpus", h.delete)
}

// CorpusResponse describes the active corpus.
type CorpusResponse struct {
	Ref string `json:"ref"`
}

func (h *CorpusHandler) get(w http.ResponseWriter, _ *http.Request) {
	if h.ref == nil {
		writeError(w, http.StatusNotFound, "CORPUS_NOT_FOUND", "no corpus has been ingested yet")
		return
	}
	ref, ok := h.ref()
	if !ok {
		writeError(w, http.StatusNotFound, "CORPUS_NOT_FOUND", "no corpus has been ingested yet")
		return
	}
	writeJSON(w, http.StatusOK, CorpusResponse{Ref: string(ref)})
}

// delete drops the corpus index. Uploaded source documents stay in object
// storage so a later ingestion can rebuild the corpus from them.
func (h *CorpusHandler) delete(w http.ResponseWriter, r *http.Request) {
	if h.pipeline == nil {
		writeError(w, http.StatusServiceUnavailable, "INGEST_UNAVAILABLE", "ingestion is not configured")
		return
	}
	if err := h.pipeline.DeleteCorpus(r.Context()); err != nil {
		if errors.Is(err, corpus.ErrNotFound) {
			writeError(w, http.StatusNotFound, "CORPUS_NOT_FOUND", "no corpus has been ingested yet")
			return
		}
		h.logger.Error("corpus deletion failed", "error", err)
		writeError(w, http.StatusInternalServerError, "DELETE_FAILED", "failed to delete the corpus")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
