package api

import (
	"errors"
	"net/http"

	"github.com/talentops/cv-advisor/internal/ingest"
	"github.com/talentops/cv-advisor/internal/log"
)

// maxUploadMemory bounds the in-memory portion of multipart parsing; larger
// parts spill to temporary files.
const maxUploadMemory = 32 << 20

// uploadFieldName is the multipart form field carrying the documents.
const uploadFieldName = "files"

// IndexHandler handles document ingestion.
type IndexHandler struct {
	pipeline *ingest.Pipeline
	logger   log.Logger
}

// NewIndexHandler creates a new index handler. pipeline may be nil when
// ingestion is disabled; the endpoint then returns 503.
func NewIndexHandler(pipeline *ingest.Pipeline, logger log.Logger) *IndexHandler {
	return &IndexHandler{pipeline: pipeline, logger: logger}
}

// RegisterRoutes registers ingestion routes on the given mux.
func (h *IndexHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/index", h.index)
}

// IndexResponse summarizes one ingestion run.
type IndexResponse struct {
	CorpusRef string   `json:"corpusRef"`
	Uploaded  []string `json:"uploaded"`
	Imported  int      `json:"imported"`
	Failed    int      `json:"failed"`
}

// index ingests a multipart batch of CV documents under the "files" field.
func (h *IndexHandler) index(w http.ResponseWriter, r *http.Request) {
	if h.pipeline == nil {
		writeError(w, http.StatusServiceUnavailable, "INGEST_UNAVAILABLE", "ingestion is not configured")
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "expected a multipart form upload")
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			h.logger.Warn("failed to clean up multipart temp files", "error", err)
		}
	}()

	headers := r.MultipartForm.File[uploadFieldName]
	files := make([]ingest.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "unreadable file part: "+fh.Filename)
			return
		}
		defer f.Close()
		files = append(files, ingest.File{Name: fh.Filename, Content: f})
	}

	report, err := h.pipeline.Run(r.Context(), files)
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrNoFiles),
			errors.Is(err, ingest.ErrTooManyFiles),
			errors.Is(err, ingest.ErrEmptyFileName):
			writeError(w, http.StatusBadRequest, "INVALID_BATCH", err.Error())
		default:
			// Upload, provisioning and import failures come from the
			// remote backends; surface the detail.
			h.logger.Error("ingestion failed", "error", err)
			writeError(w, http.StatusBadGateway, "INGEST_FAILED", err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, IndexResponse{
		CorpusRef: string(report.CorpusRef),
		Uploaded:  report.Uploaded,
		Imported:  report.Imported,
		Failed:    report.Failed,
	})
}
