// Package corpus defines the boundary to the remote RAG corpus service.
//
// Everything behind Service is opaque: document chunking, embedding, vector
// indexing and similarity search all happen on the service side. The interface
// is defined here, by its consumers (the ingestion pipeline and the retrieval
// tool binding), so tests can substitute deterministic fakes.
package corpus

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates the referenced corpus does not exist.
var ErrNotFound = errors.New("corpus not found")

// Ref is the opaque path-like reference naming a remote document collection,
// e.g. "projects/123/locations/us-central1/ragCorpora/456". Created once,
// never mutated, deleted only by operator action.
type Ref = string

// ImportConfig carries the fixed chunking parameters of one import job.
type ImportConfig struct {
	// ChunkSize is the chunk length in tokens.
	ChunkSize int

	// ChunkOverlap is the token overlap between adjacent chunks.
	ChunkOverlap int

	// Timeout bounds the blocking wait on the job.
	Timeout time.Duration
}

// ImportResult reports the outcome of one import job.
// The job is not retried automatically on partial failure.
type ImportResult struct {
	Imported int
	Failed   int
}

// Passage is one retrieved chunk with its source and vector distance.
type Passage struct {
	Text     string
	Source   string
	Distance float64
}

// Service is the remote corpus service. Implementations: Vertex (managed
// Vertex AI RAG) and local.Store (PostgreSQL + pgvector, for development).
type Service interface {
	// Create provisions a new corpus with the given display name and
	// embedding model, returning its reference. Implementations block until
	// the corpus is queryable (the managed service needs a settling delay).
	Create(ctx context.Context, displayName, embeddingModel string) (Ref, error)

	// Get resolves a reference, returning ErrNotFound for unknown corpora.
	Get(ctx context.Context, ref Ref) (Ref, error)

	// Delete removes the corpus. Uploaded objects in storage are NOT deleted;
	// that cleanup gap is a documented property of the design.
	Delete(ctx context.Context, ref Ref) error

	// ImportFiles submits one import job over the given object URIs and
	// blocks until it completes or cfg.Timeout elapses.
	ImportFiles(ctx context.Context, ref Ref, uris []string, cfg ImportConfig) (ImportResult, error)

	// Retrieve returns up to topK passages relevant to query, filtered by
	// vector distance threshold. No caching: every call is a fresh search.
	Retrieve(ctx context.Context, ref Ref, query string, topK int, distanceThreshold float64) ([]Passage, error)
}
