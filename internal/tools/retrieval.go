// Package tools provides the callable capabilities bound to specialist
// agents: corpus retrieval, grounded web search, and page reading.
package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/talentops/cv-advisor/internal/corpus"
	"github.com/talentops/cv-advisor/internal/log"
)

// RetrievalToolName is the identifier the model uses to call corpus retrieval.
const RetrievalToolName = "retrieve_rag_cv_documentation"

const retrievalDescription = "Use this tool to retrieve CV documentation and reference materials for the question from the RAG corpus"

// ErrCorpusNotReady is returned when retrieval runs before a corpus exists.
var ErrCorpusNotReady = errors.New("tools: corpus is not ready")

// RefResolver reports the corpus to retrieve from. The second return is false
// until ingestion has produced a usable corpus; the binding is constructed
// before that happens.
type RefResolver func() (corpus.Ref, bool)

// StaticRef adapts a fixed corpus reference into a RefResolver.
func StaticRef(ref corpus.Ref) RefResolver {
	return func() (corpus.Ref, bool) { return ref, ref != "" }
}

// Retrieval binds semantic corpus search with fixed retrieval parameters.
type Retrieval struct {
	service   corpus.Service
	ref       RefResolver
	topK      int
	threshold float64
	logger    log.Logger
}

// NewRetrieval creates the retrieval binding.
func NewRetrieval(service corpus.Service, ref RefResolver, topK int, threshold float64, logger log.Logger) (*Retrieval, error) {
	if service == nil {
		return nil, fmt.Errorf("corpus service is required")
	}
	if ref == nil {
		return nil, fmt.Errorf("ref resolver is required")
	}
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Retrieval{service: service, ref: ref, topK: topK, threshold: threshold, logger: logger}, nil
}

func (r *Retrieval) Name() string        { return RetrievalToolName }
func (r *Retrieval) Description() string { return retrievalDescription }

// Call retrieves the passages most similar to the query and renders them as
// numbered excerpts with their source documents.
func (r *Retrieval) Call(ctx context.Context, query string) (string, error) {
	ref, ok := r.ref()
	if !ok {
		return "", ErrCorpusNotReady
	}

	passages, err := r.service.Retrieve(ctx, ref, query, r.topK, r.threshold)
	if err != nil {
		return "", fmt.Errorf("retrieve from corpus: %w", err)
	}

	r.logger.Debug("corpus retrieval", "query", query, "passages", len(passages))

	if len(passages) == 0 {
		return "No relevant documents were found in the corpus for this query.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d relevant passages:\n", len(passages))
	for i, p := range passages {
		fmt.Fprintf(&b, "\n[%d] Source: %s\n%s\n", i+1, p.Source, p.Text)
	}
	return b.String(), nil
}
