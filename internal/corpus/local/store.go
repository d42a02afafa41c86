// Package local implements corpus.Service on PostgreSQL + pgvector.
//
// It exists for development without a cloud project: the same ingestion
// pipeline and retrieval tool run against a local database instead of the
// managed RAG service. Imported objects are read back from object storage,
// chunked with the configured geometry, embedded, and searched by cosine
// distance. Plain-text objects only; PDF parsing is a managed-service feature.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/talentops/cv-advisor/internal/corpus"
	"github.com/talentops/cv-advisor/internal/log"
	"github.com/talentops/cv-advisor/internal/storage"
)

// VectorDimension is the embedding width the chunks table is declared with.
const VectorDimension = 768

// maxObjectBytes caps how much of one object the import job reads.
const maxObjectBytes = 10 << 20

const refPrefix = "corpora/"

// Store implements corpus.Service on a pgvector-enabled PostgreSQL database.
// Safe for concurrent use.
type Store struct {
	pool     *pgxpool.Pool
	embedder ai.Embedder
	objects  storage.ObjectStore
	logger   log.Logger
}

// New creates a local corpus store.
func New(pool *pgxpool.Pool, embedder ai.Embedder, objects storage.ObjectStore, logger log.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if objects == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Store{pool: pool, embedder: embedder, objects: objects, logger: logger}, nil
}

// Create inserts a corpus row. No settling delay: the local index is
// queryable immediately.
func (s *Store) Create(ctx context.Context, displayName, embeddingModel string) (corpus.Ref, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx,
		`INSERT INTO corpora (display_name, embedding_model) VALUES ($1, $2) RETURNING id`,
		displayName, embeddingModel,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to create corpus: %w", err)
	}

	ref := refPrefix + id.String()
	s.logger.Info("corpus created", "ref", ref, "display_name", displayName)
	return ref, nil
}

// Get resolves a reference against the corpora table.
func (s *Store) Get(ctx context.Context, ref corpus.Ref) (corpus.Ref, error) {
	id, err := parseRef(ref)
	if err != nil {
		return "", err
	}

	var found uuid.UUID
	err = s.pool.QueryRow(ctx, `SELECT id FROM corpora WHERE id = $1`, id).Scan(&found)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", corpus.ErrNotFound, ref)
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up corpus %s: %w", ref, err)
	}
	return ref, nil
}

// Delete removes the corpus row; chunks cascade. Objects in storage remain.
func (s *Store) Delete(ctx context.Context, ref corpus.Ref) error {
	id, err := parseRef(ref)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM corpora WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete corpus %s: %w", ref, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", corpus.ErrNotFound, ref)
	}

	s.logger.Info("corpus deleted", "ref", ref)
	return nil
}

// ImportFiles reads each object back from storage, chunks and embeds it, and
// stores the chunks. Per-file failures are counted, not fatal to the job.
func (s *Store) ImportFiles(ctx context.Context, ref corpus.Ref, uris []string, cfg corpus.ImportConfig) (corpus.ImportResult, error) {
	id, err := parseRef(ref)
	if err != nil {
		return corpus.ImportResult{}, err
	}
	if _, err := s.Get(ctx, ref); err != nil {
		return corpus.ImportResult{}, err
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	var result corpus.ImportResult
	for _, uri := range uris {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("import job aborted: %w", err)
		}
		if err := s.importOne(ctx, id, uri, cfg); err != nil {
			s.logger.Warn("file import failed", "uri", uri, "error", err)
			result.Failed++
			continue
		}
		result.Imported++
	}

	s.logger.Info("import job finished", "ref", ref, "imported", result.Imported, "failed", result.Failed)
	return result, nil
}

func (s *Store) importOne(ctx context.Context, corpusID uuid.UUID, uri string, cfg corpus.ImportConfig) error {
	rc, err := s.objects.Open(ctx, uri)
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(io.LimitReader(rc, maxObjectBytes))
	if err != nil {
		return fmt.Errorf("failed to read object: %w", err)
	}

	chunks := chunk(string(data), cfg.ChunkSize, cfg.ChunkOverlap)
	if len(chunks) == 0 {
		return fmt.Errorf("object %q produced no chunks", uri)
	}

	docs := make([]*ai.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = ai.DocumentFromText(c, map[string]any{"source_uri": uri})
	}
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs})
	if err != nil {
		return fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(resp.Embeddings) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(resp.Embeddings), len(chunks))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Re-importing a file replaces its chunks.
	if _, err := tx.Exec(ctx, `DELETE FROM chunks WHERE corpus_id = $1 AND source_uri = $2`, corpusID, uri); err != nil {
		return fmt.Errorf("failed to clear previous chunks: %w", err)
	}

	for i, c := range chunks {
		vec := pgvector.NewVector(resp.Embeddings[i].Embedding)
		if _, err := tx.Exec(ctx,
			`INSERT INTO chunks (corpus_id, source_uri, content, embedding) VALUES ($1, $2, $3, $4)`,
			corpusID, uri, c, vec,
		); err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", i, err)
		}
	}

	return tx.Commit(ctx)
}

// Retrieve embeds the query and runs a cosine-distance search.
func (s *Store) Retrieve(ctx context.Context, ref corpus.Ref, query string, topK int, distanceThreshold float64) ([]corpus.Passage, error) {
	id, err := parseRef(ref)
	if err != nil {
		return nil, err
	}

	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{ai.DocumentFromText(query, nil)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty query embedding")
	}
	vec := pgvector.NewVector(resp.Embeddings[0].Embedding)

	rows, err := s.pool.Query(ctx,
		`SELECT content, source_uri, embedding <=> $1 AS distance
		 FROM chunks
		 WHERE corpus_id = $2 AND embedding <=> $1 <= $3
		 ORDER BY distance
		 LIMIT $4`,
		vec, id, distanceThreshold, topK,
	)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	defer rows.Close()

	var passages []corpus.Passage
	for rows.Next() {
		var p corpus.Passage
		if err := rows.Scan(&p.Text, &p.Source, &p.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan passage: %w", err)
		}
		passages = append(passages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	return passages, nil
}

func parseRef(ref corpus.Ref) (uuid.UUID, error) {
	raw, ok := strings.CutPrefix(ref, refPrefix)
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: %q is not a local corpus reference", corpus.ErrNotFound, ref)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed reference %q", corpus.ErrNotFound, ref)
	}
	return id, nil
}
