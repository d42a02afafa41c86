package corpus

import (
	"context"
	"fmt"
	"time"

	aiplatform "cloud.google.com/go/aiplatform/apiv1beta1"
	"cloud.google.com/go/aiplatform/apiv1beta1/aiplatformpb"
	"google.golang.org/api/option"

	"github.com/talentops/cv-advisor/internal/log"
)

// VertexConfig configures the managed Vertex AI RAG implementation.
type VertexConfig struct {
	Project  string
	Location string

	// SettleDelay is the pause after corpus creation before the service
	// becomes queryable. The managed backend acknowledges creation before
	// the index accepts queries.
	SettleDelay time.Duration
}

// Vertex implements Service on the Vertex AI RAG API.
type Vertex struct {
	data      *aiplatform.VertexRagDataClient
	retrieval *aiplatform.VertexRagClient
	cfg       VertexConfig
	logger    log.Logger
}

// NewVertex creates a Vertex-backed corpus service using Application Default
// Credentials against the regional endpoint.
func NewVertex(ctx context.Context, cfg VertexConfig, logger log.Logger) (*Vertex, error) {
	if cfg.Project == "" || cfg.Location == "" {
		return nil, fmt.Errorf("project and location are required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	endpoint := option.WithEndpoint(fmt.Sprintf("%s-aiplatform.googleapis.com:443", cfg.Location))

	data, err := aiplatform.NewVertexRagDataClient(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create rag data client: %w", err)
	}

	retrieval, err := aiplatform.NewVertexRagClient(ctx, endpoint)
	if err != nil {
		_ = data.Close()
		return nil, fmt.Errorf("failed to create rag retrieval client: %w", err)
	}

	return &Vertex{data: data, retrieval: retrieval, cfg: cfg, logger: logger}, nil
}

func (v *Vertex) parent() string {
	return fmt.Sprintf("projects/%s/locations/%s", v.cfg.Project, v.cfg.Location)
}

// Create provisions a corpus with the given embedding model and waits the
// configured settling delay before returning the reference.
func (v *Vertex) Create(ctx context.Context, displayName, embeddingModel string) (Ref, error) {
	req := &aiplatformpb.CreateRagCorpusRequest{
		Parent: v.parent(),
		RagCorpus: &aiplatformpb.RagCorpus{
			DisplayName: displayName,
			BackendConfig: &aiplatformpb.RagCorpus_VectorDbConfig{
				VectorDbConfig: &aiplatformpb.RagVectorDbConfig{
					RagEmbeddingModelConfig: &aiplatformpb.RagEmbeddingModelConfig{
						ModelConfig: &aiplatformpb.RagEmbeddingModelConfig_VertexPredictionEndpoint_{
							VertexPredictionEndpoint: &aiplatformpb.RagEmbeddingModelConfig_VertexPredictionEndpoint{
								Endpoint: embeddingModel,
							},
						},
					},
				},
			},
		},
	}

	op, err := v.data.CreateRagCorpus(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create corpus: %w", err)
	}
	created, err := op.Wait(ctx)
	if err != nil {
		return "", fmt.Errorf("corpus creation did not complete: %w", err)
	}

	// The service reports the corpus before its index accepts queries.
	if v.cfg.SettleDelay > 0 {
		v.logger.Info("waiting for corpus to settle", "ref", created.GetName(), "delay", v.cfg.SettleDelay)
		select {
		case <-time.After(v.cfg.SettleDelay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	v.logger.Info("corpus created", "ref", created.GetName())
	return created.GetName(), nil
}

// Get resolves a corpus reference.
func (v *Vertex) Get(ctx context.Context, ref Ref) (Ref, error) {
	c, err := v.data.GetRagCorpus(ctx, &aiplatformpb.GetRagCorpusRequest{Name: ref})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNotFound, ref, err)
	}
	return c.GetName(), nil
}

// Delete removes the corpus. Uploaded objects stay in the bucket.
func (v *Vertex) Delete(ctx context.Context, ref Ref) error {
	op, err := v.data.DeleteRagCorpus(ctx, &aiplatformpb.DeleteRagCorpusRequest{Name: ref})
	if err != nil {
		return fmt.Errorf("failed to delete corpus %s: %w", ref, err)
	}
	if err := op.Wait(ctx); err != nil {
		return fmt.Errorf("corpus deletion did not complete: %w", err)
	}
	v.logger.Info("corpus deleted", "ref", ref)
	return nil
}

// ImportFiles submits one import job over the given gs:// URIs and blocks
// until the long-running operation completes or cfg.Timeout elapses.
func (v *Vertex) ImportFiles(ctx context.Context, ref Ref, uris []string, cfg ImportConfig) (ImportResult, error) {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	req := &aiplatformpb.ImportRagFilesRequest{
		Parent: ref,
		ImportRagFilesConfig: &aiplatformpb.ImportRagFilesConfig{
			ImportSource: &aiplatformpb.ImportRagFilesConfig_GcsSource{
				GcsSource: &aiplatformpb.GcsSource{Uris: uris},
			},
			RagFileTransformationConfig: &aiplatformpb.RagFileTransformationConfig{
				RagFileChunkingConfig: &aiplatformpb.RagFileChunkingConfig{
					ChunkingConfig: &aiplatformpb.RagFileChunkingConfig_FixedLengthChunking_{
						FixedLengthChunking: &aiplatformpb.RagFileChunkingConfig_FixedLengthChunking{
							ChunkSize:    int32(cfg.ChunkSize),    // #nosec G115 -- validated by config
							ChunkOverlap: int32(cfg.ChunkOverlap), // #nosec G115 -- validated by config
						},
					},
				},
			},
		},
	}

	v.logger.Info("import job submitted", "ref", ref, "files", len(uris))

	op, err := v.data.ImportRagFiles(ctx, req)
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to submit import job: %w", err)
	}
	resp, err := op.Wait(ctx)
	if err != nil {
		return ImportResult{}, fmt.Errorf("import job did not complete: %w", err)
	}

	result := ImportResult{
		Imported: int(resp.GetImportedRagFilesCount()),
		Failed:   int(resp.GetFailedRagFilesCount()),
	}
	v.logger.Info("import job finished", "ref", ref, "imported", result.Imported, "failed", result.Failed)
	return result, nil
}

// Retrieve issues a fresh similarity search against the corpus.
func (v *Vertex) Retrieve(ctx context.Context, ref Ref, query string, topK int, distanceThreshold float64) ([]Passage, error) {
	req := &aiplatformpb.RetrieveContextsRequest{
		Parent: v.parent(),
		Query: &aiplatformpb.RagQuery{
			Query:          &aiplatformpb.RagQuery_Text{Text: query},
			SimilarityTopK: int32(topK), // #nosec G115 -- validated by config
		},
		DataSource: &aiplatformpb.RetrieveContextsRequest_VertexRagStore_{
			VertexRagStore: &aiplatformpb.RetrieveContextsRequest_VertexRagStore{
				RagResources: []*aiplatformpb.RetrieveContextsRequest_VertexRagStore_RagResource{
					{RagCorpus: ref},
				},
				VectorDistanceThreshold: &distanceThreshold,
			},
		},
	}

	resp, err := v.retrieval.RetrieveContexts(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	contexts := resp.GetContexts().GetContexts()
	passages := make([]Passage, 0, len(contexts))
	for _, c := range contexts {
		passages = append(passages, Passage{
			Text:     c.GetText(),
			Source:   c.GetSourceUri(),
			Distance: c.GetDistance(),
		})
	}
	return passages, nil
}

// Close releases both underlying clients.
func (v *Vertex) Close() error {
	err := v.data.Close()
	if rerr := v.retrieval.Close(); err == nil {
		err = rerr
	}
	return err
}
