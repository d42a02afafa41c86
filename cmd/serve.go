package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/talentops/cv-advisor/api"
	"github.com/talentops/cv-advisor/db"
	"github.com/talentops/cv-advisor/internal/advisor"
	"github.com/talentops/cv-advisor/internal/agent"
	"github.com/talentops/cv-advisor/internal/config"
	"github.com/talentops/cv-advisor/internal/corpus"
	"github.com/talentops/cv-advisor/internal/corpus/local"
	"github.com/talentops/cv-advisor/internal/ingest"
	"github.com/talentops/cv-advisor/internal/log"
	"github.com/talentops/cv-advisor/internal/runner"
	"github.com/talentops/cv-advisor/internal/session"
	"github.com/talentops/cv-advisor/internal/storage"
	"github.com/talentops/cv-advisor/internal/tools"
)

// Page fetch throttling for the search agent.
const (
	pageFetchInterval = 2 * time.Second
	pageFetchBurst    = 3
)

// runServe initializes and starts the HTTP API server.
func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	var args []string
	if len(os.Args) > 2 {
		args = os.Args[2:]
	}
	addr, err := parseServeAddr(args)
	if err != nil {
		return fmt.Errorf("parsing address: %w", err)
	}
	if addr == "" {
		addr = cfg.Addr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()
	logger.Info("starting CV advisor", "version", AppVersion, "provider", cfg.Provider)

	g, modelPrefix := initGenkit(ctx, cfg)

	service, objects, cleanup, err := buildCorpusStack(ctx, cfg, g, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	holder := ingest.NewRefHolder(corpus.Ref(cfg.CorpusRef))

	var pipeline *ingest.Pipeline
	if cfg.IngestEnabled() {
		pipeline, err = ingest.New(service, objects, holder, ingest.Options{
			DisplayName:    cfg.CorpusDisplay,
			EmbeddingModel: cfg.EmbeddingModel,
			UploadPrefix:   cfg.UploadPrefix,
			MaxFiles:       cfg.MaxUploadFiles,
			ChunkSize:      cfg.ChunkSize,
			ChunkOverlap:   cfg.ChunkOverlap,
			ImportTimeout:  cfg.ImportTimeout,
		}, logger)
		if err != nil {
			return fmt.Errorf("creating ingestion pipeline: %w", err)
		}
	} else {
		logger.Warn("ingestion disabled: project or bucket not configured")
	}

	retrieval, err := tools.NewRetrieval(service, holder.Resolve, cfg.RetrievalTopK, cfg.DistanceThreshold, logger)
	if err != nil {
		return fmt.Errorf("creating retrieval binding: %w", err)
	}

	executor, err := agent.NewGenkitExecutor(agent.GenkitConfig{
		Genkit:      g,
		ModelPrefix: modelPrefix,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("creating executor: %w", err)
	}

	sessions := session.NewStore()

	run, err := runner.New(executor, sessions, func() (*agent.Agent, error) {
		return advisor.New(cfg.ModelName, retrieval)
	}, logger)
	if err != nil {
		return fmt.Errorf("creating runner: %w", err)
	}

	webGraph := buildWebGraph(ctx, cfg, logger)

	server := api.NewServer(api.Deps{
		Runner:    run,
		Sessions:  sessions,
		Pipeline:  pipeline,
		WebGraph:  webGraph,
		CorpusRef: holder.Resolve,
		Logger:    logger,
	})

	return server.Run(ctx, addr)
}

// initGenkit initializes Genkit with the plugin matching the provider and
// returns the model name prefix for that plugin.
func initGenkit(ctx context.Context, cfg *config.Config) (*genkit.Genkit, string) {
	if cfg.Provider == config.ProviderVertex && cfg.Project != "" {
		g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.VertexAI{
			ProjectID: cfg.Project,
			Location:  cfg.Location,
		}))
		return g, "vertexai"
	}

	// Local provider, or vertex without a project: API-key access.
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	return g, "googleai"
}

// buildCorpusStack wires the corpus service and object store for the
// configured provider. The returned cleanup releases backend connections.
func buildCorpusStack(ctx context.Context, cfg *config.Config, g *genkit.Genkit, logger log.Logger) (corpus.Service, storage.ObjectStore, func(), error) {
	switch cfg.Provider {
	case config.ProviderLocal:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		if err := db.Migrate(cfg.PostgresURL); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("running migrations: %w", err)
		}

		objects, err := storage.NewDir(cfg.Bucket, logger)
		if err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("creating local object store: %w", err)
		}

		var embedder ai.Embedder = googlegenai.GoogleAIEmbedder(g, "text-embedding-004")
		store, err := local.New(pool, embedder, objects, logger)
		if err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("creating local corpus: %w", err)
		}
		return store, objects, pool.Close, nil

	default:
		service, err := corpus.NewVertex(ctx, corpus.VertexConfig{
			Project:     cfg.Project,
			Location:    cfg.Location,
			SettleDelay: cfg.SettleDelay,
		}, logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("creating vertex corpus: %w", err)
		}

		// Without a bucket the upload path stays disabled; retrieval against
		// a pre-provisioned corpus still works.
		var objects storage.ObjectStore
		if cfg.Bucket != "" {
			gcs, err := storage.NewGCS(ctx, cfg.Bucket, logger)
			if err != nil {
				_ = service.Close()
				return nil, nil, nil, fmt.Errorf("creating GCS object store: %w", err)
			}
			objects = gcs
		}
		return service, objects, func() { _ = service.Close() }, nil
	}
}

// buildWebGraph assembles the standalone search agent. Failure to construct
// the grounded search client degrades the endpoint instead of failing startup.
func buildWebGraph(ctx context.Context, cfg *config.Config, logger log.Logger) runner.GraphFunc {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{})
	if err != nil {
		logger.Warn("web search disabled: genai client unavailable", "error", err)
		return nil
	}

	search, err := tools.NewWebSearch(client, cfg.ModelName, logger)
	if err != nil {
		logger.Warn("web search disabled", "error", err)
		return nil
	}

	limiter := rate.NewLimiter(rate.Every(pageFetchInterval), pageFetchBurst)
	reader, err := tools.NewReadPage(nil, limiter, logger)
	if err != nil {
		logger.Warn("page reading disabled", "error", err)
		return func() (*agent.Agent, error) {
			return advisor.NewWebSearcher(cfg.ModelName, search)
		}
	}

	return func() (*agent.Agent, error) {
		return advisor.NewWebSearcher(cfg.ModelName, search, reader)
	}
}
