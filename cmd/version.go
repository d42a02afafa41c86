package cmd

import (
	"fmt"
	"os"

	"github.com/talentops/cv-advisor/internal/config"
)

// Version information (injected at build time via ldflags)
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

func runVersion() error {
	fmt.Printf("cv-advisor %s\n", AppVersion)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	fmt.Println("Configuration:")
	fmt.Printf("  Provider: %s\n", cfg.Provider)
	fmt.Printf("  Model: %s\n", cfg.ModelName)
	fmt.Printf("  Embedding model: %s\n", cfg.EmbeddingModel)
	fmt.Printf("  Location: %s\n", cfg.Location)
	fmt.Printf("  Retrieval: top_k=%d, distance_threshold=%.2f\n", cfg.RetrievalTopK, cfg.DistanceThreshold)
	fmt.Printf("  Chunking: size=%d, overlap=%d\n", cfg.ChunkSize, cfg.ChunkOverlap)

	if cfg.Project != "" {
		fmt.Printf("  Project: %s\n", cfg.Project)
	} else {
		fmt.Println("  Project: Not set")
	}
	if cfg.Bucket != "" {
		fmt.Printf("  Bucket: %s\n", cfg.Bucket)
	} else {
		fmt.Println("  Bucket: Not set (ingestion disabled)")
	}
	if cfg.CorpusRef != "" {
		fmt.Printf("  Corpus: %s\n", cfg.CorpusRef)
	}

	// Check API Key from environment (don't display full content)
	if key := os.Getenv("GEMINI_API_KEY"); len(key) >= 8 {
		fmt.Printf("  GEMINI_API_KEY: %s...%s (configured)\n", key[:4], key[len(key)-4:])
	} else if key != "" {
		fmt.Println("  GEMINI_API_KEY: configured")
	} else {
		fmt.Println("  GEMINI_API_KEY: Not set")
	}

	return nil
}
