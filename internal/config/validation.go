package config

import (
	"fmt"
	"strings"
)

// Validate checks configuration values for consistency.
// Missing bucket/project are deliberately not validation errors: they disable
// the ingestion action instead of failing startup.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	switch c.Provider {
	case ProviderVertex, ProviderLocal:
	default:
		return fmt.Errorf("%w: %q (want %q or %q)", ErrInvalidProvider, c.Provider, ProviderVertex, ProviderLocal)
	}

	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model name is empty", ErrInvalidModelName)
	}

	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: overlap %d must be in [0, chunk size %d)", ErrInvalidChunking, c.ChunkOverlap, c.ChunkSize)
	}

	if c.MaxUploadFiles < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxFiles, c.MaxUploadFiles)
	}

	if c.ImportTimeout <= 0 {
		return fmt.Errorf("%w: import timeout %s", ErrInvalidTimeout, c.ImportTimeout)
	}
	if c.SettleDelay < 0 {
		return fmt.Errorf("%w: settle delay %s", ErrInvalidTimeout, c.SettleDelay)
	}

	if c.RetrievalTopK < 1 {
		return fmt.Errorf("%w: retrieval top-k %d", ErrInvalidChunking, c.RetrievalTopK)
	}

	if c.Provider == ProviderLocal && strings.TrimSpace(c.PostgresURL) == "" {
		return fmt.Errorf("%w: provider %q requires postgres_url", ErrMissingPostgresURL, ProviderLocal)
	}

	return nil
}
