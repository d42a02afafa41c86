package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Provider:          ProviderVertex,
		Project:           "demo-project",
		Location:          DefaultLocation,
		Bucket:            "demo-bucket",
		ModelName:         DefaultModelName,
		EmbeddingModel:    DefaultEmbeddingModel,
		RetrievalTopK:     DefaultRetrievalTopK,
		DistanceThreshold: DefaultDistanceThreshold,
		UploadPrefix:      DefaultUploadPrefix,
		MaxUploadFiles:    DefaultMaxUploadFiles,
		ChunkSize:         DefaultChunkSize,
		ChunkOverlap:      DefaultChunkOverlap,
		ImportTimeout:     DefaultImportTimeout,
		SettleDelay:       DefaultSettleDelay,
	}
}

func TestLoad_DefaultsAndEnvAliases(t *testing.T) {
	t.Setenv("GOOGLE_CLOUD_PROJECT", "alias-project")
	t.Setenv("GCS_BUCKET_NAME", "alias-bucket")
	t.Setenv("RAG_CORPUS", "projects/p/locations/l/ragCorpora/42")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ProviderVertex, cfg.Provider)
	assert.Equal(t, "alias-project", cfg.Project)
	assert.Equal(t, "alias-bucket", cfg.Bucket)
	assert.Equal(t, "projects/p/locations/l/ragCorpora/42", cfg.CorpusRef)
	assert.Equal(t, DefaultChunkSize, cfg.ChunkSize)
	assert.Equal(t, DefaultChunkOverlap, cfg.ChunkOverlap)
	assert.Equal(t, DefaultImportTimeout, cfg.ImportTimeout)
	assert.Equal(t, DefaultMaxUploadFiles, cfg.MaxUploadFiles)
}

func TestIngestEnabled(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		enabled bool
	}{
		{"fully configured", func(*Config) {}, true},
		{"missing project", func(c *Config) { c.Project = "" }, false},
		{"missing bucket", func(c *Config) { c.Bucket = "" }, false},
		{"local provider without project", func(c *Config) {
			c.Provider = ProviderLocal
			c.Project = ""
			c.PostgresURL = "postgres://localhost:5432/cvadvisor"
		}, true},
		{"local provider without bucket", func(c *Config) {
			c.Provider = ProviderLocal
			c.Bucket = ""
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Equal(t, tt.enabled, cfg.IngestEnabled())
		})
	}

	t.Run("nil config", func(t *testing.T) {
		var cfg *Config
		assert.False(t, cfg.IngestEnabled())
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(*Config) {}, nil},
		{"unknown provider", func(c *Config) { c.Provider = "s3" }, ErrInvalidProvider},
		{"empty model", func(c *Config) { c.ModelName = "  " }, ErrInvalidModelName},
		{"zero chunk size", func(c *Config) { c.ChunkSize = 0 }, ErrInvalidChunking},
		{"overlap >= chunk size", func(c *Config) { c.ChunkOverlap = c.ChunkSize }, ErrInvalidChunking},
		{"negative overlap", func(c *Config) { c.ChunkOverlap = -1 }, ErrInvalidChunking},
		{"zero max files", func(c *Config) { c.MaxUploadFiles = 0 }, ErrInvalidMaxFiles},
		{"zero import timeout", func(c *Config) { c.ImportTimeout = 0 }, ErrInvalidTimeout},
		{"negative settle delay", func(c *Config) { c.SettleDelay = -time.Second }, ErrInvalidTimeout},
		{"local without postgres", func(c *Config) {
			c.Provider = ProviderLocal
			c.PostgresURL = ""
		}, ErrMissingPostgresURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}

	t.Run("nil config", func(t *testing.T) {
		var cfg *Config
		assert.ErrorIs(t, cfg.Validate(), ErrConfigNil)
	})
}
