// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (CVADVISOR_* plus the Google Cloud conventions
//     GOOGLE_CLOUD_PROJECT, GCS_BUCKET_NAME and RAG_CORPUS)
//  2. Config file (~/.cvadvisor/config.yaml)
//  3. Default values
//
// The configuration surface is intentionally env-first: there are no CLI flags.
// A missing bucket or project id does not fail startup; it disables the upload
// action instead (see Config.IngestEnabled).
//
// Error Handling:
//   - Sentinel errors for Go-idiomatic checking with errors.Is()
//   - Wrapped with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidProvider indicates the corpus provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidChunking indicates chunk size/overlap values are out of range.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrInvalidMaxFiles indicates the upload batch limit is out of range.
	ErrInvalidMaxFiles = errors.New("invalid max upload files")

	// ErrInvalidTimeout indicates a timeout value is out of range.
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrMissingPostgresURL indicates the local provider is selected but no
	// database URL is configured.
	ErrMissingPostgresURL = errors.New("missing postgres URL")
)

// Corpus provider identifiers used in Config.Provider.
const (
	// ProviderVertex uses the managed Vertex AI RAG service.
	ProviderVertex = "vertex"

	// ProviderLocal uses a PostgreSQL + pgvector corpus for development
	// without a cloud project.
	ProviderLocal = "local"
)

// Defaults mirroring the managed-service demo parameters.
const (
	DefaultModelName      = "gemini-2.0-flash"
	DefaultEmbeddingModel = "publishers/google/models/text-embedding-005"
	DefaultLocation       = "us-central1"
	DefaultCorpusDisplay  = "RAG for CVs"
	DefaultUploadPrefix   = "rag_uploads/"

	// DefaultChunkSize is the import chunk size in tokens.
	DefaultChunkSize = 1024

	// DefaultChunkOverlap is the overlap between adjacent chunks in tokens.
	DefaultChunkOverlap = 200

	// DefaultMaxUploadFiles bounds one indexing batch.
	DefaultMaxUploadFiles = 25

	// DefaultImportTimeout bounds the blocking wait on one import job.
	DefaultImportTimeout = 600 * time.Second

	// DefaultSettleDelay is the pause after corpus creation before the remote
	// service is queryable.
	DefaultSettleDelay = 15 * time.Second

	// DefaultRetrievalTopK is the retrieval result count per query.
	DefaultRetrievalTopK = 10

	// DefaultDistanceThreshold is the vector distance cutoff for retrieval.
	DefaultDistanceThreshold = 0.5
)

// Config stores application configuration.
type Config struct {
	// Corpus provider: "vertex" (default) or "local".
	Provider string `mapstructure:"provider"`

	// Google Cloud settings. Project and Bucket gate the ingestion path:
	// when either is empty the upload action is disabled, not an error.
	Project  string `mapstructure:"project"`
	Location string `mapstructure:"location"`
	Bucket   string `mapstructure:"bucket"`

	// CorpusRef is the opaque reference of an already-provisioned corpus.
	// Empty means the ingestion pipeline provisions one on first use.
	CorpusRef string `mapstructure:"corpus_ref"`

	// Agent model configuration.
	ModelName      string `mapstructure:"model_name"`
	EmbeddingModel string `mapstructure:"embedding_model"`

	// Retrieval parameters handed to every retrieval tool binding.
	RetrievalTopK     int     `mapstructure:"retrieval_top_k"`
	DistanceThreshold float64 `mapstructure:"distance_threshold"`

	// Ingestion parameters.
	UploadPrefix   string        `mapstructure:"upload_prefix"`
	MaxUploadFiles int           `mapstructure:"max_upload_files"`
	ChunkSize      int           `mapstructure:"chunk_size"`
	ChunkOverlap   int           `mapstructure:"chunk_overlap"`
	ImportTimeout  time.Duration `mapstructure:"import_timeout"`
	SettleDelay    time.Duration `mapstructure:"settle_delay"`
	CorpusDisplay  string        `mapstructure:"corpus_display_name"`

	// HTTP server address.
	Addr string `mapstructure:"addr"`

	// PostgresURL is required only for the local provider.
	PostgresURL string `mapstructure:"postgres_url"`
}

// IngestEnabled reports whether the upload/indexing action is usable.
// The local provider needs no cloud project; the vertex provider needs both
// a project id and a bucket name. Missing values disable the action rather
// than erroring at request time.
func (c *Config) IngestEnabled() bool {
	if c == nil {
		return false
	}
	if c.Provider == ProviderLocal {
		return c.Bucket != ""
	}
	return c.Project != "" && c.Bucket != ""
}

// Load reads configuration from file and environment.
// A missing config file is not an error; defaults plus env apply.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".cvadvisor"))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("CVADVISOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The original deployment convention uses these unprefixed variables.
	bindAliases(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", ProviderVertex)
	v.SetDefault("location", DefaultLocation)
	v.SetDefault("model_name", DefaultModelName)
	v.SetDefault("embedding_model", DefaultEmbeddingModel)
	v.SetDefault("retrieval_top_k", DefaultRetrievalTopK)
	v.SetDefault("distance_threshold", DefaultDistanceThreshold)
	v.SetDefault("upload_prefix", DefaultUploadPrefix)
	v.SetDefault("max_upload_files", DefaultMaxUploadFiles)
	v.SetDefault("chunk_size", DefaultChunkSize)
	v.SetDefault("chunk_overlap", DefaultChunkOverlap)
	v.SetDefault("import_timeout", DefaultImportTimeout)
	v.SetDefault("settle_delay", DefaultSettleDelay)
	v.SetDefault("corpus_display_name", DefaultCorpusDisplay)
	v.SetDefault("addr", "127.0.0.1:3400")
}

func bindAliases(v *viper.Viper) {
	aliases := map[string]string{
		"project":    "GOOGLE_CLOUD_PROJECT",
		"bucket":     "GCS_BUCKET_NAME",
		"corpus_ref": "RAG_CORPUS",
	}
	for key, env := range aliases {
		if val := os.Getenv(env); val != "" {
			v.Set(key, val)
		}
	}
}
