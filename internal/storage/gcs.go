package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	gcs "cloud.google.com/go/storage"

	"github.com/talentops/cv-advisor/internal/log"
)

// GCS implements ObjectStore on a Google Cloud Storage bucket.
// URIs use the gs://bucket/key form expected by the Vertex import job.
type GCS struct {
	client *gcs.Client
	bucket string
	logger log.Logger
}

// NewGCS creates a GCS-backed object store for the given bucket.
// The client uses Application Default Credentials.
func NewGCS(ctx context.Context, bucket string, logger log.Logger) (*GCS, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &GCS{client: client, bucket: bucket, logger: logger}, nil
}

// Upload writes the object and returns its gs:// URI.
func (s *GCS) Upload(ctx context.Context, key string, r io.Reader) (string, error) {
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to upload %q to bucket %q: %w", key, s.bucket, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize upload of %q: %w", key, err)
	}

	uri := fmt.Sprintf("gs://%s/%s", s.bucket, key)
	s.logger.Debug("uploaded object", "uri", uri)
	return uri, nil
}

// Open reads an object back by its gs:// URI.
func (s *GCS) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	bucket, key, err := splitGCSURI(uri)
	if err != nil {
		return nil, err
	}
	rc, err := s.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", uri, err)
	}
	return rc, nil
}

// Close releases the underlying client.
func (s *GCS) Close() error {
	return s.client.Close()
}

func splitGCSURI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return "", "", fmt.Errorf("not a gs:// URI: %q", uri)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("malformed object URI: %q", uri)
	}
	return bucket, key, nil
}
