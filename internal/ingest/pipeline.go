// Package ingest moves CV documents into a retrievable corpus.
//
// One ingestion run validates the batch, uploads each file to object storage,
// provisions the corpus on first use, and imports the uploaded objects. The
// corpus reference only becomes visible to retrieval once an import has
// succeeded, so a half-provisioned corpus never serves queries.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sync"
	"time"

	"github.com/talentops/cv-advisor/internal/corpus"
	"github.com/talentops/cv-advisor/internal/log"
	"github.com/talentops/cv-advisor/internal/storage"
)

var (
	// ErrNoFiles is returned for an empty batch.
	ErrNoFiles = errors.New("ingest: no files to ingest")

	// ErrTooManyFiles is returned when a batch exceeds the configured cap.
	ErrTooManyFiles = errors.New("ingest: too many files")

	// ErrEmptyFileName is returned when a batch entry has no name.
	ErrEmptyFileName = errors.New("ingest: file name is required")
)

// RefHolder publishes the active corpus reference to retrieval. The zero
// value is an unready holder.
type RefHolder struct {
	mu    sync.RWMutex
	ref   corpus.Ref
	ready bool
}

// NewRefHolder creates a holder. A non-empty ref seeds it as ready, covering
// deployments pointed at an already-provisioned corpus.
func NewRefHolder(ref corpus.Ref) *RefHolder {
	h := &RefHolder{}
	if ref != "" {
		h.set(ref)
	}
	return h
}

// Resolve implements the resolver contract used by the retrieval binding.
func (h *RefHolder) Resolve() (corpus.Ref, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ref, h.ready
}

func (h *RefHolder) set(ref corpus.Ref) {
	h.mu.Lock()
	h.ref = ref
	h.ready = true
	h.mu.Unlock()
}

func (h *RefHolder) clear() {
	h.mu.Lock()
	h.ref = ""
	h.ready = false
	h.mu.Unlock()
}

// Options configures a Pipeline.
type Options struct {
	DisplayName    string
	EmbeddingModel string
	UploadPrefix   string
	MaxFiles       int
	ChunkSize      int
	ChunkOverlap   int
	ImportTimeout  time.Duration
}

// File is one document in an ingestion batch.
type File struct {
	Name    string
	Content io.Reader
}

// Report summarizes one ingestion run.
type Report struct {
	CorpusRef corpus.Ref
	Uploaded  []string
	Imported  int
	Failed    int
}

// Pipeline runs ingestion end to end.
type Pipeline struct {
	corpus  corpus.Service
	objects storage.ObjectStore
	holder  *RefHolder
	opts    Options
	logger  log.Logger

	// mu serializes runs so concurrent ingestions cannot race on corpus
	// provisioning.
	mu sync.Mutex
}

// New creates a Pipeline publishing into holder.
func New(service corpus.Service, objects storage.ObjectStore, holder *RefHolder, opts Options, logger log.Logger) (*Pipeline, error) {
	if service == nil {
		return nil, fmt.Errorf("corpus service is required")
	}
	if objects == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if holder == nil {
		return nil, fmt.Errorf("ref holder is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if opts.MaxFiles <= 0 {
		return nil, fmt.Errorf("max files must be positive, got %d", opts.MaxFiles)
	}
	return &Pipeline{corpus: service, objects: objects, holder: holder, opts: opts, logger: logger}, nil
}

// Run ingests one batch. Any failure resets the published reference, so a
// retry provisions a fresh corpus; partial imports are abandoned, not rolled
// back. Uploads that succeed before a later failure stay in storage and are
// overwritten under the same keys on retry.
func (p *Pipeline) Run(ctx context.Context, files []File) (Report, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.validate(files); err != nil {
		return Report{}, err
	}

	uris, err := p.upload(ctx, files)
	if err != nil {
		p.holder.clear()
		return Report{}, err
	}

	ref, err := p.provision(ctx)
	if err != nil {
		p.holder.clear()
		return Report{}, err
	}

	result, err := p.corpus.ImportFiles(ctx, ref, uris, corpus.ImportConfig{
		ChunkSize:    p.opts.ChunkSize,
		ChunkOverlap: p.opts.ChunkOverlap,
		Timeout:      p.opts.ImportTimeout,
	})
	if err != nil {
		p.holder.clear()
		return Report{}, fmt.Errorf("import files: %w", err)
	}

	report := Report{CorpusRef: ref, Uploaded: uris, Imported: result.Imported, Failed: result.Failed}

	// Readiness requires a fully imported batch. A partially imported corpus
	// is abandoned; the next run provisions a fresh one.
	if result.Failed > 0 {
		p.holder.clear()
		p.logger.Warn("ingestion incomplete, corpus not published",
			"ref", ref, "imported", result.Imported, "failed", result.Failed)
		return report, nil
	}

	p.holder.set(ref)
	p.logger.Info("ingestion complete",
		"ref", ref, "uploaded", len(uris), "imported", result.Imported)

	return report, nil
}

// Ref returns the active corpus reference, if any.
func (p *Pipeline) Ref() (corpus.Ref, bool) {
	return p.holder.Resolve()
}

// DeleteCorpus removes the active corpus and unpublishes its reference.
// Uploaded objects are left in storage.
func (p *Pipeline) DeleteCorpus(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ref, ok := p.holder.Resolve()
	if !ok {
		return corpus.ErrNotFound
	}
	if err := p.corpus.Delete(ctx, ref); err != nil {
		return fmt.Errorf("delete corpus: %w", err)
	}
	p.holder.clear()
	return nil
}

func (p *Pipeline) validate(files []File) error {
	if len(files) == 0 {
		return ErrNoFiles
	}
	if len(files) > p.opts.MaxFiles {
		return fmt.Errorf("%w: %d files exceeds the limit of %d", ErrTooManyFiles, len(files), p.opts.MaxFiles)
	}
	for _, f := range files {
		if f.Name == "" {
			return ErrEmptyFileName
		}
	}
	return nil
}

func (p *Pipeline) upload(ctx context.Context, files []File) ([]string, error) {
	uris := make([]string, 0, len(files))
	for _, f := range files {
		key := path.Join(p.opts.UploadPrefix, storage.SanitizeName(f.Name))
		uri, err := p.objects.Upload(ctx, key, f.Content)
		if err != nil {
			return nil, fmt.Errorf("upload %q: %w", f.Name, err)
		}
		p.logger.Debug("uploaded document", "name", f.Name, "uri", uri)
		uris = append(uris, uri)
	}
	return uris, nil
}

// provision reuses the published corpus or creates a fresh one.
func (p *Pipeline) provision(ctx context.Context) (corpus.Ref, error) {
	if ref, ok := p.holder.Resolve(); ok {
		if _, err := p.corpus.Get(ctx, ref); err == nil {
			return ref, nil
		} else if !errors.Is(err, corpus.ErrNotFound) {
			return "", fmt.Errorf("check corpus: %w", err)
		}
		// The published corpus disappeared underneath us.
		p.holder.clear()
	}

	ref, err := p.corpus.Create(ctx, p.opts.DisplayName, p.opts.EmbeddingModel)
	if err != nil {
		return "", fmt.Errorf("create corpus: %w", err)
	}
	p.logger.Info("provisioned corpus", "ref", ref, "display_name", p.opts.DisplayName)
	return ref, nil
}
