package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentops/cv-advisor/internal/corpus"
	"github.com/talentops/cv-advisor/internal/log"
)

// fakeService scripts corpus behavior and records calls.
type fakeService struct {
	createErr error
	importErr error
	deleteErr error
	result    corpus.ImportResult

	created     int
	deleted     []corpus.Ref
	importedTo  corpus.Ref
	importedURI []string
	importCfg   corpus.ImportConfig
	existing    map[corpus.Ref]bool
}

func newFakeService() *fakeService {
	return &fakeService{existing: make(map[corpus.Ref]bool), result: corpus.ImportResult{Imported: 1}}
}

func (f *fakeService) Create(context.Context, string, string) (corpus.Ref, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created++
	ref := corpus.Ref(fmt.Sprintf("corpora/%d", f.created))
	f.existing[ref] = true
	return ref, nil
}

func (f *fakeService) Get(_ context.Context, ref corpus.Ref) (corpus.Ref, error) {
	if !f.existing[ref] {
		return "", corpus.ErrNotFound
	}
	return ref, nil
}

func (f *fakeService) Delete(_ context.Context, ref corpus.Ref) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if !f.existing[ref] {
		return corpus.ErrNotFound
	}
	delete(f.existing, ref)
	f.deleted = append(f.deleted, ref)
	return nil
}

func (f *fakeService) ImportFiles(_ context.Context, ref corpus.Ref, uris []string, cfg corpus.ImportConfig) (corpus.ImportResult, error) {
	if f.importErr != nil {
		return corpus.ImportResult{}, f.importErr
	}
	f.importedTo = ref
	f.importedURI = uris
	f.importCfg = cfg
	return f.result, nil
}

func (f *fakeService) Retrieve(context.Context, corpus.Ref, string, int, float64) ([]corpus.Passage, error) {
	return nil, nil
}

// fakeObjects records uploads and returns fake URIs.
type fakeObjects struct {
	uploadErr error
	keys      []string
}

func (f *fakeObjects) Upload(_ context.Context, key string, r io.Reader) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	_, _ = io.Copy(io.Discard, r)
	f.keys = append(f.keys, key)
	return "gs://bucket/" + key, nil
}

func (f *fakeObjects) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func testOptions() Options {
	return Options{
		DisplayName:    "RAG for CVs",
		EmbeddingModel: "publishers/google/models/text-embedding-005",
		UploadPrefix:   "rag_uploads/",
		MaxFiles:       25,
		ChunkSize:      1024,
		ChunkOverlap:   200,
		ImportTimeout:  600 * time.Second,
	}
}

func newPipeline(t *testing.T, svc *fakeService, objects *fakeObjects) (*Pipeline, *RefHolder) {
	t.Helper()
	holder := &RefHolder{}
	p, err := New(svc, objects, holder, testOptions(), log.NewNop())
	require.NoError(t, err)
	return p, holder
}

func batch(names ...string) []File {
	files := make([]File, 0, len(names))
	for _, n := range names {
		files = append(files, File{Name: n, Content: strings.NewReader("cv body of " + n)})
	}
	return files
}

func TestPipeline_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path publishes the corpus", func(t *testing.T) {
		svc := newFakeService()
		svc.result = corpus.ImportResult{Imported: 2}
		objects := &fakeObjects{}
		p, holder := newPipeline(t, svc, objects)

		_, ready := holder.Resolve()
		assert.False(t, ready, "nothing is published before the first run")

		report, err := p.Run(ctx, batch("Jane Doe (Backend).pdf", "bob.pdf"))
		require.NoError(t, err)

		assert.Equal(t, corpus.Ref("corpora/1"), report.CorpusRef)
		assert.Equal(t, 2, report.Imported)
		assert.Equal(t, []string{
			"rag_uploads/Jane_Doe__Backend_.pdf",
			"rag_uploads/bob.pdf",
		}, objects.keys)
		assert.Equal(t, []string{
			"gs://bucket/rag_uploads/Jane_Doe__Backend_.pdf",
			"gs://bucket/rag_uploads/bob.pdf",
		}, svc.importedURI)

		assert.Equal(t, 1024, svc.importCfg.ChunkSize)
		assert.Equal(t, 200, svc.importCfg.ChunkOverlap)
		assert.Equal(t, 600*time.Second, svc.importCfg.Timeout)

		ref, ready := holder.Resolve()
		assert.True(t, ready)
		assert.Equal(t, report.CorpusRef, ref)
	})

	t.Run("second run reuses the corpus", func(t *testing.T) {
		svc := newFakeService()
		p, _ := newPipeline(t, svc, &fakeObjects{})

		_, err := p.Run(ctx, batch("a.pdf"))
		require.NoError(t, err)
		_, err = p.Run(ctx, batch("b.pdf"))
		require.NoError(t, err)

		assert.Equal(t, 1, svc.created, "one corpus serves all batches")
	})

	t.Run("vanished corpus is reprovisioned", func(t *testing.T) {
		svc := newFakeService()
		p, holder := newPipeline(t, svc, &fakeObjects{})

		_, err := p.Run(ctx, batch("a.pdf"))
		require.NoError(t, err)

		delete(svc.existing, "corpora/1")

		report, err := p.Run(ctx, batch("b.pdf"))
		require.NoError(t, err)
		assert.Equal(t, corpus.Ref("corpora/2"), report.CorpusRef)

		ref, ready := holder.Resolve()
		assert.True(t, ready)
		assert.Equal(t, corpus.Ref("corpora/2"), ref)
	})

	t.Run("batch validation", func(t *testing.T) {
		objects := &fakeObjects{}
		p, _ := newPipeline(t, newFakeService(), objects)

		_, err := p.Run(ctx, nil)
		assert.ErrorIs(t, err, ErrNoFiles)

		names := make([]string, 26)
		for i := range names {
			names[i] = fmt.Sprintf("cv-%d.pdf", i)
		}
		_, err = p.Run(ctx, batch(names...))
		assert.ErrorIs(t, err, ErrTooManyFiles)

		_, err = p.Run(ctx, []File{{Name: "", Content: strings.NewReader("x")}})
		assert.ErrorIs(t, err, ErrEmptyFileName)

		assert.Empty(t, objects.keys, "invalid batches must not touch storage")
	})

	t.Run("upload failure stops the run before provisioning", func(t *testing.T) {
		svc := newFakeService()
		p, holder := newPipeline(t, svc, &fakeObjects{uploadErr: errors.New("bucket gone")})

		_, err := p.Run(ctx, batch("a.pdf"))
		assert.ErrorContains(t, err, "bucket gone")
		assert.Zero(t, svc.created)

		_, ready := holder.Resolve()
		assert.False(t, ready)
	})

	t.Run("failed import resets the reference without rollback", func(t *testing.T) {
		svc := newFakeService()
		svc.importErr = errors.New("import job failed")
		p, holder := newPipeline(t, svc, &fakeObjects{})

		_, err := p.Run(ctx, batch("a.pdf"))
		assert.ErrorContains(t, err, "import job failed")
		assert.Empty(t, svc.deleted, "partial imports are abandoned, not rolled back")

		_, ready := holder.Resolve()
		assert.False(t, ready, "a corpus with a failed import must not serve retrieval")

		// The retry provisions a fresh corpus.
		svc.importErr = nil
		report, err := p.Run(ctx, batch("a.pdf"))
		require.NoError(t, err)
		assert.Equal(t, corpus.Ref("corpora/2"), report.CorpusRef)
	})

	t.Run("failed import on an established corpus resets it too", func(t *testing.T) {
		svc := newFakeService()
		p, holder := newPipeline(t, svc, &fakeObjects{})

		_, err := p.Run(ctx, batch("a.pdf"))
		require.NoError(t, err)

		svc.importErr = errors.New("transient")
		_, err = p.Run(ctx, batch("b.pdf"))
		assert.ErrorContains(t, err, "transient")

		_, ready := holder.Resolve()
		assert.False(t, ready)
		assert.Empty(t, svc.deleted)
	})

	t.Run("partially failed batch reports counts but stays unready", func(t *testing.T) {
		svc := newFakeService()
		svc.result = corpus.ImportResult{Imported: 1, Failed: 1}
		p, holder := newPipeline(t, svc, &fakeObjects{})

		report, err := p.Run(ctx, batch("a.pdf", "b.pdf"))
		require.NoError(t, err)
		assert.Equal(t, 1, report.Imported)
		assert.Equal(t, 1, report.Failed)

		_, ready := holder.Resolve()
		assert.False(t, ready, "readiness requires zero failed files")
	})
}

func TestPipeline_DeleteCorpus(t *testing.T) {
	ctx := context.Background()

	svc := newFakeService()
	p, holder := newPipeline(t, svc, &fakeObjects{})

	assert.ErrorIs(t, p.DeleteCorpus(ctx), corpus.ErrNotFound)

	_, err := p.Run(ctx, batch("a.pdf"))
	require.NoError(t, err)

	require.NoError(t, p.DeleteCorpus(ctx))
	assert.Equal(t, []corpus.Ref{"corpora/1"}, svc.deleted)

	_, ready := holder.Resolve()
	assert.False(t, ready)

	assert.ErrorIs(t, p.DeleteCorpus(ctx), corpus.ErrNotFound)
}
