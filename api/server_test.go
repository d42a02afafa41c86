package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentops/cv-advisor/internal/agent"
	"github.com/talentops/cv-advisor/internal/corpus"
	"github.com/talentops/cv-advisor/internal/ingest"
	"github.com/talentops/cv-advisor/internal/log"
	"github.com/talentops/cv-advisor/internal/runner"
	"github.com/talentops/cv-advisor/internal/session"
)

// echoExecutor answers every query with a fixed prefix, terminally.
type echoExecutor struct{}

func (echoExecutor) Execute(_ context.Context, root *agent.Agent, _ []agent.Message, query string) (<-chan agent.Event, error) {
	ch := make(chan agent.Event, 1)
	ch <- agent.Event{Author: root.Name, Text: "advisor: " + query, Final: true}
	close(ch)
	return ch, nil
}

// memCorpus is a minimal in-memory corpus service.
type memCorpus struct {
	next     int
	existing map[corpus.Ref]bool
}

func newMemCorpus() *memCorpus { return &memCorpus{existing: make(map[corpus.Ref]bool)} }

func (m *memCorpus) Create(context.Context, string, string) (corpus.Ref, error) {
	m.next++
	ref := corpus.Ref(fmt.Sprintf("corpora/%d", m.next))
	m.existing[ref] = true
	return ref, nil
}

func (m *memCorpus) Get(_ context.Context, ref corpus.Ref) (corpus.Ref, error) {
	if !m.existing[ref] {
		return "", corpus.ErrNotFound
	}
	return ref, nil
}

func (m *memCorpus) Delete(_ context.Context, ref corpus.Ref) error {
	if !m.existing[ref] {
		return corpus.ErrNotFound
	}
	delete(m.existing, ref)
	return nil
}

func (m *memCorpus) ImportFiles(_ context.Context, _ corpus.Ref, uris []string, _ corpus.ImportConfig) (corpus.ImportResult, error) {
	return corpus.ImportResult{Imported: len(uris)}, nil
}

func (m *memCorpus) Retrieve(context.Context, corpus.Ref, string, int, float64) ([]corpus.Passage, error) {
	return nil, nil
}

type memObjects struct{}

func (memObjects) Upload(_ context.Context, key string, r io.Reader) (string, error) {
	_, _ = io.Copy(io.Discard, r)
	return "mem://bucket/" + key, nil
}

func (memObjects) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, corpus.ErrNotFound
}

func testGraph() (*agent.Agent, error) {
	return &agent.Agent{
		Kind:        agent.KindSpecialist,
		Name:        "cv_master_agent",
		Instruction: "coordinate",
		Model:       "gemini-2.0-flash",
	}, nil
}

func newTestServer(t *testing.T, withPipeline, withSearch bool) (http.Handler, *ingest.Pipeline) {
	t.Helper()
	logger := log.NewNop()

	sessions := session.NewStore()
	run, err := runner.New(echoExecutor{}, sessions, testGraph, logger)
	require.NoError(t, err)

	var pipeline *ingest.Pipeline
	var corpusRef RefFunc
	if withPipeline {
		holder := &ingest.RefHolder{}
		corpusRef = holder.Resolve
		pipeline, err = ingest.New(newMemCorpus(), memObjects{}, holder, ingest.Options{
			DisplayName:    "RAG for CVs",
			EmbeddingModel: "publishers/google/models/text-embedding-005",
			UploadPrefix:   "rag_uploads/",
			MaxFiles:       25,
			ChunkSize:      1024,
			ChunkOverlap:   200,
			ImportTimeout:  time.Minute,
		}, logger)
		require.NoError(t, err)
	}

	var webGraph runner.GraphFunc
	if withSearch {
		webGraph = testGraph
	}

	srv := NewServer(Deps{
		Runner:    run,
		Sessions:  sessions,
		Pipeline:  pipeline,
		WebGraph:  webGraph,
		CorpusRef: corpusRef,
		Logger:    logger,
	})
	return srv.Handler(), pipeline
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func ingestBatch(t *testing.T, h http.Handler, names ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range names {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = io.Copy(part, strings.NewReader("cv body of "+name))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/index", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	h, _ := newTestServer(t, true, false)

	rec := doJSON(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	t.Run("ready flips after ingestion", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/ready", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		require.Equal(t, http.StatusOK, ingestBatch(t, h, "jane.pdf").Code)

		rec = doJSON(t, h, http.MethodGet, "/ready", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestChatEndpoint(t *testing.T) {
	t.Run("conflicts until a corpus exists", func(t *testing.T) {
		h, _ := newTestServer(t, true, false)

		rec := doJSON(t, h, http.MethodPost, "/api/chat", ChatRequest{Query: "who fits?"})
		assert.Equal(t, http.StatusConflict, rec.Code)

		var errResp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
		assert.Equal(t, "CORPUS_NOT_READY", errResp.Error)

		require.Equal(t, http.StatusOK, ingestBatch(t, h, "jane.pdf").Code)

		rec = doJSON(t, h, http.MethodPost, "/api/chat", ChatRequest{Query: "who fits?"})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp ChatResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "advisor: who fits?", resp.Response)
		assert.NotEmpty(t, resp.SessionID)
	})

	t.Run("conflicts when ingestion is disabled", func(t *testing.T) {
		h, _ := newTestServer(t, false, false)
		rec := doJSON(t, h, http.MethodPost, "/api/chat", ChatRequest{Query: "q"})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("pre-provisioned corpus serves chat without ingestion", func(t *testing.T) {
		logger := log.NewNop()
		sessions := session.NewStore()
		run, err := runner.New(echoExecutor{}, sessions, testGraph, logger)
		require.NoError(t, err)

		holder := ingest.NewRefHolder("projects/p/locations/l/ragCorpora/9")
		h := NewServer(Deps{
			Runner:    run,
			Sessions:  sessions,
			CorpusRef: holder.Resolve,
			Logger:    logger,
		}).Handler()

		rec := doJSON(t, h, http.MethodPost, "/api/chat", ChatRequest{Query: "q"})
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = doJSON(t, h, http.MethodGet, "/api/corpus", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp CorpusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "projects/p/locations/l/ragCorpora/9", resp.Ref)

		rec = ingestBatch(t, h, "jane.pdf")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "ingestion stays disabled")
	})

	t.Run("validates the request", func(t *testing.T) {
		h, _ := newTestServer(t, true, false)

		rec := doJSON(t, h, http.MethodPost, "/api/chat", ChatRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = doJSON(t, h, http.MethodPost, "/api/chat", ChatRequest{Query: strings.Repeat("x", MaxQueryLength+1)})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("{not json"))
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("keeps the session across turns", func(t *testing.T) {
		h, _ := newTestServer(t, true, false)
		require.Equal(t, http.StatusOK, ingestBatch(t, h, "jane.pdf").Code)

		rec := doJSON(t, h, http.MethodPost, "/api/chat", ChatRequest{Query: "first", UserID: "alice"})
		require.Equal(t, http.StatusOK, rec.Code)
		var first ChatResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))

		rec = doJSON(t, h, http.MethodPost, "/api/chat", ChatRequest{Query: "second", UserID: "alice", SessionID: first.SessionID})
		require.Equal(t, http.StatusOK, rec.Code)
		var second ChatResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
		assert.Equal(t, first.SessionID, second.SessionID)

		rec = doJSON(t, h, http.MethodGet, "/api/sessions/"+first.SessionID+"?userId=alice", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var detail SessionDetail
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
		assert.Len(t, detail.History, 4)
	})
}

func TestIndexEndpoint(t *testing.T) {
	h, _ := newTestServer(t, true, false)

	t.Run("ingests a batch", func(t *testing.T) {
		rec := ingestBatch(t, h, "Jane Doe (Backend).pdf", "bob.pdf")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp IndexResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "corpora/1", resp.CorpusRef)
		assert.Equal(t, 2, resp.Imported)
		require.Len(t, resp.Uploaded, 2)
		assert.Contains(t, resp.Uploaded[0], "rag_uploads/Jane_Doe__Backend_.pdf")
	})

	t.Run("rejects oversized batches", func(t *testing.T) {
		names := make([]string, 26)
		for i := range names {
			names[i] = fmt.Sprintf("cv-%d.pdf", i)
		}
		rec := ingestBatch(t, h, names...)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects empty batches", func(t *testing.T) {
		rec := ingestBatch(t, h)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unavailable when ingestion is disabled", func(t *testing.T) {
		h, _ := newTestServer(t, false, false)
		rec := ingestBatch(t, h, "jane.pdf")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestCorpusEndpoints(t *testing.T) {
	h, _ := newTestServer(t, true, false)

	rec := doJSON(t, h, http.MethodGet, "/api/corpus", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.Equal(t, http.StatusOK, ingestBatch(t, h, "jane.pdf").Code)

	rec = doJSON(t, h, http.MethodGet, "/api/corpus", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp CorpusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "corpora/1", resp.Ref)

	rec = doJSON(t, h, http.MethodDelete, "/api/corpus", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/api/corpus", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionEndpoints(t *testing.T) {
	h, _ := newTestServer(t, true, false)

	rec := doJSON(t, h, http.MethodPost, "/api/sessions", CreateSessionRequest{UserID: "alice", SessionID: "s1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created SessionSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "s1", created.ID)

	rec = doJSON(t, h, http.MethodPost, "/api/sessions", CreateSessionRequest{UserID: "alice"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/sessions?userId=alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Equal(t, 2, listed.Total)

	rec = doJSON(t, h, http.MethodGet, "/api/sessions/s1?userId=alice", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/api/sessions/s1?userId=alice", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/sessions/s1?userId=alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearchEndpoint(t *testing.T) {
	t.Run("runs a one-shot search", func(t *testing.T) {
		h, _ := newTestServer(t, true, true)

		rec := doJSON(t, h, http.MethodPost, "/api/search", SearchRequest{Query: "latest Go release"})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp SearchResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "advisor: latest Go release", resp.Response)
	})

	t.Run("unavailable without a search graph", func(t *testing.T) {
		h, _ := newTestServer(t, true, false)
		rec := doJSON(t, h, http.MethodPost, "/api/search", SearchRequest{Query: "q"})
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("validates the request", func(t *testing.T) {
		h, _ := newTestServer(t, true, true)
		rec := doJSON(t, h, http.MethodPost, "/api/search", SearchRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
