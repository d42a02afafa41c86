// Package api exposes the CV advisor over HTTP REST.
//
// Endpoints:
//
//	GET    /health              liveness probe
//	GET    /ready               readiness probe (corpus availability)
//	POST   /api/chat            one conversational turn with the advisor
//	POST   /api/search          one-shot external web search
//	POST   /api/index           ingest CV documents into the corpus
//	GET    /api/corpus          active corpus reference
//	DELETE /api/corpus          drop the active corpus
//	GET    /api/sessions        list a user's sessions
//	POST   /api/sessions        create a session
//	GET    /api/sessions/{id}   fetch one session with its transcript
//	DELETE /api/sessions/{id}   delete a session
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: HTTP middleware (logging, recovery)
//   - response.go: JSON response helpers
//   - health.go: probes
//   - chat.go: advisor chat endpoint
//   - search.go: standalone web search endpoint
//   - index.go: document ingestion endpoint
//   - corpus.go: corpus inspection endpoints
//   - sessions.go: session CRUD endpoints
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/talentops/cv-advisor/internal/ingest"
	"github.com/talentops/cv-advisor/internal/log"
	"github.com/talentops/cv-advisor/internal/runner"
	"github.com/talentops/cv-advisor/internal/session"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = "127.0.0.1:3400"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	// Document uploads can be sizable, so this is generous.
	ReadTimeout = 120 * time.Second

	// WriteTimeout is the maximum duration for writing the response. Agent
	// turns include model calls, which dominate this budget.
	WriteTimeout = 300 * time.Second

	// IdleTimeout is the maximum time to wait for the next request on
	// keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// Server is the HTTP server for the advisor's REST API.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger

	health   *HealthHandler
	chat     *ChatHandler
	search   *SearchHandler
	index    *IndexHandler
	corpus   *CorpusHandler
	sessions *SessionHandler
}

// Deps are the wired components the server exposes. Pipeline, WebGraph and
// CorpusRef are optional; their endpoints degrade gracefully when absent.
type Deps struct {
	Runner   *runner.Runner
	Sessions *session.Store
	Pipeline *ingest.Pipeline
	WebGraph runner.GraphFunc
	// CorpusRef resolves the active corpus; it gates chat and readiness.
	CorpusRef RefFunc
	Logger    log.Logger
}

// NewServer creates a new HTTP server with all routes registered.
func NewServer(deps Deps) *Server {
	mux := http.NewServeMux()

	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	var ready ReadyFunc
	if deps.CorpusRef != nil {
		ready = func() bool {
			_, ok := deps.CorpusRef()
			return ok
		}
	}

	s := &Server{
		mux:      mux,
		logger:   deps.Logger,
		health:   NewHealthHandler(ready, deps.Logger),
		chat:     NewChatHandler(deps.Runner, ready, deps.Logger),
		search:   NewSearchHandler(deps.Runner, deps.WebGraph, deps.Logger),
		index:    NewIndexHandler(deps.Pipeline, deps.Logger),
		corpus:   NewCorpusHandler(deps.CorpusRef, deps.Pipeline, deps.Logger),
		sessions: NewSessionHandler(deps.Sessions, deps.Logger),
	}

	s.health.RegisterRoutes(mux)
	s.chat.RegisterRoutes(mux)
	s.search.RegisterRoutes(mux)
	s.index.RegisterRoutes(mux)
	s.corpus.RegisterRoutes(mux)
	s.sessions.RegisterRoutes(mux)

	return s
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery → logging → handler
func (s *Server) Handler() http.Handler {
	return chain(s.mux, recoveryMiddleware(s.logger), loggingMiddleware(s.logger))
}

// Run starts the HTTP server and blocks until the context is cancelled.
// It handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
