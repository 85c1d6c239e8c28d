// Package server provides the HTTP API for the backlinker daemon.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/EliasMarine/Backlinker-sub000/internal/backup"
	"github.com/EliasMarine/Backlinker-sub000/internal/batch"
	"github.com/EliasMarine/Backlinker-sub000/internal/config"
	"github.com/EliasMarine/Backlinker-sub000/internal/corpus"
	"github.com/EliasMarine/Backlinker-sub000/internal/indexer"
	"github.com/EliasMarine/Backlinker-sub000/internal/keyword"
	"github.com/EliasMarine/Backlinker-sub000/internal/scoring"
	"github.com/EliasMarine/Backlinker-sub000/internal/storage"
)

// Server is the HTTP server for the backlinker API.
type Server struct {
	corpus       *corpus.Corpus
	scorer       *scoring.Scorer
	orchestrator *batch.Orchestrator
	backups      *backup.Manager
	keywords     keyword.KeywordIndex
	indexer      *indexer.Indexer
	storage      storage.Storage
	config       *config.Config
	thresholds   scoring.Thresholds
	logger       *zap.Logger
	server       *http.Server
}

// Deps bundles the components the server exposes over HTTP. Keywords and
// Indexer may be nil; their endpoints report 501 when absent.
type Deps struct {
	Corpus       *corpus.Corpus
	Scorer       *scoring.Scorer
	Orchestrator *batch.Orchestrator
	Backups      *backup.Manager
	Keywords     keyword.KeywordIndex
	Indexer      *indexer.Indexer
	Storage      storage.Storage
	Config       *config.Config
	Logger       *zap.Logger
}

// NewServer creates a server with the given dependencies.
func NewServer(deps Deps) *Server {
	return &Server{
		corpus:       deps.Corpus,
		scorer:       deps.Scorer,
		orchestrator: deps.Orchestrator,
		backups:      deps.Backups,
		keywords:     deps.Keywords,
		indexer:      deps.Indexer,
		storage:      deps.Storage,
		config:       deps.Config,
		thresholds: scoring.Thresholds{
			Lexical:  deps.Config.Scoring.LexicalThreshold,
			Semantic: deps.Config.Scoring.SemanticThreshold,
			Combined: deps.Config.Scoring.CombinedThreshold,
		},
		logger: deps.Logger,
	}
}

// Router builds the chi router for the API.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/api/v1/documents/{id}", s.handleGetDocument)
	r.Post("/api/v1/similar", s.handleSimilar)
	r.Post("/api/v1/suggestions", s.handleSuggestions)
	r.Post("/api/v1/link", s.handleLink)
	r.Post("/api/v1/search", s.handleSearch)
	r.Get("/api/v1/backups", s.handleBackupsList)
	r.Get("/api/v1/backups/history", s.handleBackupsHistory)
	r.Delete("/api/v1/backups/{id}", s.handleBackupsDelete)
	r.Post("/api/v1/restore/{id}", s.handleRestore)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
