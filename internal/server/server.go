// Package server exposes the aggregation store over HTTP. The presentation
// layer is an external collaborator: it reads deck listings and exports, and
// the only write paths are uploading a deck and triggering re-extraction.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/deckscan/deckscan/internal/common"
	"github.com/deckscan/deckscan/internal/export"
	"github.com/deckscan/deckscan/internal/pipeline"
)

// maxUploadBytes bounds a single deck upload. Pitch decks run a few MB;
// anything near this limit is image-heavy and will not extract text anyway.
const maxUploadBytes = 64 << 20

type Server struct {
	proc     *pipeline.Processor
	exporter *export.Service
	logger   *slog.Logger
	timeout  time.Duration
}

func New(proc *pipeline.Processor, exporter *export.Service, cfg common.ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Server{
		proc:     proc,
		exporter: exporter,
		logger:   logger,
		timeout:  timeout,
	}
}

// Router builds the HTTP handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(s.timeout))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/decks", func(r chi.Router) {
			r.Get("/", s.handleListDecks)
			r.Post("/", s.handleUploadDeck)
			r.Delete("/", s.handleClearDecks)

			r.Route("/{filename}", func(r chi.Router) {
				r.Get("/", s.handleGetDeck)
				r.Post("/reextract", s.handleReExtract)
				r.Post("/score", s.handleScore)
				r.Post("/insights", s.handleInsights)
				r.Post("/keyslides", s.handleKeySlides)
			})
		})
		r.Get("/export", s.handleExport)
	})

	return r
}
