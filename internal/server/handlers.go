package server

import (
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/deckscan/deckscan/constants"
	"github.com/deckscan/deckscan/internal/common"
	"github.com/deckscan/deckscan/internal/entity"
	"github.com/deckscan/deckscan/internal/export"
	"github.com/deckscan/deckscan/internal/repository"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "deckscan",
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	decks, err := s.proc.Store().All(r.Context())
	if err != nil {
		s.logger.Error("server.ready.store_error", "error", err)
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"decks":  len(decks),
	})
}

type listResponse struct {
	Decks []*entity.Deck `json:"decks"`
	Count int            `json:"count"`
}

func (s *Server) handleListDecks(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	decks, err := s.proc.Store().Filter(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, listResponse{Decks: decks, Count: len(decks)})
}

func (s *Server) handleGetDeck(w http.ResponseWriter, r *http.Request) {
	filename, err := deckFilename(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	deck, err := s.proc.Store().Get(r.Context(), filename)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, deck)
}

// handleUploadDeck accepts one PDF as the multipart field "file" and runs
// extraction synchronously. A document failure still stores a placeholder
// row; the response carries both the error and that row.
func (s *Server) handleUploadDeck(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, common.NewAppError("INVALID_INPUT",
			`multipart field "file" is required`, common.ErrInvalidInput))
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, common.NewAppError("INVALID_INPUT", "read upload body", common.ErrInvalidInput))
		return
	}

	filename := filepath.Base(header.Filename)
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		s.writeError(w, common.NewAppError("INVALID_INPUT", "upload filename is required", common.ErrInvalidInput))
		return
	}
	ext := constants.NormalizeExt(filepath.Ext(filename))
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		s.writeError(w, common.NewAppError("INVALID_INPUT",
			"unsupported upload extension ."+ext, common.ErrInvalidInput))
		return
	}

	deck, err := s.proc.ProcessDeck(r.Context(), filename, data)
	if err != nil {
		s.writeFailure(w, err, deck)
		return
	}
	s.writeJSON(w, http.StatusCreated, deck)
}

func (s *Server) handleClearDecks(w http.ResponseWriter, r *http.Request) {
	if err := s.proc.Store().Clear(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("server.decks.cleared")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReExtract(w http.ResponseWriter, r *http.Request) {
	filename, err := deckFilename(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	deck, err := s.proc.ReExtract(r.Context(), filename)
	if err != nil {
		s.writeFailure(w, err, deck)
		return
	}
	s.writeJSON(w, http.StatusOK, deck)
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	filename, err := deckFilename(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	report, err := s.proc.Score(r.Context(), filename)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	filename, err := deckFilename(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	report, err := s.proc.Insights(r.Context(), filename)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleKeySlides(w http.ResponseWriter, r *http.Request) {
	filename, err := deckFilename(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	slides, err := s.proc.KeySlides(r.Context(), filename)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, slides)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("format")
	if name == "" {
		name = string(export.FormatCSV)
	}
	format, err := export.ParseFormat(name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	out, err := s.exporter.Export(r.Context(), format, filter)
	if err != nil {
		s.writeError(w, err)
		return
	}

	downloadName := "decks-" + time.Now().UTC().Format("20060102-150405") + format.Ext()
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+downloadName+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out); err != nil {
		s.logger.Warn("server.export.write_error", "error", err)
	}
}

// deckFilename reads the {filename} route parameter. Filenames arrive
// URL-escaped ("my deck.pdf" as my%20deck.pdf).
func deckFilename(r *http.Request) (string, error) {
	name, err := url.PathUnescape(chi.URLParam(r, "filename"))
	if err != nil || strings.TrimSpace(name) == "" {
		return "", common.NewAppError("INVALID_INPUT", "deck filename is required", common.ErrInvalidInput)
	}
	return name, nil
}

// parseFilter maps list/export query parameters onto a store filter.
// industry and stage repeat; year_from/year_to bound the founding year.
func parseFilter(r *http.Request) (repository.Filter, error) {
	q := r.URL.Query()
	f := repository.Filter{
		Industries: q["industry"],
		Stages:     q["stage"],
		Query:      strings.TrimSpace(q.Get("q")),
	}

	if v := strings.TrimSpace(q.Get("year_from")); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			return repository.Filter{}, common.NewAppError("INVALID_INPUT",
				"year_from must be a year", common.ErrInvalidInput)
		}
		f.YearFrom = year
	}
	if v := strings.TrimSpace(q.Get("year_to")); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			return repository.Filter{}, common.NewAppError("INVALID_INPUT",
				"year_to must be a year", common.ErrInvalidInput)
		}
		f.YearTo = year
	}

	if v := strings.TrimSpace(q.Get("status")); v != "" {
		switch status := constants.DeckStatus(strings.ToUpper(v)); status {
		case constants.DeckStatusProcessed, constants.DeckStatusFailed:
			f.Status = status
		default:
			return repository.Filter{}, common.NewAppError("INVALID_INPUT",
				"status must be PROCESSED or FAILED", common.ErrInvalidInput)
		}
	}
	return f, nil
}
