package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/deckscan/deckscan/internal/common"
	"github.com/deckscan/deckscan/internal/entity"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorResponse is the envelope for failed requests. Deck is set when a
// document failure produced a stored placeholder, so the client sees the row
// it will find in the listing.
type errorResponse struct {
	Error errorBody    `json:"error"`
	Deck  *entity.Deck `json:"deck,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("server.respond.encode_error", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeFailure(w, err, nil)
}

func (s *Server) writeFailure(w http.ResponseWriter, err error, deck *entity.Deck) {
	status, code := classify(err)
	msg := err.Error()
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	} else if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	s.writeJSON(w, status, errorResponse{
		Error: errorBody{Code: code, Message: msg},
		Deck:  deck,
	})
}

// classify maps the error taxonomy onto HTTP statuses. Upstream model
// failures are gateway errors: the request was fine, the extraction
// dependency was not.
func classify(err error) (int, string) {
	code := "INTERNAL"
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		code = appErr.Code
	}

	switch {
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound, code
	case errors.Is(err, common.ErrUnreadableDocument),
		errors.Is(err, common.ErrInvalidInput):
		return http.StatusBadRequest, code
	case errors.Is(err, common.ErrMalformedExtraction):
		return http.StatusUnprocessableEntity, code
	case errors.Is(err, common.ErrExtractionAuth),
		errors.Is(err, common.ErrExtractionQuota),
		errors.Is(err, common.ErrExtractionUnavailable):
		return http.StatusBadGateway, code
	default:
		return http.StatusInternalServerError, code
	}
}
