package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Document- and run-level extraction errors. The first is fatal for the
// document only; auth and quota are fatal for the whole run.
var (
	ErrUnreadableDocument    = errors.New("unreadable document")
	ErrExtractionUnavailable = errors.New("extraction unavailable")
	ErrExtractionAuth        = errors.New("extraction auth error")
	ErrExtractionQuota       = errors.New("extraction quota exhausted")
	ErrMalformedExtraction   = errors.New("malformed extraction")
)

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsRunFatal reports whether err must abort a whole batch run rather than
// just the current document.
func IsRunFatal(err error) bool {
	return errors.Is(err, ErrExtractionAuth) || errors.Is(err, ErrExtractionQuota)
}
