package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorUnwrap(t *testing.T) {
	appErr := NewAppError("EXTRACT_AUTH", "credentials rejected", ErrExtractionAuth)

	assert.True(t, errors.Is(appErr, ErrExtractionAuth))
	assert.Contains(t, appErr.Error(), "EXTRACT_AUTH")
	assert.Contains(t, appErr.Error(), "credentials rejected")

	var target *AppError
	assert.True(t, errors.As(fmt.Errorf("boundary: %w", appErr), &target))
	assert.Equal(t, "EXTRACT_AUTH", target.Code)
}

func TestIsRunFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"auth error aborts the run", NewAppError("EXTRACT_AUTH", "401", ErrExtractionAuth), true},
		{"quota error aborts the run", NewAppError("EXTRACT_QUOTA", "quota", ErrExtractionQuota), true},
		{"unavailable is per-document", NewAppError("EXTRACT_UNAVAILABLE", "retries exhausted", ErrExtractionUnavailable), false},
		{"malformed is per-document", ErrMalformedExtraction, false},
		{"unreadable is per-document", ErrUnreadableDocument, false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRunFatal(tt.err))
		})
	}
}

func TestWrapError(t *testing.T) {
	assert.NoError(t, WrapError(nil, "ignored"))

	wrapped := WrapError(ErrNotFound, "loading deck")
	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.Contains(t, wrapped.Error(), "loading deck")
}
