package export

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/deckscan/deckscan/internal/common"
	"github.com/deckscan/deckscan/internal/repository"
)

// Format selects an export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", common.NewAppError("INVALID_INPUT", "unknown export format "+s, common.ErrInvalidInput)
	}
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv"
	}
}

// Ext returns the file extension, dot included.
func (f Format) Ext() string {
	return "." + string(f)
}

// Service serializes the aggregation store into downloadable bytes.
type Service struct {
	store  repository.DeckStore
	logger *slog.Logger
}

func NewService(store repository.DeckStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Export serializes every deck matching the filter.
// A zero filter exports the whole store.
func (s *Service) Export(ctx context.Context, format Format, filter repository.Filter) ([]byte, error) {
	start := time.Now()

	decks, err := s.store.Filter(ctx, filter)
	if err != nil {
		return nil, err
	}

	var out []byte
	switch format {
	case FormatCSV:
		out, err = marshalCSV(decks)
	case FormatJSON:
		out, err = marshalJSON(decks)
	case FormatXLSX:
		out, err = marshalXLSX(decks)
	default:
		return nil, common.NewAppError("INVALID_INPUT", "unknown export format "+string(format), common.ErrInvalidInput)
	}
	if err != nil {
		return nil, common.NewAppError("INTERNAL", "encode export: "+err.Error(), common.ErrInternal)
	}

	s.logger.Info("export."+string(format)+".ok",
		"rows", len(decks),
		"bytes", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}
