package repository

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/deckscan/deckscan/constants"
	"github.com/deckscan/deckscan/internal/common"
	"github.com/deckscan/deckscan/internal/entity"
)

// Filter narrows a listing to decks matching every set predicate.
// Zero values mean "any".
type Filter struct {
	Industries []string // matched via the industry taxonomy, synonyms included
	Stages     []string
	YearFrom   int    // founding year, inclusive
	YearTo     int    // founding year, inclusive
	Query      string // case-insensitive substring over name, niche, and USP
	Status     constants.DeckStatus
}

// DeckStore aggregates processed decks for the session. Upsert replaces by
// filename; All and Filter return decks in first-insertion order.
type DeckStore interface {
	Upsert(ctx context.Context, deck *entity.Deck) error
	All(ctx context.Context) ([]*entity.Deck, error)
	Get(ctx context.Context, filename string) (*entity.Deck, error)
	Filter(ctx context.Context, f Filter) ([]*entity.Deck, error)
	Clear(ctx context.Context) error
	Close() error
}

// NewStore builds the configured store backend.
func NewStore(ctx context.Context, cfg common.StoreConfig, logger *slog.Logger) (DeckStore, error) {
	switch cfg.Backend {
	case common.StoreSQLite:
		return NewSQLiteStore(ctx, cfg.SQLitePath, logger)
	case common.StorePostgres:
		pool, err := OpenPostgres(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return NewPostgresStore(ctx, pool, logger)
	case common.StoreMemory, "":
		return NewMemoryStore(), nil
	default:
		return nil, common.NewAppError("CONFIG_ERROR", "unknown store backend "+cfg.Backend, common.ErrInvalidInput)
	}
}

// Matches reports whether a deck satisfies every set predicate.
// All stores share this so a filter means the same thing everywhere.
func (f Filter) Matches(d *entity.Deck) bool {
	if f.Status != "" && d.Status != f.Status {
		return false
	}
	if len(f.Industries) > 0 && !matchesTaxonomy(f.Industries, d.Record.Industry, industryKey) {
		return false
	}
	if len(f.Stages) > 0 && !matchesTaxonomy(f.Stages, d.Record.FundingStage, stageKey) {
		return false
	}
	if f.YearFrom != 0 || f.YearTo != 0 {
		year, ok := foundingYear(d.Record.FoundingYear)
		if !ok {
			return false
		}
		if f.YearFrom != 0 && year < f.YearFrom {
			return false
		}
		if f.YearTo != 0 && year > f.YearTo {
			return false
		}
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		hay := strings.ToLower(d.Record.StartupName + "\n" + d.Record.Niche + "\n" + d.Record.USP)
		if !strings.Contains(hay, q) {
			return false
		}
	}
	return true
}

func matchesTaxonomy(wanted []string, got string, key func(string) string) bool {
	gk := key(got)
	if gk == "" {
		return false
	}
	for _, w := range wanted {
		if key(w) == gk {
			return true
		}
	}
	return false
}

// industryKey folds an industry spelling onto its canonical taxonomy entry,
// so "crypto" finds decks extracted as "Blockchain".
func industryKey(s string) string {
	if s == "" {
		return ""
	}
	if ind, ok := constants.CanonicalizeIndustry(s); ok {
		return string(ind)
	}
	return strings.ToLower(strings.TrimSpace(s))
}

func stageKey(s string) string {
	if s == "" {
		return ""
	}
	if st, ok := constants.CanonicalizeStage(s); ok {
		return string(st)
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// foundingYear parses a normalized founding-year string ("2019").
func foundingYear(v *string) (int, bool) {
	if v == nil {
		return 0, false
	}
	year, err := strconv.Atoi(strings.TrimSpace(*v))
	if err != nil {
		return 0, false
	}
	return year, true
}
