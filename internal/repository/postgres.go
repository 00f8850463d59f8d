package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deckscan/deckscan/internal/common"
	"github.com/deckscan/deckscan/internal/entity"
)

// position is assigned once on first insert; DO UPDATE leaves it alone, so
// re-extracted decks keep their original place in the listing.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS decks (
	filename     TEXT PRIMARY KEY,
	position     BIGSERIAL,
	id           TEXT NOT NULL,
	status       TEXT NOT NULL,
	fail_reason  TEXT NOT NULL DEFAULT '',
	pages        INTEGER NOT NULL DEFAULT 0,
	extracted_at TIMESTAMPTZ NOT NULL,
	record_json  JSONB NOT NULL,
	raw_text     TEXT NOT NULL DEFAULT '',
	page_texts   JSONB NOT NULL DEFAULT '[]'::jsonb
)`

const postgresUpsert = `
INSERT INTO decks (filename, id, status, fail_reason, pages, extracted_at, record_json, raw_text, page_texts)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (filename) DO UPDATE SET
	id           = EXCLUDED.id,
	status       = EXCLUDED.status,
	fail_reason  = EXCLUDED.fail_reason,
	pages        = EXCLUDED.pages,
	extracted_at = EXCLUDED.extracted_at,
	record_json  = EXCLUDED.record_json,
	raw_text     = EXCLUDED.raw_text,
	page_texts   = EXCLUDED.page_texts`

const postgresSelect = `
SELECT filename, id, status, fail_reason, pages, extracted_at, record_json, raw_text, page_texts
FROM decks ORDER BY position`

const postgresGet = `
SELECT filename, id, status, fail_reason, pages, extracted_at, record_json, raw_text, page_texts
FROM decks WHERE filename = $1`

// OpenPostgres creates a pgx pool from the store configuration.
func OpenPostgres(ctx context.Context, cfg common.StoreConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("store.postgres.parse_config_error", "error", err)
		return nil, dbError("parse postgres dsn", err)
	}

	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "deckscan"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = cfg.StatementTimeout.String()
	}

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("store.postgres.connect_error", "error", err)
		return nil, dbError("connect to postgres", err)
	}

	logger.Info("store.postgres.open")
	return pool, nil
}

// HealthCheck pings the pool, bounded by timeout when one is given.
func HealthCheck(ctx context.Context, pool *pgxpool.Pool, timeout time.Duration, logger *slog.Logger) error {
	logger.Debug("store.postgres.ping")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return pool.Ping(ctx)
}

type postgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresStore ensures the schema and wraps the pool as a DeckStore.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) (DeckStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return nil, dbError("create decks table", err)
	}
	return &postgresStore{pool: pool, logger: logger}, nil
}

func (s *postgresStore) Upsert(ctx context.Context, deck *entity.Deck) error {
	if deck == nil || deck.Filename == "" {
		return common.NewAppError("INVALID_INPUT", "deck filename is required", common.ErrInvalidInput)
	}
	recordJSON, pageTexts, err := encodeDeck(deck)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, postgresUpsert,
		deck.Filename,
		deck.ID.String(),
		string(deck.Status),
		deck.FailReason,
		deck.Pages,
		deck.ExtractedAt.UTC(),
		recordJSON,
		deck.RawText,
		pageTexts,
	)
	if err != nil {
		return dbError(fmt.Sprintf("upsert deck %q", deck.Filename), err)
	}
	return nil
}

func (s *postgresStore) All(ctx context.Context) ([]*entity.Deck, error) {
	rows, err := s.pool.Query(ctx, postgresSelect)
	if err != nil {
		return nil, dbError("list decks", err)
	}
	defer rows.Close()

	var out []*entity.Deck
	for rows.Next() {
		deck, err := scanPostgresDeck(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, deck)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("list decks", err)
	}
	return out, nil
}

func (s *postgresStore) Get(ctx context.Context, filename string) (*entity.Deck, error) {
	rows, err := s.pool.Query(ctx, postgresGet, filename)
	if err != nil {
		return nil, dbError(fmt.Sprintf("get deck %q", filename), err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, dbError(fmt.Sprintf("get deck %q", filename), err)
		}
		return nil, common.NewAppError("NOT_FOUND", fmt.Sprintf("deck %q", filename), common.ErrNotFound)
	}
	return scanPostgresDeck(rows)
}

func (s *postgresStore) Filter(ctx context.Context, f Filter) ([]*entity.Deck, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.Deck, 0, len(all))
	for _, deck := range all {
		if f.Matches(deck) {
			out = append(out, deck)
		}
	}
	return out, nil
}

func (s *postgresStore) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM decks`); err != nil {
		return dbError("clear decks", err)
	}
	return nil
}

func (s *postgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanPostgresDeck(rows pgx.Rows) (*entity.Deck, error) {
	var (
		deck       entity.Deck
		id         string
		status     string
		recordJSON []byte
		pageTexts  []byte
	)
	var extractedAt time.Time
	err := rows.Scan(&deck.Filename, &id, &status, &deck.FailReason, &deck.Pages, &extractedAt, &recordJSON, &deck.RawText, &pageTexts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, dbError("scan deck row", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, dbError("parse deck id", err)
	}
	deck.ID = parsed
	deck.ExtractedAt = extractedAt
	return decodeRecordFields(&deck, status, recordJSON, pageTexts)
}
