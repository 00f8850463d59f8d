package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/deckscan/deckscan/constants"
	"github.com/deckscan/deckscan/internal/common"
	"github.com/deckscan/deckscan/internal/entity"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS decks (
	filename     TEXT PRIMARY KEY,
	id           TEXT NOT NULL,
	status       TEXT NOT NULL,
	fail_reason  TEXT NOT NULL DEFAULT '',
	pages        INTEGER NOT NULL DEFAULT 0,
	extracted_at TEXT NOT NULL,
	record_json  TEXT NOT NULL,
	raw_text     TEXT NOT NULL DEFAULT '',
	page_texts   TEXT NOT NULL DEFAULT '[]'
)`

const sqliteUpsert = `
INSERT INTO decks (filename, id, status, fail_reason, pages, extracted_at, record_json, raw_text, page_texts)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(filename) DO UPDATE SET
	id           = excluded.id,
	status       = excluded.status,
	fail_reason  = excluded.fail_reason,
	pages        = excluded.pages,
	extracted_at = excluded.extracted_at,
	record_json  = excluded.record_json,
	raw_text     = excluded.raw_text,
	page_texts   = excluded.page_texts`

// rowid preserves first-insertion order across upserts because DO UPDATE
// rewrites the row in place instead of replacing it.
const sqliteSelect = `
SELECT filename, id, status, fail_reason, pages, extracted_at, record_json, raw_text, page_texts
FROM decks ORDER BY rowid`

const sqliteGet = `
SELECT filename, id, status, fail_reason, pages, extracted_at, record_json, raw_text, page_texts
FROM decks WHERE filename = ?`

type sqliteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the database file and ensures the schema.
func NewSQLiteStore(ctx context.Context, path string, logger *slog.Logger) (DeckStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, dbError("open sqlite database", err)
	}
	// sqlite allows one writer at a time; a single connection avoids
	// SQLITE_BUSY instead of surfacing it.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, dbError("ping sqlite database", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, dbError("create decks table", err)
	}

	logger.Info("store.sqlite.open", "path", path)
	return &sqliteStore{db: db, logger: logger}, nil
}

func (s *sqliteStore) Upsert(ctx context.Context, deck *entity.Deck) error {
	if deck == nil || deck.Filename == "" {
		return common.NewAppError("INVALID_INPUT", "deck filename is required", common.ErrInvalidInput)
	}
	recordJSON, pageTexts, err := encodeDeck(deck)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, sqliteUpsert,
		deck.Filename,
		deck.ID.String(),
		string(deck.Status),
		deck.FailReason,
		deck.Pages,
		deck.ExtractedAt.UTC().Format(time.RFC3339Nano),
		recordJSON,
		deck.RawText,
		pageTexts,
	)
	if err != nil {
		return dbError(fmt.Sprintf("upsert deck %q", deck.Filename), err)
	}
	return nil
}

func (s *sqliteStore) All(ctx context.Context) ([]*entity.Deck, error) {
	rows, err := s.db.QueryContext(ctx, sqliteSelect)
	if err != nil {
		return nil, dbError("list decks", err)
	}
	defer rows.Close()

	var out []*entity.Deck
	for rows.Next() {
		deck, err := scanSQLiteDeck(rows)
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

func (s *sqliteStore) Get(ctx context.Context, filename string) (*entity.Deck, error) {
	deck, err := scanSQLiteDeck(s.db.QueryRowContext(ctx, sqliteGet, filename))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewAppError("NOT_FOUND", fmt.Sprintf("deck %q", filename), common.ErrNotFound)
	}
	return deck, err
}

func (s *sqliteStore) Filter(ctx context.Context, f Filter) ([]*entity.Deck, error) {
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

func (s *sqliteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM decks`); err != nil {
		return dbError("clear decks", err)
	}
	return nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteDeck(row rowScanner) (*entity.Deck, error) {
	var (
		deck        entity.Deck
		id          string
		status      string
		extractedAt string
		recordJSON  []byte
		pageTexts   []byte
	)
	err := row.Scan(&deck.Filename, &id, &status, &deck.FailReason, &deck.Pages, &extractedAt, &recordJSON, &deck.RawText, &pageTexts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, dbError("scan deck row", err)
	}
	return decodeDeck(&deck, id, status, extractedAt, recordJSON, pageTexts)
}

// encodeDeck serializes the nested record and page texts for storage.
func encodeDeck(deck *entity.Deck) (recordJSON, pageTexts []byte, err error) {
	recordJSON, err = json.Marshal(deck.Record)
	if err != nil {
		return nil, nil, dbError("encode deck record", err)
	}
	texts := deck.PageTexts
	if texts == nil {
		texts = []string{}
	}
	pageTexts, err = json.Marshal(texts)
	if err != nil {
		return nil, nil, dbError("encode page texts", err)
	}
	return recordJSON, pageTexts, nil
}

func decodeDeck(deck *entity.Deck, id, status, extractedAt string, recordJSON, pageTexts []byte) (*entity.Deck, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, dbError("parse deck id", err)
	}
	deck.ID = parsed

	ts, err := time.Parse(time.RFC3339Nano, extractedAt)
	if err != nil {
		return nil, dbError("parse extraction timestamp", err)
	}
	deck.ExtractedAt = ts

	return decodeRecordFields(deck, status, recordJSON, pageTexts)
}

// decodeRecordFields finishes hydration shared by the sql-backed stores.
func decodeRecordFields(deck *entity.Deck, status string, recordJSON, pageTexts []byte) (*entity.Deck, error) {
	deck.Status = constants.DeckStatus(status)
	if err := json.Unmarshal(recordJSON, &deck.Record); err != nil {
		return nil, dbError("decode deck record", err)
	}
	if deck.Record.Founders == nil {
		deck.Record.Founders = []string{}
	}
	if err := json.Unmarshal(pageTexts, &deck.PageTexts); err != nil {
		return nil, dbError("decode page texts", err)
	}
	return deck, nil
}

func dbError(msg string, err error) error {
	return common.NewAppError("DATABASE_ERROR", fmt.Sprintf("%s: %v", msg, err), common.ErrDatabase)
}
