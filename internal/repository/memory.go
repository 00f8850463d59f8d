package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/deckscan/deckscan/internal/common"
	"github.com/deckscan/deckscan/internal/entity"
)

// memoryStore keeps the session's decks in process memory. A single mutex
// serializes writers; readers work on copies so a later upsert cannot mutate
// a snapshot a caller already holds.
type memoryStore struct {
	mu    sync.RWMutex
	order []string
	decks map[string]*entity.Deck
}

// NewMemoryStore returns the default, dependency-free store backend.
func NewMemoryStore() DeckStore {
	return &memoryStore{decks: make(map[string]*entity.Deck)}
}

func (s *memoryStore) Upsert(_ context.Context, deck *entity.Deck) error {
	if deck == nil || deck.Filename == "" {
		return common.NewAppError("INVALID_INPUT", "deck filename is required", common.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.decks[deck.Filename]; !exists {
		s.order = append(s.order, deck.Filename)
	}
	s.decks[deck.Filename] = cloneDeck(deck)
	return nil
}

func (s *memoryStore) All(_ context.Context) ([]*entity.Deck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entity.Deck, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, cloneDeck(s.decks[name]))
	}
	return out, nil
}

func (s *memoryStore) Get(_ context.Context, filename string) (*entity.Deck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	deck, ok := s.decks[filename]
	if !ok {
		return nil, common.NewAppError("NOT_FOUND", fmt.Sprintf("deck %q", filename), common.ErrNotFound)
	}
	return cloneDeck(deck), nil
}

func (s *memoryStore) Filter(ctx context.Context, f Filter) ([]*entity.Deck, error) {
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

func (s *memoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = nil
	s.decks = make(map[string]*entity.Deck)
	return nil
}

func (s *memoryStore) Close() error { return nil }

func cloneDeck(d *entity.Deck) *entity.Deck {
	if d == nil {
		return nil
	}
	out := *d
	out.Record = cloneRecord(d.Record)
	if d.PageTexts != nil {
		out.PageTexts = append([]string(nil), d.PageTexts...)
	}
	return &out
}

func cloneRecord(r entity.PitchDeckRecord) entity.PitchDeckRecord {
	out := r
	// founders stays non-nil even when empty
	out.Founders = make([]string, len(r.Founders))
	copy(out.Founders, r.Founders)
	out.FoundingYear = cloneString(r.FoundingYear)
	out.Market.TAM = cloneString(r.Market.TAM)
	out.Market.SAM = cloneString(r.Market.SAM)
	out.Market.SOM = cloneString(r.Market.SOM)
	return out
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}
