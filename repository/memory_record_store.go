package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"

	"keystone-backend/models"
	"keystone-backend/textmatch"

	"github.com/google/uuid"
)

// MemoryRecordStore is an in-process knowledge store backed by a record
// slice. It serves local development (corpus JSON files, no database) and
// tests; lookups are fully deterministic.
type MemoryRecordStore struct {
	mu      sync.RWMutex
	records []models.Record
	byID    map[uuid.UUID]models.Record
}

// NewMemoryRecordStore creates a memory store pre-loaded with the given records.
func NewMemoryRecordStore(records ...models.Record) *MemoryRecordStore {
	s := &MemoryRecordStore{byID: make(map[uuid.UUID]models.Record)}
	s.Add(records...)
	return s
}

// Add appends records to the store. Records with a zero weight are stored at
// the neutral weight 1.0.
func (s *MemoryRecordStore) Add(records ...models.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		if rec.Weight == 0 {
			rec.Weight = 1.0
		}
		s.records = append(s.records, rec)
		s.byID[rec.ID] = rec
	}
}

// AddFromJSON reads a JSON array of records and appends them to the store.
func (s *MemoryRecordStore) AddFromJSON(r io.Reader) error {
	var records []models.Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return fmt.Errorf("failed to decode corpus records: %w", err)
	}
	s.Add(records...)
	return nil
}

// Lookup returns records of the given kind scored by keyword containment of
// the query terms, in descending relevance order with ties broken by id
// ascending. Tag filters apply as set intersection.
func (s *MemoryRecordStore) Lookup(ctx context.Context, kind models.RecordKind, q models.RecordQuery) ([]models.ScoredRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	queryTokens := textmatch.Tokenize(q.Terms...)

	var scored []models.ScoredRecord
	for _, rec := range s.records {
		if rec.Kind != kind {
			continue
		}
		if len(q.Tags) > 0 && !textmatch.TagsIntersect(rec.Tags, q.Tags) {
			continue
		}
		if len(q.ExcludeTags) > 0 && textmatch.TagsIntersect(rec.Tags, q.ExcludeTags) {
			continue
		}

		docTokens := textmatch.Tokenize(rec.Text)
		docTokens = append(docTokens, textmatch.Tokenize(rec.Tags...)...)
		score := textmatch.Containment(queryTokens, docTokens) * rec.Weight
		if score > 1.0 {
			score = 1.0
		}
		if score <= 0 {
			continue
		}
		scored = append(scored, models.ScoredRecord{Record: rec, Relevance: score})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Relevance != scored[j].Relevance {
			return scored[i].Relevance > scored[j].Relevance
		}
		return scored[i].Record.ID.String() < scored[j].Record.ID.String()
	})

	if q.Limit > 0 && len(scored) > q.Limit {
		scored = scored[:q.Limit]
	}
	return scored, nil
}

// Get retrieves a record by id.
func (s *MemoryRecordStore) Get(ctx context.Context, id uuid.UUID) (*models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("record %s: %w", id, models.ErrNotFound)
	}
	return &rec, nil
}
