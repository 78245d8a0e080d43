package service

import (
	"context"
	"fmt"
	"sort"

	"keystone-backend/models"
)

// Retriever runs ranked lookups against a single knowledge store. The engine
// holds two of these: one over the legal collection, one over the principle
// collection. They never share a call.
type Retriever struct {
	store RecordStore
}

// NewRetriever creates a retriever over the given store.
func NewRetriever(store RecordStore) *Retriever {
	return &Retriever{store: store}
}

// Retrieve returns up to limit records of the given kind, scored in [0,1] and
// ordered by descending relevance with ties broken by id ascending. Results
// scoring below floor are dropped. Identical query and store state produce
// identical output.
func (r *Retriever) Retrieve(ctx context.Context, query models.Query, kind models.RecordKind, limit int, floor float64) ([]models.ScoredRecord, error) {
	if limit < 1 {
		return nil, fmt.Errorf("retrieve limit must be >= 1, got %d: %w", limit, models.ErrInvalidArgument)
	}

	rq := models.RecordQuery{
		Terms: query.Terms(),
		Limit: limit,
	}
	// Jurisdiction tags narrow the legal collection only; principle records
	// are not jurisdiction-scoped.
	if kind == models.KindLegal {
		rq.Tags = query.JurisdictionTags
	}

	scored, err := r.store.Lookup(ctx, kind, rq)
	if err != nil {
		return nil, fmt.Errorf("%s lookup failed: %w", kind, err)
	}

	kept := make([]models.ScoredRecord, 0, len(scored))
	for _, sr := range scored {
		if sr.Relevance < floor {
			continue
		}
		if sr.Relevance > 1 {
			sr.Relevance = 1
		}
		kept = append(kept, sr)
	}

	// Stores are required to order results already; re-sorting keeps the
	// determinism contract even against a sloppy implementation.
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Relevance != kept[j].Relevance {
			return kept[i].Relevance > kept[j].Relevance
		}
		return kept[i].Record.ID.String() < kept[j].Record.ID.String()
	})

	if len(kept) > limit {
		kept = kept[:limit]
	}
	return kept, nil
}
