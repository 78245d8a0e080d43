package service

import (
	"context"

	"keystone-backend/models"

	"github.com/google/uuid"
)

// RecordStore is the read-only knowledge store contract the engine consumes.
// Implementations must return lookups in descending relevance order with ties
// broken by id ascending, and must be safe for concurrent callers.
//
// Failure kinds: models.ErrNotFound for a missing id, models.ErrStoreUnavailable
// when the backing store cannot be reached.
type RecordStore interface {
	Lookup(ctx context.Context, kind models.RecordKind, q models.RecordQuery) ([]models.ScoredRecord, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Record, error)
}
