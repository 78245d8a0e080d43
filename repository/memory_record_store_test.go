package repository

import (
	"context"
	"strings"
	"testing"

	"keystone-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func legalRecord(id byte, text string, tags ...string) models.Record {
	return models.Record{
		ID:              uuid.UUID{id},
		Kind:            models.KindLegal,
		Text:            text,
		Tags:            tags,
		SourceReference: "Ref-" + string(rune('A'+id)),
		Weight:          1.0,
	}
}

func TestMemoryStoreLookupOrdering(t *testing.T) {
	store := NewMemoryRecordStore(
		legalRecord(1, "simple possession first offense diversion"),
		legalRecord(2, "unrelated zoning ordinance text"),
		legalRecord(3, "first offense diversion statute"),
	)

	scored, err := store.Lookup(context.Background(), models.KindLegal, models.RecordQuery{
		Terms: []string{"first offense diversion"},
		Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, scored, 2)

	// Both fully contain the query terms; the tie breaks by id ascending
	assert.Equal(t, uuid.UUID{1}, scored[0].Record.ID)
	assert.Equal(t, uuid.UUID{3}, scored[1].Record.ID)
	assert.InDelta(t, 1.0, scored[0].Relevance, 1e-9)

	// Deterministic across calls
	again, err := store.Lookup(context.Background(), models.KindLegal, models.RecordQuery{
		Terms: []string{"first offense diversion"},
		Limit: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, scored, again)
}

func TestMemoryStoreTagFilters(t *testing.T) {
	store := NewMemoryRecordStore(
		legalRecord(1, "diversion statute", "tennessee"),
		legalRecord(2, "diversion statute", "georgia"),
	)

	scored, err := store.Lookup(context.Background(), models.KindLegal, models.RecordQuery{
		Terms: []string{"diversion statute"},
		Tags:  []string{"tennessee"},
		Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, scored, 1)
	assert.Equal(t, uuid.UUID{1}, scored[0].Record.ID)

	scored, err = store.Lookup(context.Background(), models.KindLegal, models.RecordQuery{
		Terms:       []string{"diversion statute"},
		ExcludeTags: []string{"tennessee"},
		Limit:       10,
	})
	require.NoError(t, err)
	require.Len(t, scored, 1)
	assert.Equal(t, uuid.UUID{2}, scored[0].Record.ID)
}

func TestMemoryStoreKindIsolation(t *testing.T) {
	principle := models.Record{
		ID:   uuid.UUID{9},
		Kind: models.KindPrinciple,
		Text: "dignity of the person",
	}
	store := NewMemoryRecordStore(legalRecord(1, "dignity statute"), principle)

	scored, err := store.Lookup(context.Background(), models.KindPrinciple, models.RecordQuery{
		Terms: []string{"dignity"},
		Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, scored, 1)
	assert.Equal(t, models.KindPrinciple, scored[0].Record.Kind)
}

func TestMemoryStoreWeightClamp(t *testing.T) {
	heavy := legalRecord(1, "controlling precedent on diversion")
	heavy.Weight = 3.0
	store := NewMemoryRecordStore(heavy)

	scored, err := store.Lookup(context.Background(), models.KindLegal, models.RecordQuery{
		Terms: []string{"controlling precedent diversion"},
		Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, scored, 1)
	assert.LessOrEqual(t, scored[0].Relevance, 1.0)
}

func TestMemoryStoreGet(t *testing.T) {
	rec := legalRecord(1, "some statute")
	store := NewMemoryRecordStore(rec)

	got, err := store.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Text, got.Text)

	_, err = store.Get(context.Background(), uuid.UUID{99})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryStoreAddFromJSON(t *testing.T) {
	corpus := `[
		{"id":"00000000-0000-0000-0000-000000000001","kind":"legal","text":"diversion statute","tags":["tennessee"],"source_reference":"TCA 40-35-313","weight":1.0}
	]`
	store := NewMemoryRecordStore()
	require.NoError(t, store.AddFromJSON(strings.NewReader(corpus)))

	got, err := store.Get(context.Background(), uuid.UUID{15: 1})
	require.NoError(t, err)
	assert.Equal(t, "TCA 40-35-313", got.SourceReference)

	assert.Error(t, store.AddFromJSON(strings.NewReader("not json")))
}

func TestMemoryStoreCancelledContext(t *testing.T) {
	store := NewMemoryRecordStore(legalRecord(1, "statute"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Lookup(ctx, models.KindLegal, models.RecordQuery{Terms: []string{"statute"}})
	assert.ErrorIs(t, err, context.Canceled)
}
