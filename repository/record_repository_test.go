package repository

import (
	"context"
	"errors"
	"testing"

	"keystone-backend/models"

	"github.com/stretchr/testify/assert"
)

func TestPostgresLookupEmbedFailure(t *testing.T) {
	failing := func(context.Context, string) ([]float64, error) {
		return nil, errors.New("embedding API unreachable")
	}
	store := NewPostgresRecordStore(nil, failing)

	_, err := store.Lookup(context.Background(), models.KindPrinciple, models.RecordQuery{
		Terms: []string{"dignity of the person"},
		Limit: 5,
	})
	// Callers degrade the principle path on this error kind, so an embedding
	// outage must classify as store unavailability
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
}

func TestFormatVector(t *testing.T) {
	assert.Equal(t, "[]", formatVector(nil))
	assert.Equal(t, "[1.000000,-0.250000]", formatVector([]float64{1, -0.25}))
}

func TestTagArray(t *testing.T) {
	assert.Equal(t, []string{}, tagArray(nil))
	assert.Equal(t, []string{"tennessee"}, tagArray([]string{"tennessee"}))
}
