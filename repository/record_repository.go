package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"keystone-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EmbedFunc turns lookup text into a query embedding vector.
type EmbedFunc func(ctx context.Context, text string) ([]float64, error)

// PostgresRecordStore is the pgvector-backed knowledge store. Lookups run a
// hybrid search: cosine distance on the embedding column plus tag filters,
// ordered by distance then id for deterministic output.
type PostgresRecordStore struct {
	db    *pgxpool.Pool
	embed EmbedFunc
}

// NewPostgresRecordStore creates a Postgres record store. The embed function
// is used to vectorize lookup terms before searching.
func NewPostgresRecordStore(db *pgxpool.Pool, embed EmbedFunc) *PostgresRecordStore {
	return &PostgresRecordStore{db: db, embed: embed}
}

// formatVector formats an embedding vector as a string for pgx
func formatVector(embedding []float64) string {
	if len(embedding) == 0 {
		return "[]"
	}
	var parts []string
	for _, v := range embedding {
		parts = append(parts, fmt.Sprintf("%.6f", v))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Lookup searches records of one kind by embedding similarity.
// Relevance is 1 - cosine distance, clamped to [0,1].
func (r *PostgresRecordStore) Lookup(ctx context.Context, kind models.RecordKind, q models.RecordQuery) ([]models.ScoredRecord, error) {
	embedding, err := r.embed(ctx, strings.Join(q.Terms, " "))
	if err != nil {
		// An unreachable embedding API makes the store unreachable for
		// lookups, so callers apply the same degradation policy.
		return nil, fmt.Errorf("failed to embed lookup terms: %v: %w", err, models.ErrStoreUnavailable)
	}

	vectorStr := formatVector(embedding)
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT
			id,
			kind,
			record_text,
			tags,
			source_reference,
			weight,
			supersedes,
			embedding <=> $1::vector AS distance
		FROM records
		WHERE
			kind = $2
			AND (cardinality($3::text[]) = 0 OR tags && $3::text[])
			AND NOT (cardinality($4::text[]) > 0 AND tags && $4::text[])
		ORDER BY
			embedding <=> $1::vector,
			id
		LIMIT $5`

	rows, err := r.db.Query(ctx, query, vectorStr, kind, tagArray(q.Tags), tagArray(q.ExcludeTags), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %v: %w", err, models.ErrStoreUnavailable)
	}
	defer rows.Close()

	var scored []models.ScoredRecord
	for rows.Next() {
		var rec models.Record
		var distance float64
		err := rows.Scan(
			&rec.ID,
			&rec.Kind,
			&rec.Text,
			&rec.Tags,
			&rec.SourceReference,
			&rec.Weight,
			&rec.Supersedes,
			&distance,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		relevance := 1.0 - distance
		if relevance < 0 {
			relevance = 0
		}
		if relevance > 1 {
			relevance = 1
		}
		scored = append(scored, models.ScoredRecord{Record: rec, Relevance: relevance})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %v: %w", err, models.ErrStoreUnavailable)
	}

	return scored, nil
}

// Get retrieves a record by id.
func (r *PostgresRecordStore) Get(ctx context.Context, id uuid.UUID) (*models.Record, error) {
	rec := &models.Record{}
	query := `
		SELECT id, kind, record_text, tags, source_reference, weight, supersedes
		FROM records
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&rec.ID,
		&rec.Kind,
		&rec.Text,
		&rec.Tags,
		&rec.SourceReference,
		&rec.Weight,
		&rec.Supersedes,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("record %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get record: %v: %w", err, models.ErrStoreUnavailable)
	}

	return rec, nil
}

// Insert stores a new record with its embedding. Records are append-only;
// revisions arrive as new rows carrying a supersedes reference.
func (r *PostgresRecordStore) Insert(ctx context.Context, rec models.Record, embedding []float64) error {
	query := `
		INSERT INTO records (
			id, kind, record_text, tags, source_reference, weight, supersedes, embedding
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8::vector)`

	_, err := r.db.Exec(ctx, query,
		rec.ID,
		rec.Kind,
		rec.Text,
		tagArray(rec.Tags),
		rec.SourceReference,
		rec.Weight,
		rec.Supersedes,
		formatVector(embedding),
	)
	if err != nil {
		return fmt.Errorf("failed to insert record %s: %w", rec.ID, err)
	}
	return nil
}

// tagArray normalizes a nil slice to an empty array so cardinality() checks
// behave in SQL.
func tagArray(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
