package repository

import (
	"context"
	"fmt"

	"keystone-backend/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// FeedbackRepository handles database operations for reviewer feedback
type FeedbackRepository struct {
	db *pgxpool.Pool
}

// NewFeedbackRepository creates a new feedback repository
func NewFeedbackRepository(db *pgxpool.Pool) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// Create stores a feedback entry
func (r *FeedbackRepository) Create(ctx context.Context, fb *models.Feedback) error {
	query := `
		INSERT INTO feedback (strategy_description, rating, comments)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		fb.StrategyDescription,
		fb.Rating,
		fb.Comments,
	).Scan(&fb.ID, &fb.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to store feedback: %w", err)
	}
	return nil
}

// List retrieves the most recent feedback entries, newest first
func (r *FeedbackRepository) List(ctx context.Context, limit int) ([]*models.Feedback, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, strategy_description, rating, comments, created_at
		FROM feedback
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	var entries []*models.Feedback
	for rows.Next() {
		fb := &models.Feedback{}
		err := rows.Scan(&fb.ID, &fb.StrategyDescription, &fb.Rating, &fb.Comments, &fb.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		entries = append(entries, fb)
	}

	return entries, rows.Err()
}
