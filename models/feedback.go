package models

import (
	"time"

	"github.com/google/uuid"
)

// Feedback is a reviewer's rating of one ranked result, collected so counsel
// can flag recommendations that missed the mark.
type Feedback struct {
	ID                  uuid.UUID `json:"id"`
	StrategyDescription string    `json:"strategy_description"`
	Rating              int       `json:"rating"` // 1..5
	Comments            *string   `json:"comments,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}
