package models

import (
	"github.com/google/uuid"
)

// Severity is the escalation level of a principle conflict.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityCaution  Severity = "caution"
	SeverityConflict Severity = "conflict"
)

// rank orders severities for aggregation (max severity wins).
func (s Severity) rank() int {
	switch s {
	case SeverityConflict:
		return 2
	case SeverityCaution:
		return 1
	default:
		return 0
	}
}

// Max returns the more severe of the two.
func (s Severity) Max(other Severity) Severity {
	if other.rank() > s.rank() {
		return other
	}
	return s
}

// CandidateStrategy is a proposed legal conclusion produced by rule
// evaluation over the retrieved legal records.
type CandidateStrategy struct {
	Description            string      `json:"description"`
	SupportingLegalRecords []uuid.UUID `json:"supporting_legal_records"`
	DerivationTrace        []string    `json:"derivation_trace"` // rule names, registration order
	BaseScore              float64     `json:"base_score"`
}

// ConflictAnnotation links a candidate strategy to a principle record it
// overlaps with. AlternativeStrategy is only present when a replacement could
// be derived; its absence is an expected outcome.
type ConflictAnnotation struct {
	PrincipleRecordID   uuid.UUID          `json:"principle_record_id"`
	Severity            Severity           `json:"severity"`
	RationaleText       string             `json:"rationale_text"`
	AlternativeStrategy *CandidateStrategy `json:"alternative_strategy,omitempty"`
}

// AnnotatedStrategy is a candidate strategy with its principle annotations
// attached. A candidate with no annotations carries severity none implicitly.
type AnnotatedStrategy struct {
	Strategy    CandidateStrategy    `json:"strategy"`
	Annotations []ConflictAnnotation `json:"annotations"`
}

// MaxSeverity returns the highest severity among the annotations, or
// SeverityNone when there are no annotations.
func (a AnnotatedStrategy) MaxSeverity() Severity {
	max := SeverityNone
	for _, ann := range a.Annotations {
		max = max.Max(ann.Severity)
	}
	return max
}

// RankedResult is the final attributed output unit returned to callers.
// Citations are deduplicated source references in first-use order: supporting
// legal records first, then conflicting principle records.
type RankedResult struct {
	Strategy    CandidateStrategy    `json:"strategy"`
	Annotations []ConflictAnnotation `json:"annotations"`
	Confidence  float64              `json:"confidence"`
	Citations   []string             `json:"citations"`
}
