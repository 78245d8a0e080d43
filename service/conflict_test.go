package service

import (
	"context"
	"errors"
	"testing"

	"keystone-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func principleAt(id byte, text string, tags ...string) models.ScoredRecord {
	return models.ScoredRecord{
		Record: models.Record{
			ID:              uuid.UUID{id},
			Kind:            models.KindPrinciple,
			Text:            text,
			Tags:            tags,
			SourceReference: "Principle-" + string(rune('A'+id)),
		},
		Relevance: 0.9,
	}
}

func conflictTestEngine(t *testing.T) *RuleEngine {
	t.Helper()
	engine, err := NewRuleEngine([]Rule{
		{
			Name: "mitigation",
			Evaluate: func(_ models.Query, legal []models.ScoredRecord) ([]Conclusion, error) {
				if len(legal) == 0 {
					return nil, nil
				}
				ids := make([]uuid.UUID, 0, len(legal))
				for _, sr := range legal {
					ids = append(ids, sr.Record.ID)
				}
				return []Conclusion{{Description: "Negotiate a mitigated plea.", SupportingRecords: ids}}, nil
			},
		},
	})
	require.NoError(t, err)
	return engine
}

func TestAnnotateSeverityThresholds(t *testing.T) {
	engine := conflictTestEngine(t)
	eval := NewConflictEvaluator(engine, nil)
	cfg := DefaultReasonConfig()

	candidate := models.CandidateStrategy{
		Description:     "leverage dependents pressure tactic",
		DerivationTrace: []string{"mitigation"},
		BaseScore:       0.5,
	}

	principles := []models.ScoredRecord{
		// Full token overlap with the candidate description: conflict
		principleAt(1, "dependents pressure leverage tactic"),
		// Partial overlap above the low threshold: caution
		principleAt(2, "pressure on dependents is suspect in negotiation and sentencing"),
		// No meaningful overlap: no annotation
		principleAt(3, "restorative outcomes serve communities"),
	}

	annotated, err := eval.Annotate(context.Background(), models.Query{}, []models.CandidateStrategy{candidate}, nil, principles, cfg)
	require.NoError(t, err)
	require.Len(t, annotated, 1)

	anns := annotated[0].Annotations
	require.Len(t, anns, 2)
	assert.Equal(t, models.SeverityConflict, anns[0].Severity)
	assert.Equal(t, uuid.UUID{1}, anns[0].PrincipleRecordID)
	assert.Equal(t, models.SeverityCaution, anns[1].Severity)
	assert.Equal(t, uuid.UUID{2}, anns[1].PrincipleRecordID)

	assert.Contains(t, anns[0].RationaleText, "Principle-B")
	assert.Contains(t, anns[0].RationaleText, "shared terms")
}

func TestAnnotateKeepsUnmatchedCandidates(t *testing.T) {
	eval := NewConflictEvaluator(conflictTestEngine(t), nil)

	candidate := models.CandidateStrategy{Description: "file suppression motion"}
	annotated, err := eval.Annotate(context.Background(), models.Query{},
		[]models.CandidateStrategy{candidate}, nil,
		[]models.ScoredRecord{principleAt(1, "completely unrelated principle text")},
		DefaultReasonConfig())
	require.NoError(t, err)
	require.Len(t, annotated, 1)
	assert.Empty(t, annotated[0].Annotations)
	assert.Equal(t, models.SeverityNone, annotated[0].MaxSeverity())
}

func TestAnnotateSynthesizesAlternative(t *testing.T) {
	// Two rules: the conflicted one fires on any record, the alternative only
	// on records that survive tag avoidance.
	engine, err := NewRuleEngine([]Rule{
		{
			Name: "aggressive",
			Evaluate: func(_ models.Query, legal []models.ScoredRecord) ([]Conclusion, error) {
				if len(legal) == 0 {
					return nil, nil
				}
				return []Conclusion{{
					Description:       "leverage dependents pressure tactic",
					SupportingRecords: []uuid.UUID{legal[0].Record.ID},
				}}, nil
			},
		},
		{
			Name: "restorative",
			Evaluate: func(_ models.Query, legal []models.ScoredRecord) ([]Conclusion, error) {
				for _, sr := range legal {
					for _, tag := range sr.Record.Tags {
						if tag == "restorative" {
							return []Conclusion{{
								Description:       "Propose a restorative resolution.",
								SupportingRecords: []uuid.UUID{sr.Record.ID},
							}}, nil
						}
					}
				}
				return nil, nil
			},
		},
	})
	require.NoError(t, err)
	eval := NewConflictEvaluator(engine, nil)

	legal := []models.ScoredRecord{
		{Record: models.Record{ID: uuid.UUID{10}, Tags: []string{"coercion"}}},
		{Record: models.Record{ID: uuid.UUID{11}, Tags: []string{"restorative"}}},
	}
	candidate := models.CandidateStrategy{
		Description: "leverage dependents pressure tactic",
		BaseScore:   0.5,
	}
	principle := principleAt(1, "dependents pressure leverage tactic", "coercion")

	annotated, err := eval.Annotate(context.Background(), models.Query{},
		[]models.CandidateStrategy{candidate}, legal,
		[]models.ScoredRecord{principle}, DefaultReasonConfig())
	require.NoError(t, err)
	require.Len(t, annotated, 1)
	require.Len(t, annotated[0].Annotations, 1)

	ann := annotated[0].Annotations[0]
	require.Equal(t, models.SeverityConflict, ann.Severity)
	require.NotNil(t, ann.AlternativeStrategy)
	assert.Equal(t, "Propose a restorative resolution.", ann.AlternativeStrategy.Description)
	assert.Equal(t, []uuid.UUID{{11}}, ann.AlternativeStrategy.SupportingLegalRecords)
}

func TestAnnotateGenerateFailureKeepsRuleWording(t *testing.T) {
	engine, err := NewRuleEngine([]Rule{
		{
			Name: "alt",
			Evaluate: func(_ models.Query, legal []models.ScoredRecord) ([]Conclusion, error) {
				if len(legal) == 0 {
					return nil, nil
				}
				return []Conclusion{{
					Description:       "Propose a restorative resolution.",
					SupportingRecords: []uuid.UUID{legal[0].Record.ID},
				}}, nil
			},
		},
	})
	require.NoError(t, err)

	failing := func(context.Context, string) (string, error) {
		return "", errors.New("quota exceeded")
	}
	eval := NewConflictEvaluator(engine, failing)

	legal := []models.ScoredRecord{{Record: models.Record{ID: uuid.UUID{11}, Tags: []string{"restorative"}}}}
	candidate := models.CandidateStrategy{Description: "leverage dependents pressure tactic"}
	principle := principleAt(1, "dependents pressure leverage tactic", "coercion")

	annotated, err := eval.Annotate(context.Background(), models.Query{},
		[]models.CandidateStrategy{candidate}, legal,
		[]models.ScoredRecord{principle}, DefaultReasonConfig())
	require.NoError(t, err)
	require.Len(t, annotated, 1)
	require.Len(t, annotated[0].Annotations, 1)
	require.NotNil(t, annotated[0].Annotations[0].AlternativeStrategy)
	assert.Equal(t, "Propose a restorative resolution.",
		annotated[0].Annotations[0].AlternativeStrategy.Description)
}

func TestAnnotateNoDerivableAlternative(t *testing.T) {
	eval := NewConflictEvaluator(conflictTestEngine(t), nil)

	// Every legal record carries the avoided tag, so synthesis comes up empty
	legal := []models.ScoredRecord{{Record: models.Record{ID: uuid.UUID{10}, Tags: []string{"coercion"}}}}
	candidate := models.CandidateStrategy{Description: "leverage dependents pressure tactic"}
	principle := principleAt(1, "dependents pressure leverage tactic", "coercion")

	annotated, err := eval.Annotate(context.Background(), models.Query{},
		[]models.CandidateStrategy{candidate}, legal,
		[]models.ScoredRecord{principle}, DefaultReasonConfig())
	require.NoError(t, err)
	require.Len(t, annotated, 1)
	require.Len(t, annotated[0].Annotations, 1)
	assert.Nil(t, annotated[0].Annotations[0].AlternativeStrategy)
}

func TestAnnotateCancelledContext(t *testing.T) {
	eval := NewConflictEvaluator(conflictTestEngine(t), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := eval.Annotate(ctx, models.Query{},
		[]models.CandidateStrategy{{Description: "x"}}, nil, nil, DefaultReasonConfig())
	assert.ErrorIs(t, err, context.Canceled)
}
