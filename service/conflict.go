package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"keystone-backend/models"
	"keystone-backend/textmatch"
)

// ConflictEvaluator cross-references candidate strategies against retrieved
// principle records. A match above the low threshold is flagged caution; above
// the high threshold it is a conflict and an alternative strategy is
// synthesized by re-running the rules while avoiding the principle's tags.
type ConflictEvaluator struct {
	engine   *RuleEngine
	generate GenerateFunc // optional, elaborates alternative descriptions
}

// NewConflictEvaluator creates a conflict evaluator. generate may be nil.
func NewConflictEvaluator(engine *RuleEngine, generate GenerateFunc) *ConflictEvaluator {
	return &ConflictEvaluator{engine: engine, generate: generate}
}

// Annotate attaches conflict annotations to every candidate. Candidates with
// no matching principle come back with an empty annotation list rather than
// being dropped. The only error returned is context cancellation.
func (e *ConflictEvaluator) Annotate(
	ctx context.Context,
	query models.Query,
	candidates []models.CandidateStrategy,
	legal []models.ScoredRecord,
	principles []models.ScoredRecord,
	cfg ReasonConfig,
) ([]models.AnnotatedStrategy, error) {
	annotated := make([]models.AnnotatedStrategy, 0, len(candidates))

	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		candTokens := textmatch.Tokenize(cand.Description)
		candTokens = append(candTokens, textmatch.Tokenize(cand.DerivationTrace...)...)

		var annotations []models.ConflictAnnotation
		for _, prin := range principles {
			prinTokens := textmatch.Tokenize(prin.Record.Text)
			prinTokens = append(prinTokens, textmatch.Tokenize(prin.Record.Tags...)...)

			score := textmatch.Overlap(candTokens, prinTokens)
			if score < cfg.LowThreshold {
				continue
			}

			severity := models.SeverityCaution
			if score >= cfg.HighThreshold {
				severity = models.SeverityConflict
			}

			ann := models.ConflictAnnotation{
				PrincipleRecordID: prin.Record.ID,
				Severity:          severity,
				RationaleText:     rationale(prin.Record, score, candTokens, prinTokens),
			}

			if severity == models.SeverityConflict {
				alt, err := e.synthesizeAlternative(ctx, query, cand, legal, prin.Record)
				if err != nil {
					return nil, err
				}
				ann.AlternativeStrategy = alt
			}

			annotations = append(annotations, ann)
		}

		annotated = append(annotated, models.AnnotatedStrategy{
			Strategy:    cand,
			Annotations: annotations,
		})
	}

	return annotated, nil
}

// synthesizeAlternative re-runs the rules over legal records that avoid the
// conflicting principle's tags and picks the strongest strategy that differs
// from the original. No derivable alternative is an expected outcome, not an
// error; only cancellation propagates.
func (e *ConflictEvaluator) synthesizeAlternative(
	ctx context.Context,
	query models.Query,
	original models.CandidateStrategy,
	legal []models.ScoredRecord,
	principle models.Record,
) (*models.CandidateStrategy, error) {
	alts := e.engine.EvaluateAvoiding(query, legal, principle.Tags)

	originalKey := normalizeDescription(original.Description)
	viable := alts[:0]
	for _, alt := range alts {
		if normalizeDescription(alt.Description) != originalKey {
			viable = append(viable, alt)
		}
	}
	if len(viable) == 0 {
		return nil, nil
	}

	sort.SliceStable(viable, func(i, j int) bool {
		if viable[i].BaseScore != viable[j].BaseScore {
			return viable[i].BaseScore > viable[j].BaseScore
		}
		return viable[i].Description < viable[j].Description
	})
	best := viable[0]

	if e.generate != nil {
		prompt := fmt.Sprintf(
			"Restate the following defense strategy in one sentence of plain professional language, "+
				"preserving its legal meaning exactly. Strategy: %s", best.Description)
		elaborated, err := e.generate(ctx, prompt)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			log.Printf("Warning: alternative elaboration unavailable, keeping rule wording: %v", err)
		} else if strings.TrimSpace(elaborated) != "" {
			best.Description = strings.TrimSpace(elaborated)
		}
	}

	return &best, nil
}

// rationale builds the deterministic explanation attached to an annotation.
func rationale(principle models.Record, score float64, candTokens, prinTokens []string) string {
	shared := textmatch.SharedTerms(candTokens, prinTokens)
	return fmt.Sprintf("strategy overlaps principle %s (match %.2f; shared terms: %s)",
		principle.SourceReference, score, strings.Join(shared, ", "))
}
