package service

import (
	"sort"

	"keystone-backend/models"

	"github.com/google/uuid"
)

// Explainer folds annotated strategies into the final ranked, attributed
// output. Ordering is fully deterministic: confidence descending, then base
// score descending, then description ascending.
type Explainer struct{}

// NewExplainer creates an explainer.
func NewExplainer() *Explainer {
	return &Explainer{}
}

// severityMultiplier maps the aggregate severity to a confidence multiplier.
// A conflict uses the configured cap, so conflicted results can never score
// above it.
func severityMultiplier(severity models.Severity, cfg ReasonConfig) float64 {
	switch severity {
	case models.SeverityConflict:
		return cfg.ConflictConfidenceCap
	case models.SeverityCaution:
		return 0.7
	default:
		return 1.0
	}
}

// Finalize computes confidence and citations for each annotated strategy and
// returns the sorted result list. The record index maps every retrieved
// record id to its record so citations can be resolved.
func (e *Explainer) Finalize(annotated []models.AnnotatedStrategy, index map[uuid.UUID]models.Record, cfg ReasonConfig) []models.RankedResult {
	results := make([]models.RankedResult, 0, len(annotated))

	for _, a := range annotated {
		severity := a.MaxSeverity()
		confidence := a.Strategy.BaseScore * severityMultiplier(severity, cfg)
		if severity == models.SeverityConflict && confidence > cfg.ConflictConfidenceCap {
			confidence = cfg.ConflictConfidenceCap
		}

		results = append(results, models.RankedResult{
			Strategy:    a.Strategy,
			Annotations: a.Annotations,
			Confidence:  confidence,
			Citations:   citations(a, index),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Confidence != results[j].Confidence {
			return results[i].Confidence > results[j].Confidence
		}
		if results[i].Strategy.BaseScore != results[j].Strategy.BaseScore {
			return results[i].Strategy.BaseScore > results[j].Strategy.BaseScore
		}
		return results[i].Strategy.Description < results[j].Strategy.Description
	})

	return results
}

// citations collects source references in first-use order: supporting legal
// records first, then the principle records behind each annotation.
// Duplicates are dropped, first appearance wins.
func citations(a models.AnnotatedStrategy, index map[uuid.UUID]models.Record) []string {
	seen := make(map[string]bool)
	cites := make([]string, 0, len(a.Strategy.SupportingLegalRecords)+len(a.Annotations))

	appendRef := func(id uuid.UUID) {
		rec, ok := index[id]
		if !ok || rec.SourceReference == "" {
			return
		}
		if seen[rec.SourceReference] {
			return
		}
		seen[rec.SourceReference] = true
		cites = append(cites, rec.SourceReference)
	}

	for _, id := range a.Strategy.SupportingLegalRecords {
		appendRef(id)
	}
	for _, ann := range a.Annotations {
		appendRef(ann.PrincipleRecordID)
	}

	return cites
}
