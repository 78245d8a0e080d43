package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"keystone-backend/models"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ReasonService is the dual-knowledge reasoning engine. It retrieves legal
// and principle records through two independent read paths, runs rule
// evaluation over the legal side, cross-checks candidates against principles,
// and returns ranked attributed results.
//
// The two stores are deliberately separate fields even when backed by the
// same database: their failure policies differ. A dead legal store is fatal;
// a dead principle store only costs the ethical overlay.
type ReasonService struct {
	legalStore     RecordStore
	principleStore RecordStore
	rules          []Rule
	generate       GenerateFunc
	storeTimeout   time.Duration

	engine    *RuleEngine
	legal     *Retriever
	principle *Retriever
	conflicts *ConflictEvaluator
	explainer *Explainer
}

// ReasonServiceOption is a functional option for ReasonService
type ReasonServiceOption func(*ReasonService)

// ReasonWithLegalStore sets the legal knowledge store
func ReasonWithLegalStore(store RecordStore) ReasonServiceOption {
	return func(s *ReasonService) {
		s.legalStore = store
	}
}

// ReasonWithPrincipleStore sets the principle knowledge store
func ReasonWithPrincipleStore(store RecordStore) ReasonServiceOption {
	return func(s *ReasonService) {
		s.principleStore = store
	}
}

// ReasonWithRules sets the ordered inference rule list
func ReasonWithRules(rules []Rule) ReasonServiceOption {
	return func(s *ReasonService) {
		s.rules = rules
	}
}

// ReasonWithGenerate sets the text-generation capability
func ReasonWithGenerate(generate GenerateFunc) ReasonServiceOption {
	return func(s *ReasonService) {
		s.generate = generate
	}
}

// ReasonWithStoreTimeout sets the per-store-call timeout
func ReasonWithStoreTimeout(d time.Duration) ReasonServiceOption {
	return func(s *ReasonService) {
		s.storeTimeout = d
	}
}

// NewReasonService creates the engine. Both stores and at least one rule are
// required; an empty rule list fails with models.ErrNoRulesConfigured.
func NewReasonService(opts ...ReasonServiceOption) (*ReasonService, error) {
	s := &ReasonService{storeTimeout: 10 * time.Second}
	for _, opt := range opts {
		opt(s)
	}

	if s.legalStore == nil {
		return nil, errors.New("legal store not set")
	}
	if s.principleStore == nil {
		return nil, errors.New("principle store not set")
	}

	engine, err := NewRuleEngine(s.rules)
	if err != nil {
		return nil, err
	}

	s.engine = engine
	s.legal = NewRetriever(s.legalStore)
	s.principle = NewRetriever(s.principleStore)
	s.conflicts = NewConflictEvaluator(engine, s.generate)
	s.explainer = NewExplainer()
	return s, nil
}

// ReasonConfig carries the per-request tuning knobs. Zero values are filled
// from the documented defaults by DefaultReasonConfig.
type ReasonConfig struct {
	LimitLegal            int     `json:"limit_legal"`
	LimitPrinciple        int     `json:"limit_principle"`
	LowThreshold          float64 `json:"low_threshold"`
	HighThreshold         float64 `json:"high_threshold"`
	ConflictConfidenceCap float64 `json:"conflict_confidence_cap"`
	RelevanceFloor        float64 `json:"relevance_floor"`
}

// DefaultReasonConfig returns the documented default configuration.
func DefaultReasonConfig() ReasonConfig {
	return ReasonConfig{
		LimitLegal:            20,
		LimitPrinciple:        20,
		LowThreshold:          0.3,
		HighThreshold:         0.6,
		ConflictConfidenceCap: 0.4,
		RelevanceFloor:        0.05,
	}
}

// validate checks the config bounds.
func (c ReasonConfig) validate() error {
	switch {
	case c.LimitLegal < 1:
		return fmt.Errorf("limit_legal must be >= 1, got %d: %w", c.LimitLegal, models.ErrInvalidArgument)
	case c.LimitPrinciple < 1:
		return fmt.Errorf("limit_principle must be >= 1, got %d: %w", c.LimitPrinciple, models.ErrInvalidArgument)
	case c.RelevanceFloor < 0 || c.RelevanceFloor >= 1:
		return fmt.Errorf("relevance_floor must be in [0,1), got %g: %w", c.RelevanceFloor, models.ErrInvalidArgument)
	case c.LowThreshold < 0 || c.LowThreshold > c.HighThreshold || c.HighThreshold > 1:
		return fmt.Errorf("thresholds must satisfy 0 <= low <= high <= 1, got low=%g high=%g: %w",
			c.LowThreshold, c.HighThreshold, models.ErrInvalidArgument)
	case c.ConflictConfidenceCap <= 0 || c.ConflictConfidenceCap > 1:
		return fmt.Errorf("conflict_confidence_cap must be in (0,1], got %g: %w",
			c.ConflictConfidenceCap, models.ErrInvalidArgument)
	}
	return nil
}

// ReasonAbout runs the full pipeline for one query: concurrent legal and
// principle retrieval, rule evaluation as soon as legal records arrive,
// conflict annotation once both sides complete, then ranking.
//
// Either the complete ordered result list is returned or an error; a
// cancelled or failed request never yields a partial list. An unreachable
// principle store degrades to an empty overlay; an unreachable legal store is
// fatal.
func (s *ReasonService) ReasonAbout(ctx context.Context, query models.Query, cfg ReasonConfig) ([]models.RankedResult, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if len(query.Facts) == 0 && query.FreeText == "" {
		return nil, fmt.Errorf("query has no facts and no free text: %w", models.ErrInvalidArgument)
	}

	var (
		legal      []models.ScoredRecord
		principles []models.ScoredRecord
		candidates []models.CandidateStrategy
	)

	g, gctx := errgroup.WithContext(ctx)

	// Rule evaluation depends only on legal retrieval, so it runs in the same
	// task without waiting for the principle side.
	g.Go(func() error {
		recs, err := s.retrieve(gctx, query, models.KindLegal, cfg.LimitLegal, cfg.RelevanceFloor)
		if err != nil {
			return err
		}
		legal = recs
		candidates = s.engine.Evaluate(query, legal)
		return nil
	})

	g.Go(func() error {
		recs, err := s.retrieve(gctx, query, models.KindPrinciple, cfg.LimitPrinciple, cfg.RelevanceFloor)
		if err != nil {
			// Principle knowledge is advisory: an unreachable or slow store
			// degrades to zero results instead of failing the request.
			if errors.Is(err, models.ErrStoreUnavailable) {
				log.Printf("Warning: principle retrieval degraded to zero results: %v", err)
				principles = nil
				return nil
			}
			return err
		}
		principles = recs
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	annotated, err := s.conflicts.Annotate(ctx, query, candidates, legal, principles, cfg)
	if err != nil {
		return nil, err
	}

	results := s.explainer.Finalize(annotated, recordIndex(legal, principles), cfg)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// retrieve runs one store call under the per-call timeout, mapping a timeout
// to ErrStoreUnavailable so the caller's degradation policy applies uniformly.
func (s *ReasonService) retrieve(ctx context.Context, query models.Query, kind models.RecordKind, limit int, floor float64) ([]models.ScoredRecord, error) {
	callCtx := ctx
	if s.storeTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.storeTimeout)
		defer cancel()
	}

	retriever := s.legal
	if kind == models.KindPrinciple {
		retriever = s.principle
	}

	recs, err := retriever.Retrieve(callCtx, query, kind, limit, floor)
	if err != nil {
		if ctx.Err() != nil {
			// The request itself was cancelled; report that, not the store.
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s retrieval timed out: %w", kind, models.ErrStoreUnavailable)
		}
		return nil, err
	}
	return recs, nil
}

// recordIndex maps every retrieved record id to its record for citation
// resolution.
func recordIndex(groups ...[]models.ScoredRecord) map[uuid.UUID]models.Record {
	index := make(map[uuid.UUID]models.Record)
	for _, group := range groups {
		for _, sr := range group {
			index[sr.Record.ID] = sr.Record
		}
	}
	return index
}
