package service

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"keystone-backend/models"
	"keystone-backend/textmatch"

	"github.com/google/uuid"
)

// Conclusion is a single partial result fired by one rule: a proposed
// strategy description plus the legal records backing it.
type Conclusion struct {
	Description       string
	SupportingRecords []uuid.UUID
}

// RuleFunc is a pure inference function over the case facts and the retrieved
// legal records. It must not mutate its inputs or any shared state.
type RuleFunc func(query models.Query, legal []models.ScoredRecord) ([]Conclusion, error)

// Rule pairs a stable name with its evaluation function. Rules are supplied
// as an explicit ordered list at engine construction; the registration order
// only shows up in derivation traces, never in the merged result set.
type Rule struct {
	Name     string
	Evaluate RuleFunc
}

// RuleEngine evaluates the configured rule list and merges overlapping
// conclusions into candidate strategies.
type RuleEngine struct {
	rules []Rule
}

// NewRuleEngine creates a rule engine. An empty rule list is a fatal
// configuration error.
func NewRuleEngine(rules []Rule) (*RuleEngine, error) {
	if len(rules) == 0 {
		return nil, models.ErrNoRulesConfigured
	}
	return &RuleEngine{rules: rules}, nil
}

// Evaluate fires every rule against the query and legal records and merges
// conclusions that share a normalized description: supporting records are
// unioned, derivation traces concatenate in registration order, and the base
// score grows monotonically with both support count and rule agreement.
// A rule that errors (or panics) is logged and skipped; the remaining rules
// still run.
func (e *RuleEngine) Evaluate(query models.Query, legal []models.ScoredRecord) []models.CandidateStrategy {
	type merged struct {
		description string
		supports    map[uuid.UUID]bool
		trace       []string
	}

	byKey := make(map[string]*merged)
	var order []string

	for _, rule := range e.rules {
		conclusions, err := fireRule(rule, query, legal)
		if err != nil {
			log.Printf("Warning: rule %s skipped: %v", rule.Name, err)
			continue
		}
		for _, c := range conclusions {
			key := normalizeDescription(c.Description)
			if key == "" {
				continue
			}
			m, ok := byKey[key]
			if !ok {
				m = &merged{description: c.Description, supports: make(map[uuid.UUID]bool)}
				byKey[key] = m
				order = append(order, key)
			}
			for _, id := range c.SupportingRecords {
				m.supports[id] = true
			}
			m.trace = append(m.trace, rule.Name)
		}
	}

	candidates := make([]models.CandidateStrategy, 0, len(order))
	for _, key := range order {
		m := byKey[key]

		supports := make([]uuid.UUID, 0, len(m.supports))
		for id := range m.supports {
			supports = append(supports, id)
		}
		sort.Slice(supports, func(i, j int) bool {
			return supports[i].String() < supports[j].String()
		})

		candidates = append(candidates, models.CandidateStrategy{
			Description:            m.description,
			SupportingLegalRecords: supports,
			DerivationTrace:        m.trace,
			BaseScore:              baseScore(len(supports), len(m.trace)),
		})
	}
	return candidates
}

// EvaluateAvoiding re-runs evaluation over only the legal records that carry
// none of the avoided tags. Used for alternative-strategy synthesis after a
// principle conflict.
func (e *RuleEngine) EvaluateAvoiding(query models.Query, legal []models.ScoredRecord, avoidTags []string) []models.CandidateStrategy {
	filtered := make([]models.ScoredRecord, 0, len(legal))
	for _, sr := range legal {
		if textmatch.TagsIntersect(sr.Record.Tags, avoidTags) {
			continue
		}
		filtered = append(filtered, sr)
	}
	if len(filtered) == 0 {
		return nil
	}
	return e.Evaluate(query, filtered)
}

// fireRule runs one rule, converting a panic into a skippable error.
func fireRule(rule Rule, query models.Query, legal []models.ScoredRecord) (conclusions []Conclusion, err error) {
	defer func() {
		if r := recover(); r != nil {
			conclusions = nil
			err = fmt.Errorf("rule panicked: %v", r)
		}
	}()
	return rule.Evaluate(query, legal)
}

// normalizeDescription is the merge key: lowercase, collapsed whitespace,
// trailing period stripped.
func normalizeDescription(desc string) string {
	desc = strings.Join(strings.Fields(strings.ToLower(desc)), " ")
	return strings.TrimSuffix(desc, ".")
}

// baseScore maps support count and rule agreement into [0,1). More supporting
// records or more agreeing rules always scores higher.
func baseScore(supportCount, ruleCount int) float64 {
	n := supportCount + ruleCount
	return float64(n) / float64(n+2)
}
