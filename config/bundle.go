package config

import (
	"fmt"
	"os"
	"strings"

	"keystone-backend/models"
	"keystone-backend/service"
	"keystone-backend/textmatch"

	"gopkg.in/yaml.v3"
)

// Bundle is the rule/taxonomy configuration supplied at startup: the default
// jurisdiction scope, the tag vocabulary, and the named inference rules the
// engine compiles into its static rule list.
type Bundle struct {
	JurisdictionTags []string          `yaml:"jurisdiction_tags"`
	Taxonomy         map[string]string `yaml:"taxonomy"` // tag -> human label
	Rules            []RuleSpec        `yaml:"rules"`
}

// RuleSpec declares one keyword/tag inference rule. The rule fires when any
// fact keyword appears in the case facts AND at least one retrieved legal
// record matches (by tag intersection, or by keyword overlap with the record
// text when no tags are listed). Matching records become the conclusion's
// support.
type RuleSpec struct {
	Name         string   `yaml:"name"`
	FactKeywords []string `yaml:"fact_keywords"`
	RecordTags   []string `yaml:"record_tags"`
	Conclusion   string   `yaml:"conclusion"`
}

// LoadBundle reads and validates a bundle from a YAML file.
func LoadBundle(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule bundle: %w", err)
	}

	var bundle Bundle
	if err := yaml.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("failed to parse rule bundle: %w", err)
	}

	if err := bundle.validate(); err != nil {
		return nil, err
	}
	return &bundle, nil
}

func (b *Bundle) validate() error {
	if len(b.Rules) == 0 {
		return models.ErrNoRulesConfigured
	}
	seen := make(map[string]bool)
	for _, spec := range b.Rules {
		if spec.Name == "" {
			return fmt.Errorf("rule with empty name: %w", models.ErrInvalidArgument)
		}
		if seen[spec.Name] {
			return fmt.Errorf("duplicate rule name %q: %w", spec.Name, models.ErrInvalidArgument)
		}
		seen[spec.Name] = true
		if spec.Conclusion == "" {
			return fmt.Errorf("rule %q has no conclusion: %w", spec.Name, models.ErrInvalidArgument)
		}
		if len(spec.FactKeywords) == 0 {
			return fmt.Errorf("rule %q has no fact keywords: %w", spec.Name, models.ErrInvalidArgument)
		}
	}
	return nil
}

// Compile turns the bundle into the engine's ordered rule list, preserving
// file order.
func (b *Bundle) Compile() []service.Rule {
	rules := make([]service.Rule, 0, len(b.Rules))
	for _, spec := range b.Rules {
		rules = append(rules, service.Rule{
			Name:     spec.Name,
			Evaluate: spec.ruleFunc(),
		})
	}
	return rules
}

// ruleFunc builds the pure evaluation closure for one spec.
func (spec RuleSpec) ruleFunc() service.RuleFunc {
	// Copies keep the closure independent of later bundle mutation.
	keywords := append([]string(nil), spec.FactKeywords...)
	tags := append([]string(nil), spec.RecordTags...)
	conclusion := spec.Conclusion

	return func(query models.Query, legal []models.ScoredRecord) ([]service.Conclusion, error) {
		facts := strings.ToLower(strings.Join(append(append([]string(nil), query.Facts...), query.FreeText), " "))

		fired := false
		for _, kw := range keywords {
			if strings.Contains(facts, strings.ToLower(kw)) {
				fired = true
				break
			}
		}
		if !fired {
			return nil, nil
		}

		c := service.Conclusion{Description: conclusion}
		for _, sr := range legal {
			if len(tags) > 0 {
				if textmatch.TagsIntersect(sr.Record.Tags, tags) {
					c.SupportingRecords = append(c.SupportingRecords, sr.Record.ID)
				}
				continue
			}
			for _, kw := range keywords {
				if strings.Contains(strings.ToLower(sr.Record.Text), strings.ToLower(kw)) {
					c.SupportingRecords = append(c.SupportingRecords, sr.Record.ID)
					break
				}
			}
		}

		// A conclusion without legal backing is not defensible.
		if len(c.SupportingRecords) == 0 {
			return nil, nil
		}
		return []service.Conclusion{c}, nil
	}
}

// DefaultBundle is the built-in Tennessee criminal defense bundle used when
// no bundle file is configured.
func DefaultBundle() *Bundle {
	return &Bundle{
		JurisdictionTags: []string{"tennessee"},
		Taxonomy: map[string]string{
			"diversion_eligible":                 "eligible for judicial diversion",
			"expungement":                        "record expungement pathway",
			"suppression":                        "evidence suppression grounds",
			"plea_negotiation":                   "plea negotiation posture",
			"preferential_option_for_vulnerable": "protection of vulnerable dependents",
			"dignity_of_person":                  "dignity of the human person",
			"restorative_justice":                "restorative over punitive outcomes",
		},
		Rules: []RuleSpec{
			{
				Name:         "diversion-eligibility",
				FactKeywords: []string{"simple possession", "first offense", "no prior record"},
				RecordTags:   []string{"diversion_eligible"},
				Conclusion:   "Pursue judicial diversion based on eligibility precedent.",
			},
			{
				Name:         "suppression-motion",
				FactKeywords: []string{"warrantless search", "no probable cause", "traffic stop"},
				RecordTags:   []string{"suppression"},
				Conclusion:   "Move to suppress evidence obtained from the contested search.",
			},
			{
				Name:         "plea-mitigation",
				FactKeywords: []string{"caregiver", "employed", "community ties"},
				RecordTags:   []string{"plea_negotiation"},
				Conclusion:   "Negotiate a mitigated plea grounded in the defendant's circumstances.",
			},
		},
	}
}
