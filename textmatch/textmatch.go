// Package textmatch provides the keyword tokenization and overlap scoring
// shared by the in-memory store lookup and the principle conflict check.
package textmatch

import (
	"sort"
	"strings"
	"unicode"
)

// stopwords excluded from token sets; scoring short legal phrases against
// connective words inflates overlap.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "has": true, "in": true,
	"is": true, "it": true, "its": true, "of": true, "on": true, "or": true,
	"that": true, "the": true, "their": true, "this": true, "to": true,
	"was": true, "with": true,
}

// Tokenize lowercases the inputs, splits on non-alphanumeric runes, and drops
// stopwords and single-character fragments. Duplicates are preserved.
func Tokenize(texts ...string) []string {
	var tokens []string
	for _, text := range texts {
		fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
		})
		for _, f := range fields {
			if len(f) < 2 || stopwords[f] {
				continue
			}
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// Set converts a token list to a membership set.
func Set(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

// Containment scores how much of the query token set appears in the document
// token set: |query ∩ doc| / |query|, in [0,1]. An empty query scores 0.
func Containment(query, doc []string) float64 {
	qset := Set(query)
	if len(qset) == 0 {
		return 0
	}
	dset := Set(doc)
	hits := 0
	for t := range qset {
		if dset[t] {
			hits++
		}
	}
	return float64(hits) / float64(len(qset))
}

// Overlap scores two token sets with the overlap coefficient:
// |a ∩ b| / min(|a|, |b|), in [0,1]. Either side empty scores 0.
func Overlap(a, b []string) float64 {
	aset, bset := Set(a), Set(b)
	if len(aset) == 0 || len(bset) == 0 {
		return 0
	}
	hits := 0
	for t := range aset {
		if bset[t] {
			hits++
		}
	}
	min := len(aset)
	if len(bset) < min {
		min = len(bset)
	}
	return float64(hits) / float64(min)
}

// SharedTerms returns the sorted intersection of two token lists.
func SharedTerms(a, b []string) []string {
	aset, bset := Set(a), Set(b)
	var shared []string
	for t := range aset {
		if bset[t] {
			shared = append(shared, t)
		}
	}
	sort.Strings(shared)
	return shared
}

// TagsIntersect reports whether the two tag lists share any tag,
// case-insensitively.
func TagsIntersect(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[strings.ToLower(t)] = true
	}
	for _, t := range b {
		if set[strings.ToLower(t)] {
			return true
		}
	}
	return false
}
