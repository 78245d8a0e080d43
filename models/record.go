package models

import (
	"github.com/google/uuid"
)

// RecordKind identifies which knowledge collection a record belongs to.
type RecordKind string

const (
	KindLegal     RecordKind = "legal"     // statutes, cases, precedents
	KindPrinciple RecordKind = "principle" // ethical/guideline records
)

// Record is an immutable unit of knowledge from one of the two collections.
// Records are never mutated after ingestion; a revision is stored as a new
// record whose Supersedes field points back at the old id.
type Record struct {
	ID              uuid.UUID  `json:"id"`
	Kind            RecordKind `json:"kind"`
	Text            string     `json:"text"`
	Tags            []string   `json:"tags"` // jurisdiction or principle labels
	SourceReference string     `json:"source_reference"`
	Weight          float64    `json:"weight"` // prior relevance, 1.0 = neutral
	Supersedes      *uuid.UUID `json:"supersedes,omitempty"`
}

// NewVersion returns a copy of the record with a fresh id, the given text,
// and a Supersedes back-reference to the original. The original is untouched.
func (r Record) NewVersion(text string) Record {
	prev := r.ID
	next := r
	next.ID = uuid.New()
	next.Text = text
	next.Supersedes = &prev
	return next
}

// ScoredRecord pairs a record with the relevance score assigned by a store
// lookup. Relevance is always in [0,1].
type ScoredRecord struct {
	Record    Record  `json:"record"`
	Relevance float64 `json:"relevance"`
}

// RecordQuery describes a store lookup: free-text terms scored against record
// text, a tags filter (intersection; empty means no filter), and tags whose
// records must be excluded entirely.
type RecordQuery struct {
	Terms       []string
	Tags        []string
	ExcludeTags []string
	Limit       int
}

// Query is the structured representation of the case facts behind one
// reasoning request. It lives for the duration of the request only.
type Query struct {
	Facts            []string `json:"facts"`
	JurisdictionTags []string `json:"jurisdiction_tags"`
	FreeText         string   `json:"free_text"`
}

// Terms flattens the query into the term list used for store lookups:
// facts in order, then the free-text question.
func (q Query) Terms() []string {
	terms := make([]string, 0, len(q.Facts)+1)
	terms = append(terms, q.Facts...)
	if q.FreeText != "" {
		terms = append(terms, q.FreeText)
	}
	return terms
}
