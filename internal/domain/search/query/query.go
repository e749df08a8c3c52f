package query

import (
	"fmt"
	"strings"
)

// MaxClauses is the maximum number of clauses per group.
const MaxClauses = 32

// Kind is the matching strategy of a clause.
type Kind int

const (
	// KindTerm matches an exact, untokenized value.
	KindTerm Kind = iota
	// KindPhrase matches consecutive analyzed tokens in a text field.
	KindPhrase
	// KindText matches every analyzed token somewhere in the given text fields.
	KindText
	// KindAny matches when at least one nested clause matches.
	KindAny
)

// Clause is a single query condition.
type Clause struct {
	kind   Kind
	fields []string
	value  string
	any    []Clause
}

// NewTerm creates an exact-match clause on a tag field.
func NewTerm(field, value string) (Clause, error) {
	if field == "" {
		return Clause{}, fmt.Errorf("term field is required")
	}
	if value == "" {
		return Clause{}, fmt.Errorf("term value is required for field %q", field)
	}
	return Clause{kind: KindTerm, fields: []string{field}, value: value}, nil
}

// NewPhrase creates a phrase clause on a text field.
func NewPhrase(field, value string) (Clause, error) {
	if field == "" {
		return Clause{}, fmt.Errorf("phrase field is required")
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return Clause{}, fmt.Errorf("phrase value is required for field %q", field)
	}
	return Clause{kind: KindPhrase, fields: []string{field}, value: value}, nil
}

// NewText creates a free-text clause. No fields means every text field.
func NewText(value string, fields ...string) (Clause, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Clause{}, fmt.Errorf("text value is required")
	}
	return Clause{kind: KindText, fields: fields, value: value}, nil
}

// NewAny creates a disjunction of clauses.
func NewAny(clauses ...Clause) (Clause, error) {
	if len(clauses) == 0 {
		return Clause{}, fmt.Errorf("at least one clause is required")
	}
	if len(clauses) > MaxClauses {
		return Clause{}, fmt.Errorf("too many alternatives (max %d)", MaxClauses)
	}
	return Clause{kind: KindAny, any: clauses}, nil
}

// Kind returns the clause kind.
func (c Clause) Kind() Kind { return c.kind }

// Field returns the first field, or "" for all-field text and disjunctions.
func (c Clause) Field() string {
	if len(c.fields) == 0 {
		return ""
	}
	return c.fields[0]
}

// Fields returns every targeted field.
func (c Clause) Fields() []string { return c.fields }

// Value returns the matched value.
func (c Clause) Value() string { return c.value }

// Any returns the alternatives of a disjunction.
func (c Clause) Any() []Clause { return c.any }

// Terms splits a text value on whitespace.
func (c Clause) Terms() []string { return strings.Fields(c.value) }

// Expression is a conjunction of clauses. An empty expression matches every document.
type Expression struct {
	must []Clause
}

// NewExpression validates and creates an Expression.
func NewExpression(must ...Clause) (Expression, error) {
	if len(must) > MaxClauses {
		return Expression{}, fmt.Errorf("too many clauses (max %d)", MaxClauses)
	}
	return Expression{must: must}, nil
}

// MatchAll returns the empty expression.
func MatchAll() Expression { return Expression{} }

// Must returns the conjoined clauses.
func (e Expression) Must() []Clause { return e.must }

// IsEmpty reports whether the expression has no clauses.
func (e Expression) IsEmpty() bool { return len(e.must) == 0 }

// And returns a copy of e with more clauses conjoined.
func (e Expression) And(clauses ...Clause) (Expression, error) {
	must := make([]Clause, 0, len(e.must)+len(clauses))
	must = append(must, e.must...)
	must = append(must, clauses...)
	return NewExpression(must...)
}
