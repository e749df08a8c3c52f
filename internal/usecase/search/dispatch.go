package search

import (
	"errors"
	"fmt"
	"strings"

	"github.com/coloradocollege/digitalcc/internal/domain"
	domdoc "github.com/coloradocollege/digitalcc/internal/domain/document"
	"github.com/coloradocollege/digitalcc/internal/domain/search/facet"
	"github.com/coloradocollege/digitalcc/internal/domain/search/mode"
	"github.com/coloradocollege/digitalcc/internal/domain/search/query"
)

var errEmptyQuery = fmt.Errorf("%w: query is required", domain.ErrInvalidQuery)

var subjectFields = []string{
	domdoc.FieldSubjectTopic,
	domdoc.FieldSubjectGeographic,
	domdoc.FieldSubjectTemporal,
}

// modeClause translates a search mode and query into a single clause.
func modeClause(m mode.Mode, q string) (query.Clause, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return query.Clause{}, errEmptyQuery
	}

	var (
		c   query.Clause
		err error
	)
	switch m {
	case mode.Creator:
		c, err = query.NewPhrase(domdoc.FieldCreator, q)
	case mode.Title:
		c, err = query.NewPhrase(domdoc.FieldTitlePrincipal, q)
	case mode.Subject:
		alts := make([]query.Clause, 0, len(subjectFields))
		for _, f := range subjectFields {
			p, perr := query.NewPhrase(f, q)
			if perr != nil {
				return query.Clause{}, perr
			}
			alts = append(alts, p)
		}
		c, err = query.NewAny(alts...)
	case mode.Number:
		c, err = anyTerm([]string{domdoc.FieldPID, domdoc.FieldIdentifier}, q)
	case mode.Keyword:
		c, err = query.NewText(q)
	default:
		return query.Clause{}, fmt.Errorf("%w: %q", domain.ErrInvalidSearchMode, m)
	}
	if err != nil {
		return query.Clause{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	return c, nil
}

// facetClause matches value exactly on any of the facet's filter fields.
func facetClause(f facet.Facet, value string) (query.Clause, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return query.Clause{}, fmt.Errorf("%w: facet value is required", domain.ErrInvalidQuery)
	}
	c, err := anyTerm(f.FilterFields, value)
	if err != nil {
		return query.Clause{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	return c, nil
}

func anyTerm(fields []string, value string) (query.Clause, error) {
	if len(fields) == 0 {
		return query.Clause{}, errors.New("no fields")
	}
	terms := make([]query.Clause, 0, len(fields))
	for _, f := range fields {
		t, err := query.NewTerm(f, value)
		if err != nil {
			return query.Clause{}, err
		}
		terms = append(terms, t)
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return query.NewAny(terms...)
}
