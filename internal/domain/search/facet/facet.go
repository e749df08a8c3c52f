// Package facet holds the fixed facet table shared by filtering and aggregation.
package facet

import (
	"fmt"
	"strings"

	"github.com/coloradocollege/digitalcc/internal/domain"
	"github.com/coloradocollege/digitalcc/internal/domain/document"
)

// Facet maps a user-facing label to the exact-match fields behind it.
type Facet struct {
	Label string
	// FilterFields are OR-ed when filtering on a facet value.
	FilterFields []string
	// AggregationField is the field bucketed by terms aggregation.
	AggregationField string
}

// Facet labels.
const (
	Format          = "Format"
	Geographic      = "Geographic"
	Genres          = "Genres"
	Languages       = "Languages"
	PublicationYear = "Publication Year"
	Temporal        = "Temporal"
	Topic           = "Topic"
)

var table = []Facet{
	{Format, []string{document.FieldTypeOfResource}, document.FieldTypeOfResource},
	{Geographic, []string{document.FieldSubjectGeographicFacet}, document.FieldSubjectGeographicFacet},
	{Genres, []string{document.FieldGenre, document.FieldSubjectGenreFacet}, document.FieldGenre},
	{Languages, []string{document.FieldLanguage}, document.FieldLanguage},
	{PublicationYear, []string{document.FieldDateCreated}, document.FieldDateCreated},
	{Temporal, []string{document.FieldSubjectTemporalFacet}, document.FieldSubjectTemporalFacet},
	{Topic, []string{document.FieldSubjectTopicFacet}, document.FieldSubjectTopicFacet},
}

// aliases accepts the shorter labels used by older links ("Time" for Temporal).
var aliases = map[string]string{
	"time":   Temporal,
	"genre":  Genres,
	"year":   PublicationYear,
	"format": Format,
}

// All returns the facet table in display order.
func All() []Facet {
	out := make([]Facet, len(table))
	copy(out, table)
	return out
}

// Lookup resolves a facet label, case-insensitively.
func Lookup(label string) (Facet, error) {
	l := strings.TrimSpace(label)
	for _, f := range table {
		if strings.EqualFold(f.Label, l) {
			return f, nil
		}
	}
	if canonical, ok := aliases[strings.ToLower(l)]; ok {
		return Lookup(canonical)
	}
	return Facet{}, fmt.Errorf("%w: %q", domain.ErrUnknownFacet, label)
}
