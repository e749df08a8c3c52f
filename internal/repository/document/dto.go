package document

import (
	"strings"

	domdoc "github.com/coloradocollege/digitalcc/internal/domain/document"
)

// buildRecordFields flattens a document into index fields plus its stored JSON source.
// Empty values are dropped by the store.
func buildRecordFields(doc *domdoc.Document, source []byte) map[string][]string {
	m := map[string][]string{
		domdoc.FieldPID:            {doc.PID},
		domdoc.FieldIdentifier:     doc.Identifier,
		domdoc.FieldParent:         one(doc.Parent),
		domdoc.FieldInCollections:  doc.InCollections,
		domdoc.FieldContentModels:  doc.ContentModels,
		domdoc.FieldTitleSort:      one(strings.ToLower(strings.TrimSpace(doc.TitlePrincipal))),
		domdoc.FieldTitlePrincipal: one(doc.TitlePrincipal),
		domdoc.FieldTitleAlt:       doc.TitleAlternative,
		domdoc.FieldCreator:        doc.Creator,
		domdoc.FieldContributor:    doc.Contributor,
		domdoc.FieldTypeOfResource: doc.TypeOfResource,
		domdoc.FieldGenre:          doc.Genre,
		domdoc.FieldLanguage:       doc.Language,
		domdoc.FieldDateCreated:    one(doc.DateCreated),
		domdoc.FieldAbstract:       doc.Abstract,
		domdoc.FieldNote:           doc.Note,
		domdoc.FieldPublisher:      one(doc.Publisher),
		domdoc.FieldPlace:          one(doc.Place),
		domdoc.FieldDateIssued:     one(doc.DateIssued),
		domdoc.FieldCopyrightDate:  one(doc.CopyrightDate),
		domdoc.FieldUseAndRepro:    one(doc.UseAndReproduction),
		domdoc.FieldSource:         {string(source)},
	}
	if s := doc.Subject; s != nil {
		m[domdoc.FieldSubjectTopic] = s.Topic
		m[domdoc.FieldSubjectTopicFacet] = s.Topic
		m[domdoc.FieldSubjectGeographic] = s.Geographic
		m[domdoc.FieldSubjectGeographicFacet] = s.Geographic
		m[domdoc.FieldSubjectTemporal] = s.Temporal
		m[domdoc.FieldSubjectTemporalFacet] = s.Temporal
		m[domdoc.FieldSubjectGenre] = s.Genre
		m[domdoc.FieldSubjectGenreFacet] = s.Genre
		m[domdoc.FieldSubjectName] = s.Name
	}
	for k, v := range m {
		if len(v) == 0 {
			delete(m, k)
		}
	}
	return m
}

func one(v string) []string {
	if v == "" {
		return nil
	}
	return []string{v}
}
