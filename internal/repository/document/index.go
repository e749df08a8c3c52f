package document

import (
	"github.com/coloradocollege/digitalcc/internal/db"
	domdoc "github.com/coloradocollege/digitalcc/internal/domain/document"
)

// buildIndex returns the repository index schema.
// TAG fields back exact filters and facets, TEXT fields back phrase and keyword queries.
func buildIndex(name, prefix string) (*db.IndexDefinition, error) {
	return db.NewIndex(name).
		Prefix(prefix).
		Tag(domdoc.FieldPID).
		Tag(domdoc.FieldIdentifier).
		Tag(domdoc.FieldParent).
		Tag(domdoc.FieldInCollections).
		Tag(domdoc.FieldContentModels).
		SortableTag(domdoc.FieldTitleSort).
		Text(domdoc.TextFields...).
		Tag(domdoc.FieldSubjectTopicFacet).
		Tag(domdoc.FieldSubjectGeographicFacet).
		Tag(domdoc.FieldSubjectTemporalFacet).
		Tag(domdoc.FieldSubjectGenreFacet).
		Tag(domdoc.FieldTypeOfResource).
		Tag(domdoc.FieldGenre).
		Tag(domdoc.FieldLanguage).
		Tag(domdoc.FieldDateCreated).
		Stored(domdoc.FieldSource).
		Build()
}
