package document

// Index field names. TAG fields match exact values, TEXT fields are analyzed.
const (
	FieldPID            = "pid"
	FieldIdentifier     = "identifier"
	FieldParent         = "parent"
	FieldInCollections  = "inCollections"
	FieldContentModels  = "content_models"
	FieldTitleSort      = "title_sort"
	FieldTitlePrincipal = "titlePrincipal"
	FieldTitleAlt       = "titleAlternative"
	FieldCreator        = "creator"
	FieldContributor    = "contributor"
	FieldTypeOfResource = "typeOfResource"
	FieldGenre          = "genre"
	FieldLanguage       = "language"
	FieldDateCreated    = "dateCreated"
	FieldDateIssued     = "dateIssued"
	FieldCopyrightDate  = "copyrightDate"
	FieldAbstract       = "abstract"
	FieldNote           = "note"
	FieldPublisher      = "publisher"
	FieldPlace          = "place"
	FieldUseAndRepro    = "useAndReproduction"

	FieldSubjectTopic           = "subject_topic"
	FieldSubjectTopicFacet      = "subject_topic_facet"
	FieldSubjectGeographic      = "subject_geographic"
	FieldSubjectGeographicFacet = "subject_geographic_facet"
	FieldSubjectTemporal        = "subject_temporal"
	FieldSubjectTemporalFacet   = "subject_temporal_facet"
	FieldSubjectGenre           = "subject_genre"
	FieldSubjectGenreFacet      = "subject_genre_facet"
	FieldSubjectName            = "subject_name"

	// FieldSource holds the stored JSON document. Not indexed.
	FieldSource = "source_json"
)

// TextFields lists the analyzed fields searched by keyword queries.
// Admin notes are staff-only and stay in the stored source.
var TextFields = []string{
	FieldTitlePrincipal, FieldTitleAlt, FieldCreator, FieldContributor,
	FieldSubjectTopic, FieldSubjectGeographic, FieldSubjectTemporal, FieldSubjectGenre, FieldSubjectName,
	FieldAbstract, FieldNote, FieldPublisher, FieldPlace,
	FieldDateIssued, FieldCopyrightDate, FieldUseAndRepro,
}
