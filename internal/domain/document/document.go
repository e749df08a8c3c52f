package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Content-model identifiers carried in RELS-EXT hasModel relationships.
const (
	ModelCollection = "islandora:collectionCModel"
	ModelCompound   = "islandora:compoundCModel"
	ModelLargeImage = "islandora:sp_large_image_cmodel"
	// ModelConstituent marks an object whose datastreams belong to a compound parent.
	ModelConstituent = "constituent"
)

// Subject holds the independently facetable subject headings.
type Subject struct {
	Topic      []string `json:"topic,omitempty"`
	Geographic []string `json:"geographic,omitempty"`
	Temporal   []string `json:"temporal,omitempty"`
	Genre      []string `json:"genre,omitempty"`
	Name       []string `json:"name,omitempty"`
}

// IsEmpty reports whether no subject heading is set.
func (s Subject) IsEmpty() bool {
	return len(s.Topic) == 0 && len(s.Geographic) == 0 && len(s.Temporal) == 0 &&
		len(s.Genre) == 0 && len(s.Name) == 0
}

// Datastream is a media file attached to an object.
// For compound objects PID names the constituent the file belongs to.
type Datastream struct {
	PID      string `json:"pid,omitempty"`
	DSID     string `json:"dsid"`
	Label    string `json:"label,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Order    int    `json:"order,omitempty"`
}

// Document is one indexed repository object. Field names follow the stored JSON source.
type Document struct {
	PID                string   `json:"pid"`
	TitlePrincipal     string   `json:"titlePrincipal,omitempty"`
	TitleAlternative   []string `json:"titleAlternative,omitempty"`
	Creator            []string `json:"creator,omitempty"`
	Contributor        []string `json:"contributor,omitempty"`
	Subject            *Subject `json:"subject,omitempty"`
	TypeOfResource     []string `json:"typeOfResource,omitempty"`
	Genre              []string `json:"genre,omitempty"`
	Language           []string `json:"language,omitempty"`
	Identifier         []string `json:"identifier,omitempty"`
	DateCreated        string   `json:"dateCreated,omitempty"`
	DateIssued         string   `json:"dateIssued,omitempty"`
	CopyrightDate      string   `json:"copyrightDate,omitempty"`
	Abstract           []string `json:"abstract,omitempty"`
	Note               []string `json:"note,omitempty"`
	AdminNote          []string `json:"adminNote,omitempty"`
	UseAndReproduction string   `json:"useAndReproduction,omitempty"`
	Handle             string   `json:"handle,omitempty"`
	Place              string   `json:"place,omitempty"`
	Publisher          string   `json:"publisher,omitempty"`

	Parent        string       `json:"parent,omitempty"`
	InCollections []string     `json:"inCollections,omitempty"`
	ContentModels []string     `json:"content_models,omitempty"`
	Datastreams   []Datastream `json:"datastreams,omitempty"`
}

// Validate checks the structural invariants of a document before it is stored.
func (d *Document) Validate() error {
	if strings.TrimSpace(d.PID) == "" {
		return fmt.Errorf("document pid is required")
	}
	if d.HasModel(ModelConstituent) {
		return fmt.Errorf("document %s is a constituent and cannot be indexed on its own", d.PID)
	}
	if slices.Contains(d.InCollections, d.PID) {
		return fmt.Errorf("document %s lists itself in inCollections", d.PID)
	}
	if d.Parent != "" && !slices.Contains(d.InCollections, d.Parent) {
		return fmt.Errorf("document %s parent %s is not in inCollections", d.PID, d.Parent)
	}
	return nil
}

// HasModel reports whether the document carries the given content model.
func (d *Document) HasModel(model string) bool {
	return slices.Contains(d.ContentModels, model)
}

// IsCollection reports whether the object is a collection.
func (d *Document) IsCollection() bool { return d.HasModel(ModelCollection) }

// IsCompound reports whether the object is a compound parent.
func (d *Document) IsCompound() bool { return d.HasModel(ModelCompound) }

// SetPath attaches the containment path. The last element becomes the parent.
func (d *Document) SetPath(path []string) {
	d.InCollections = slices.Clone(path)
	d.Parent = ""
	if len(path) > 0 {
		d.Parent = path[len(path)-1]
	}
}

// Source returns the canonical JSON encoding stored alongside the index fields.
func (d *Document) Source() ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal document %s: %w", d.PID, err)
	}
	return data, nil
}

// FromSource decodes a stored JSON source.
func FromSource(data []byte) (Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return Document{}, fmt.Errorf("unmarshal document: %w", err)
	}
	return d, nil
}

// SameContent reports whether two documents would produce identical stored sources.
func SameContent(a, b *Document) bool {
	sa, err := a.Source()
	if err != nil {
		return false
	}
	sb, err := b.Source()
	if err != nil {
		return false
	}
	return bytes.Equal(sa, sb)
}
