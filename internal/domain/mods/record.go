// Package mods maps MODS v3 bibliographic records to indexable documents.
package mods

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/coloradocollege/digitalcc/internal/domain"
)

// Record is the subset of a MODS document the mapper reads.
// Element names are matched by local name, so any namespace prefix is accepted.
type Record struct {
	XMLName         xml.Name     `xml:"mods"`
	TitleInfo       []TitleInfo  `xml:"titleInfo"`
	Names           []Name       `xml:"name"`
	TypeOfResource  []string     `xml:"typeOfResource"`
	Genre           []string     `xml:"genre"`
	OriginInfo      []OriginInfo `xml:"originInfo"`
	Language        []Language   `xml:"language"`
	Abstract        []string     `xml:"abstract"`
	Notes           []Note       `xml:"note"`
	Subjects        []Subject    `xml:"subject"`
	Identifiers     []string     `xml:"identifier"`
	Locations       []Location   `xml:"location"`
	AccessCondition []string     `xml:"accessCondition"`
}

// TitleInfo is a titleInfo element. Type "alternative" marks an alternative title.
type TitleInfo struct {
	Type    string `xml:"type,attr"`
	NonSort string `xml:"nonSort"`
	Title   string `xml:"title"`
}

// Name is a name element with its first role term.
type Name struct {
	NameParts []string `xml:"namePart"`
	RoleTerms []string `xml:"role>roleTerm"`
}

// OriginInfo holds publication details.
type OriginInfo struct {
	Places        []string `xml:"place>placeTerm"`
	Publisher     []string `xml:"publisher"`
	DateCreated   []string `xml:"dateCreated"`
	DateIssued    []string `xml:"dateIssued"`
	CopyrightDate []string `xml:"copyrightDate"`
}

// Language lists language terms (code or text).
type Language struct {
	Terms []string `xml:"languageTerm"`
}

// Note is a note element; types starting with "admin" are administrative.
type Note struct {
	Type string `xml:"type,attr"`
	Text string `xml:",chardata"`
}

// Subject is one subject heading group.
type Subject struct {
	Topic      []string `xml:"topic"`
	Geographic []string `xml:"geographic"`
	Temporal   []string `xml:"temporal"`
	Genre      []string `xml:"genre"`
	Names      []Name   `xml:"name"`
}

// Location holds resource URLs.
type Location struct {
	URL []string `xml:"url"`
}

// Parse decodes a MODS XML document. Errors wrap domain.ErrMalformedMetadata.
func Parse(data []byte) (Record, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Record{}, fmt.Errorf("%w: empty document", domain.ErrMalformedMetadata)
	}
	var rec Record
	if err := xml.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("%w: %v", domain.ErrMalformedMetadata, err)
	}
	return rec, nil
}
