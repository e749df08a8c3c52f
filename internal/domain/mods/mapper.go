package mods

import (
	"fmt"
	"slices"
	"strings"

	"github.com/coloradocollege/digitalcc/internal/domain/document"
)

// Name targets a role can be mapped to.
const (
	TargetCreator     = "creator"
	TargetContributor = "contributor"
)

// RoleMapping maps a role-term prefix to TargetCreator or TargetContributor.
// Prefixes match case-insensitively; the longest matching prefix wins.
// Names whose role matches no prefix are dropped.
type RoleMapping map[string]string

// DefaultRoles keeps only names whose role starts with "creator".
func DefaultRoles() RoleMapping {
	return RoleMapping{"creator": TargetCreator}
}

// Validate checks that every role maps to a known target.
func (m RoleMapping) Validate() error {
	for role, target := range m {
		if strings.TrimSpace(role) == "" {
			return fmt.Errorf("role prefix must not be empty")
		}
		if target != TargetCreator && target != TargetContributor {
			return fmt.Errorf("role %q maps to unknown target %q", role, target)
		}
	}
	return nil
}

func (m RoleMapping) resolve(role string) string {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return ""
	}
	best, target := -1, ""
	for prefix, t := range m {
		p := strings.ToLower(prefix)
		if strings.HasPrefix(role, p) && len(p) > best {
			best, target = len(p), t
		}
	}
	return target
}

// Map converts a parsed record into a document. pid, path, content models and
// datastreams are attached by the caller.
func Map(rec Record, roles RoleMapping) document.Document {
	if roles == nil {
		roles = DefaultRoles()
	}
	var d document.Document

	for _, ti := range rec.TitleInfo {
		title := joinTitle(ti)
		if title == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(ti.Type), "alt") {
			d.TitleAlternative = appendUnique(d.TitleAlternative, title)
			continue
		}
		d.TitlePrincipal = title
	}

	for _, n := range rec.Names {
		part := firstNonEmpty(n.NameParts)
		if part == "" {
			continue
		}
		switch roles.resolve(firstNonEmpty(n.RoleTerms)) {
		case TargetCreator:
			d.Creator = appendUnique(d.Creator, part)
		case TargetContributor:
			d.Contributor = appendUnique(d.Contributor, part)
		}
	}

	d.TypeOfResource = appendUnique(nil, rec.TypeOfResource...)
	d.Genre = appendUnique(nil, rec.Genre...)
	d.Abstract = appendUnique(nil, rec.Abstract...)
	d.Identifier = appendUnique(nil, rec.Identifiers...)
	for _, l := range rec.Language {
		d.Language = appendUnique(d.Language, l.Terms...)
	}

	for _, n := range rec.Notes {
		if strings.HasPrefix(strings.ToLower(n.Type), "admin") {
			d.AdminNote = appendUnique(d.AdminNote, n.Text)
		} else {
			d.Note = appendUnique(d.Note, n.Text)
		}
	}

	for _, oi := range rec.OriginInfo {
		setOnce(&d.Place, oi.Places)
		setOnce(&d.Publisher, oi.Publisher)
		setOnce(&d.DateCreated, oi.DateCreated)
		setOnce(&d.DateIssued, oi.DateIssued)
		setOnce(&d.CopyrightDate, oi.CopyrightDate)
	}

	d.UseAndReproduction = firstNonEmpty(rec.AccessCondition)
	for _, loc := range rec.Locations {
		setOnce(&d.Handle, loc.URL)
	}

	var subj document.Subject
	for _, s := range rec.Subjects {
		subj.Topic = appendUnique(subj.Topic, s.Topic...)
		subj.Geographic = appendUnique(subj.Geographic, s.Geographic...)
		subj.Temporal = appendUnique(subj.Temporal, s.Temporal...)
		subj.Genre = appendUnique(subj.Genre, s.Genre...)
		for _, n := range s.Names {
			subj.Name = appendUnique(subj.Name, firstNonEmpty(n.NameParts))
		}
	}
	if !subj.IsEmpty() {
		d.Subject = &subj
	}

	return d
}

func joinTitle(ti TitleInfo) string {
	title := clean(ti.Title)
	if title == "" {
		return ""
	}
	if ns := clean(ti.NonSort); ns != "" {
		return ns + " " + title
	}
	return title
}

// appendUnique appends non-empty values not already present.
func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		v = clean(v)
		if v == "" || slices.Contains(dst, v) {
			continue
		}
		dst = append(dst, v)
	}
	return dst
}

func setOnce(dst *string, values []string) {
	if *dst != "" {
		return
	}
	*dst = firstNonEmpty(values)
}

func firstNonEmpty(values []string) string {
	for _, v := range values {
		if v = clean(v); v != "" {
			return v
		}
	}
	return ""
}

// clean collapses internal whitespace runs left by pretty-printed XML.
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
