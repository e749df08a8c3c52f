package mode

import "strings"

// Mode is a user-facing search strategy.
type Mode string

// Search mode constants.
const (
	// Keyword is free text across every text field, AND between terms.
	Keyword Mode = "keyword"
	// Creator is a phrase match against creator names.
	Creator Mode = "creator"
	// Title is a phrase match against the principal title.
	Title Mode = "title"
	// Subject is a phrase match against topic, geographic or temporal headings.
	Subject Mode = "subject"
	// Number is an exact match against pid or identifier.
	Number Mode = "number"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Keyword || m == Creator || m == Title || m == Subject || m == Number
}

// Parse normalizes a request value. Empty and "kw" map to Keyword.
// Unknown values are returned as-is and fail IsValid.
func Parse(s string) Mode {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "", "kw":
		return Keyword
	default:
		return Mode(v)
	}
}

// IsFacet reports whether a raw mode value requests a facet filter ("facet", "facets", ...).
func IsFacet(s string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(s)), "facet")
}
