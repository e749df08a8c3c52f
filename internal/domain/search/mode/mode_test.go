package mode

import "testing"

func TestIsValid(t *testing.T) {
	valid := []Mode{Keyword, Creator, Title, Subject, Number}
	for _, m := range valid {
		if !m.IsValid() {
			t.Errorf("%q.IsValid() = false, want true", m)
		}
	}

	invalid := []Mode{"", "kw", "hybrid", "CREATOR"}
	for _, m := range invalid {
		if m.IsValid() {
			t.Errorf("%q.IsValid() = true, want false", m)
		}
	}
}

func TestParse(t *testing.T) {
	tests := map[string]Mode{
		"":         Keyword,
		"kw":       Keyword,
		" KW ":     Keyword,
		"Creator":  Creator,
		"subject":  Subject,
		"number":   Number,
		"semantic": Mode("semantic"),
	}
	for in, want := range tests {
		if got := Parse(in); got != want {
			t.Errorf("Parse(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsFacet(t *testing.T) {
	for _, s := range []string{"facet", "facets", "Facet"} {
		if !IsFacet(s) {
			t.Errorf("IsFacet(%q) = false", s)
		}
	}
	for _, s := range []string{"", "kw", "title"} {
		if IsFacet(s) {
			t.Errorf("IsFacet(%q) = true", s)
		}
	}
}
