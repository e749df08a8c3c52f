package harvest

import "time"

// Outcome is what happened to one visited object.
type Outcome string

// Harvest outcomes, also used as the metric label.
const (
	OutcomeIndexed     Outcome = "indexed"
	OutcomeUpdated     Outcome = "updated"
	OutcomeUnchanged   Outcome = "unchanged"
	OutcomeConstituent Outcome = "constituent"
	OutcomeUnindexable Outcome = "unindexable"
	OutcomeMalformed   Outcome = "malformed"
	OutcomeSkipped     Outcome = "skipped"
)

// Report summarizes a harvest run.
type Report struct {
	Root        string        `json:"root,omitempty"`
	Collections int           `json:"collections"`
	Indexed     int           `json:"indexed"`
	Updated     int           `json:"updated"`
	Unchanged   int           `json:"unchanged"`
	Constituent int           `json:"constituents"`
	Unindexable int           `json:"unindexable"`
	Malformed   int           `json:"malformed"`
	Skipped     int           `json:"skipped"`
	Duration    time.Duration `json:"duration"`
}

func (r *Report) add(o Outcome) {
	switch o {
	case OutcomeIndexed:
		r.Indexed++
	case OutcomeUpdated:
		r.Updated++
	case OutcomeUnchanged:
		r.Unchanged++
	case OutcomeConstituent:
		r.Constituent++
	case OutcomeUnindexable:
		r.Unindexable++
	case OutcomeMalformed:
		r.Malformed++
	case OutcomeSkipped:
		r.Skipped++
	}
}

// Changed reports whether the run wrote anything.
func (r *Report) Changed() bool { return r.Indexed+r.Updated > 0 }
