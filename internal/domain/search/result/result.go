package result

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Hit is a single matched document.
type Hit struct {
	// ID is the engine-internal identifier.
	ID     string          `json:"id"`
	PID    string          `json:"pid"`
	Source json.RawMessage `json:"source"`
}

// Bucket is one facet value with its document count.
type Bucket struct {
	Key   string `json:"key"`
	Count int    `json:"doc_count"`
}

// Aggregation is a named facet with its buckets.
type Aggregation struct {
	Name    string   `json:"name"`
	Buckets []Bucket `json:"buckets"`
}

// Aggregations is an ordered facet set.
type Aggregations []Aggregation

// Get returns the aggregation with the given name.
func (a Aggregations) Get(name string) (Aggregation, bool) {
	for _, agg := range a {
		if agg.Name == name {
			return agg, true
		}
	}
	return Aggregation{}, false
}

// Prune drops empty buckets and then facets left without any bucket.
func (a Aggregations) Prune() Aggregations {
	out := make(Aggregations, 0, len(a))
	for _, agg := range a {
		buckets := make([]Bucket, 0, len(agg.Buckets))
		for _, b := range agg.Buckets {
			if b.Key == "" || b.Count <= 0 {
				continue
			}
			buckets = append(buckets, b)
		}
		if len(buckets) == 0 {
			continue
		}
		out = append(out, Aggregation{Name: agg.Name, Buckets: buckets})
	}
	return out
}

// MarshalJSON encodes the facets as an object keyed by name, in table order:
// {"Format":{"buckets":[...]}, ...}.
func (a Aggregations) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, agg := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(agg.Name)
		if err != nil {
			return nil, err
		}
		buckets := agg.Buckets
		if buckets == nil {
			buckets = []Bucket{}
		}
		body, err := json.Marshal(struct {
			Buckets []Bucket `json:"buckets"`
		}{buckets})
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(body)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the object form written by MarshalJSON, keeping key order.
func (a *Aggregations) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*a = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("aggregations: expected object, got %v", tok)
	}
	out := Aggregations{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var body struct {
			Buckets []Bucket `json:"buckets"`
		}
		if err := dec.Decode(&body); err != nil {
			return fmt.Errorf("aggregation %s: %w", name, err)
		}
		out = append(out, Aggregation{Name: name, Buckets: body.Buckets})
	}
	*a = out
	return nil
}

// Hits is a page of matches.
type Hits struct {
	Total int   `json:"total"`
	Items []Hit `json:"items"`
}

// Page is the response of every listing operation.
type Page struct {
	Hits         Hits         `json:"hits"`
	Aggregations Aggregations `json:"aggregations"`
	Offset       int          `json:"from"`
	Size         int          `json:"size"`
}
