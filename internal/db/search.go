package db

import "github.com/coloradocollege/digitalcc/internal/domain/search/query"

// SearchQuery is the input for a paginated, sorted search.
type SearchQuery struct {
	IndexName string
	Where     query.Expression
	// SortBy names a sortable field, ascending. Empty means engine relevance order.
	SortBy       string
	Offset       int
	Limit        int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single record hit from a search.
type SearchEntry struct {
	Key    string
	Fields map[string]string
}

// FacetRequest asks for the top values of one field.
type FacetRequest struct {
	Name  string
	Field string
	Size  int
}

// AggregateQuery computes terms aggregations over the records matching Where.
type AggregateQuery struct {
	IndexName string
	Where     query.Expression
	Facets    []FacetRequest
}

// AggregateResult holds one FacetResult per requested facet, in request order.
type AggregateResult struct {
	Facets []FacetResult
}

// FacetResult is the bucket list of one facet, by descending count.
type FacetResult struct {
	Name    string
	Buckets []Bucket
}

// Bucket is a single facet value with its record count.
type Bucket struct {
	Value string
	Count int
}
