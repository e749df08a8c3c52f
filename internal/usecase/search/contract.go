package search

import (
	"context"

	domdoc "github.com/coloradocollege/digitalcc/internal/domain/document"
	"github.com/coloradocollege/digitalcc/internal/domain/search/facet"
	"github.com/coloradocollege/digitalcc/internal/domain/search/query"
	"github.com/coloradocollege/digitalcc/internal/domain/search/result"
)

// Repository runs queries and aggregations against the index.
type Repository interface {
	Search(ctx context.Context, where query.Expression, sortBy string, offset, limit int) (result.Hits, error)
	Aggregate(ctx context.Context, where query.Expression, facets []facet.Facet, size int) (result.Aggregations, error)
}

// DocumentReader resolves single documents by pid or internal id.
type DocumentReader interface {
	GetByPID(ctx context.Context, pid string) (domdoc.Document, string, error)
	Get(ctx context.Context, id string) (domdoc.Document, error)
}

// SearchParams is a specific_search request.
type SearchParams struct {
	Query  string
	Mode   string
	Size   int
	Offset int
	// Collection optionally scopes hits and aggregations to a subtree.
	Collection string
}

// FilterParams is a filter_query request.
type FilterParams struct {
	Facet  string
	Value  string
	Query  string
	Size   int
	Offset int
	// Collection optionally scopes hits and aggregations to a subtree.
	Collection string
}
