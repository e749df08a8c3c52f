package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/coloradocollege/digitalcc/internal/db"
	domdoc "github.com/coloradocollege/digitalcc/internal/domain/document"
	"github.com/coloradocollege/digitalcc/internal/domain/search/facet"
	"github.com/coloradocollege/digitalcc/internal/domain/search/query"
	"github.com/coloradocollege/digitalcc/internal/domain/search/result"
	"github.com/coloradocollege/digitalcc/internal/metrics"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
	Aggregate(ctx context.Context, q *db.AggregateQuery) (*db.AggregateResult, error)
}

// Repo runs queries and facet aggregations against the repository index.
type Repo struct {
	store     store
	index     string
	keyPrefix string
}

// New creates a search repository. keyPrefix is stripped from record keys to
// produce engine-internal ids.
func New(s store, index, keyPrefix string) *Repo {
	return &Repo{store: s, index: index, keyPrefix: keyPrefix}
}

// Search returns one page of matches ordered by sortBy (relevance when empty).
func (r *Repo) Search(
	ctx context.Context, where query.Expression, sortBy string, offset, limit int,
) (result.Hits, error) {
	start := time.Now()
	sr, err := r.store.Search(ctx, &db.SearchQuery{
		IndexName:    r.index,
		Where:        where,
		SortBy:       sortBy,
		Offset:       offset,
		Limit:        limit,
		ReturnFields: []string{domdoc.FieldSource},
	})
	metrics.EngineQueryDuration.WithLabelValues("search").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.EngineErrorsTotal.WithLabelValues("search").Inc()
		return result.Hits{}, fmt.Errorf("search %s: %w", r.index, err)
	}
	return r.parseHits(sr)
}

// Aggregate computes a terms aggregation per facet over the matches of where.
// Facets come back in the given order and are not pruned.
func (r *Repo) Aggregate(
	ctx context.Context, where query.Expression, facets []facet.Facet, size int,
) (result.Aggregations, error) {
	reqs := make([]db.FacetRequest, len(facets))
	for i, f := range facets {
		reqs[i] = db.FacetRequest{Name: f.Label, Field: f.AggregationField, Size: size}
	}

	start := time.Now()
	ar, err := r.store.Aggregate(ctx, &db.AggregateQuery{IndexName: r.index, Where: where, Facets: reqs})
	metrics.EngineQueryDuration.WithLabelValues("aggregate").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.EngineErrorsTotal.WithLabelValues("aggregate").Inc()
		return nil, fmt.Errorf("aggregate %s: %w", r.index, err)
	}

	out := make(result.Aggregations, 0, len(ar.Facets))
	for _, fr := range ar.Facets {
		agg := result.Aggregation{Name: fr.Name, Buckets: make([]result.Bucket, 0, len(fr.Buckets))}
		for _, b := range fr.Buckets {
			agg.Buckets = append(agg.Buckets, result.Bucket{Key: b.Value, Count: b.Count})
		}
		out = append(out, agg)
	}
	return out, nil
}

func (r *Repo) parseHits(sr *db.SearchResult) (result.Hits, error) {
	if sr == nil {
		return result.Hits{Items: []result.Hit{}}, nil
	}
	hits := result.Hits{Total: sr.Total, Items: make([]result.Hit, 0, len(sr.Entries))}
	for _, e := range sr.Entries {
		src := e.Fields[domdoc.FieldSource]
		var head struct {
			PID string `json:"pid"`
		}
		if err := json.Unmarshal([]byte(src), &head); err != nil {
			return result.Hits{}, fmt.Errorf("decode hit %s: %w", e.Key, err)
		}
		hits.Items = append(hits.Items, result.Hit{
			ID:     strings.TrimPrefix(e.Key, r.keyPrefix),
			PID:    head.PID,
			Source: json.RawMessage(src),
		})
	}
	return hits, nil
}
