package bleve

import (
	"context"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	bq "github.com/blevesearch/bleve/v2/search/query"

	"github.com/coloradocollege/digitalcc/internal/db"
	"github.com/coloradocollege/digitalcc/internal/domain/search/query"
)

// Search runs a paginated search, sorted ascending by SortBy and then by key.
func (s *Store) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.Offset < 0 || q.Limit < 0 {
		return nil, fmt.Errorf("offset and limit must not be negative")
	}
	idx, err := s.index(q.IndexName)
	if err != nil {
		return nil, err
	}

	req := bleve.NewSearchRequestOptions(buildQuery(q.Where), q.Limit, q.Offset, false)
	if q.SortBy != "" {
		req.SortBy([]string{q.SortBy, "_id"})
	}
	req.Fields = q.ReturnFields

	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	out := &db.SearchResult{Total: int(res.Total), Entries: make([]db.SearchEntry, 0, len(res.Hits))}
	for _, hit := range res.Hits {
		out.Entries = append(out.Entries, db.SearchEntry{Key: hit.ID, Fields: flattenFields(hit.Fields)})
	}
	return out, nil
}

// Aggregate computes term facets over the matching records in a single request.
func (s *Store) Aggregate(ctx context.Context, q *db.AggregateQuery) (*db.AggregateResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(q.Facets) == 0 {
		return &db.AggregateResult{}, nil
	}
	idx, err := s.index(q.IndexName)
	if err != nil {
		return nil, err
	}

	req := bleve.NewSearchRequestOptions(buildQuery(q.Where), 0, 0, false)
	for _, f := range q.Facets {
		size := f.Size
		if size <= 0 {
			size = 10
		}
		req.AddFacet(f.Name, bleve.NewFacetRequest(f.Field, size))
	}

	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, &db.Error{Op: db.OpAggregate, Err: err}
	}

	out := &db.AggregateResult{Facets: make([]db.FacetResult, len(q.Facets))}
	for i, f := range q.Facets {
		out.Facets[i] = db.FacetResult{Name: f.Name}
		fr, ok := res.Facets[f.Name]
		if !ok || fr == nil || fr.Terms == nil {
			continue
		}
		for _, t := range fr.Terms.Terms() {
			if t.Term == "" || t.Count <= 0 {
				continue
			}
			out.Facets[i].Buckets = append(out.Facets[i].Buckets, db.Bucket{Value: t.Term, Count: t.Count})
		}
	}
	return out, nil
}

// buildQuery translates a query.Expression into a bleve query.
// An empty expression matches every record.
func buildQuery(expr query.Expression) bq.Query {
	if expr.IsEmpty() {
		return bleve.NewMatchAllQuery()
	}
	parts := make([]bq.Query, 0, len(expr.Must()))
	for _, c := range expr.Must() {
		parts = append(parts, buildClause(c))
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return bleve.NewConjunctionQuery(parts...)
}

func buildClause(c query.Clause) bq.Query {
	switch c.Kind() {
	case query.KindTerm:
		q := bleve.NewTermQuery(c.Value())
		q.SetField(c.Field())
		return q
	case query.KindPhrase:
		q := bleve.NewMatchPhraseQuery(c.Value())
		q.SetField(c.Field())
		return q
	case query.KindText:
		return buildText(c)
	case query.KindAny:
		alts := make([]bq.Query, 0, len(c.Any()))
		for _, sub := range c.Any() {
			alts = append(alts, buildClause(sub))
		}
		return bleve.NewDisjunctionQuery(alts...)
	}
	return bleve.NewMatchNoneQuery()
}

// buildText requires every term to match. Without fields the composite _all field is used;
// with fields each term may match in any of them.
func buildText(c query.Clause) bq.Query {
	if len(c.Fields()) == 0 {
		q := bleve.NewMatchQuery(c.Value())
		q.SetField("_all")
		q.SetOperator(bq.MatchQueryOperatorAnd)
		return q
	}
	terms := c.Terms()
	perTerm := make([]bq.Query, 0, len(terms))
	for _, term := range terms {
		alts := make([]bq.Query, 0, len(c.Fields()))
		for _, field := range c.Fields() {
			q := bleve.NewMatchQuery(term)
			q.SetField(field)
			alts = append(alts, q)
		}
		perTerm = append(perTerm, bleve.NewDisjunctionQuery(alts...))
	}
	return bleve.NewConjunctionQuery(perTerm...)
}
