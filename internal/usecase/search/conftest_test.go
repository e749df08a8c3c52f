package search

import (
	"context"
	"encoding/json"

	"github.com/coloradocollege/digitalcc/internal/domain"
	domdoc "github.com/coloradocollege/digitalcc/internal/domain/document"
	"github.com/coloradocollege/digitalcc/internal/domain/search/facet"
	"github.com/coloradocollege/digitalcc/internal/domain/search/query"
	"github.com/coloradocollege/digitalcc/internal/domain/search/result"
)

type mockRepo struct {
	searchFn    func(ctx context.Context, where query.Expression, sortBy string, offset, limit int) (result.Hits, error)
	aggregateFn func(ctx context.Context, where query.Expression, facets []facet.Facet, size int) (result.Aggregations, error)
}

func (m *mockRepo) Search(
	ctx context.Context, where query.Expression, sortBy string, offset, limit int,
) (result.Hits, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, where, sortBy, offset, limit)
	}
	return result.Hits{}, nil
}

func (m *mockRepo) Aggregate(
	ctx context.Context, where query.Expression, facets []facet.Facet, size int,
) (result.Aggregations, error) {
	if m.aggregateFn != nil {
		return m.aggregateFn(ctx, where, facets, size)
	}
	return nil, nil
}

type mockDocs struct {
	getByPIDFn func(ctx context.Context, pid string) (domdoc.Document, string, error)
	getFn      func(ctx context.Context, id string) (domdoc.Document, error)
}

func (m *mockDocs) GetByPID(ctx context.Context, pid string) (domdoc.Document, string, error) {
	if m.getByPIDFn != nil {
		return m.getByPIDFn(ctx, pid)
	}
	return domdoc.Document{}, "", domain.ErrDocumentNotFound
}

func (m *mockDocs) Get(ctx context.Context, id string) (domdoc.Document, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return domdoc.Document{}, domain.ErrDocumentNotFound
}

func newTestService(repo *mockRepo, docs *mockDocs) *Service {
	return New(repo, docs, nil, Config{RootPID: "coccc:root"})
}

// onlyClause returns the single clause of an expression, or fails.
func onlyClause(where query.Expression) (query.Clause, bool) {
	if len(where.Must()) != 1 {
		return query.Clause{}, false
	}
	return where.Must()[0], true
}

func sourceOf(d domdoc.Document) json.RawMessage {
	src, _ := d.Source()
	return src
}
