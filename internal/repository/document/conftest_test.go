package document

import (
	"context"
	"testing"

	"github.com/coloradocollege/digitalcc/internal/db"
	domdoc "github.com/coloradocollege/digitalcc/internal/domain/document"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	putRecordFn   func(ctx context.Context, index, key string, fields map[string][]string) error
	getRecordFn   func(ctx context.Context, index, key string, fields ...string) (map[string]string, error)
	deleteFn      func(ctx context.Context, index, key string) error
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	dropIndexFn   func(ctx context.Context, name string) error
	existsFn      func(ctx context.Context, name string) (bool, error)
	searchFn      func(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
}

func (m *mockStore) PutRecord(ctx context.Context, index, key string, fields map[string][]string) error {
	if m.putRecordFn != nil {
		return m.putRecordFn(ctx, index, key, fields)
	}
	return nil
}

func (m *mockStore) GetRecord(ctx context.Context, index, key string, fields ...string) (map[string]string, error) {
	if m.getRecordFn != nil {
		return m.getRecordFn(ctx, index, key, fields...)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) DeleteRecord(ctx context.Context, index, key string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, index, key)
	}
	return nil
}

func (m *mockStore) DropIndex(ctx context.Context, name string) error {
	if m.dropIndexFn != nil {
		return m.dropIndexFn(ctx, name)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, name)
	}
	return false, nil
}

func (m *mockStore) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	repo := New(ms, "repository", "digitalcc:")
	repo.newID = func() string { return "new-id" }
	return repo, ms
}

func testDocument(t *testing.T) domdoc.Document {
	t.Helper()
	d := domdoc.Document{
		PID:                "coccc:42",
		TitlePrincipal:     "Pikes Peak",
		Creator:            []string{"Jackson, William Henry"},
		TypeOfResource:     []string{"still image"},
		Subject:            &domdoc.Subject{Topic: []string{"Mountains"}},
		ContentModels:      []string{domdoc.ModelLargeImage},
		DateIssued:         "1899",
		UseAndReproduction: "Public domain",
		AdminNote:          []string{"rescanned 2014"},
	}
	d.SetPath([]string{"coccc:root", "coccc:1"})
	return d
}

func sourceEntry(t *testing.T, key string, d domdoc.Document) db.SearchEntry {
	t.Helper()
	src, err := d.Source()
	if err != nil {
		t.Fatalf("source: %v", err)
	}
	return db.SearchEntry{Key: key, Fields: map[string]string{domdoc.FieldSource: string(src)}}
}
