package document

import (
	"context"
	"errors"
	"testing"

	"github.com/coloradocollege/digitalcc/internal/db"
	"github.com/coloradocollege/digitalcc/internal/domain"
	domdoc "github.com/coloradocollege/digitalcc/internal/domain/document"
	"github.com/coloradocollege/digitalcc/internal/domain/search/query"
)

// --- EnsureSchema ---

func TestEnsureSchema_Creates(t *testing.T) {
	repo, ms := newTestRepo(t)

	var got *db.IndexDefinition
	ms.createIndexFn = func(_ context.Context, def *db.IndexDefinition) error {
		got = def
		return nil
	}

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.Name != "repository" {
		t.Fatalf("unexpected definition: %+v", got)
	}
	if len(got.Prefixes) != 1 || got.Prefixes[0] != "digitalcc:doc:" {
		t.Errorf("unexpected prefixes: %v", got.Prefixes)
	}
	pid, ok := got.Field(domdoc.FieldPID)
	if !ok || pid.Type != db.IndexFieldTag {
		t.Errorf("pid must be an exact-match field, got %+v", pid)
	}
	sortField, ok := got.Field(domdoc.FieldTitleSort)
	if !ok || !sortField.Sortable {
		t.Errorf("title_sort must be sortable, got %+v", sortField)
	}
	for _, name := range []string{domdoc.FieldDateIssued, domdoc.FieldCopyrightDate, domdoc.FieldUseAndRepro} {
		if f, ok := got.Field(name); !ok || f.Type != db.IndexFieldText {
			t.Errorf("%s must be a text field, got %+v", name, f)
		}
	}
	if _, ok := got.Field("adminNote"); ok {
		t.Error("admin notes must not be indexed")
	}
	src, ok := got.Field(domdoc.FieldSource)
	if !ok || src.Type != db.IndexFieldStored {
		t.Errorf("source must be stored only, got %+v", src)
	}
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error {
		return &db.Error{Op: db.OpCreateIndex, Err: db.ErrIndexExists}
	}

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("existing index must not fail: %v", err)
	}
}

func TestEnsureSchema_Error(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error {
		return errors.New("connection refused")
	}

	if err := repo.EnsureSchema(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

// --- Upsert ---

func TestUpsert_Create(t *testing.T) {
	repo, ms := newTestRepo(t)
	doc := testDocument(t)

	ms.searchFn = func(_ context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
		must := q.Where.Must()
		if len(must) != 1 || must[0].Kind() != query.KindTerm || must[0].Value() != "coccc:42" {
			t.Errorf("expected pid term lookup, got %+v", must)
		}
		return &db.SearchResult{}, nil
	}
	var fields map[string][]string
	ms.putRecordFn = func(_ context.Context, index, key string, f map[string][]string) error {
		if index != "repository" {
			t.Errorf("unexpected index: %s", index)
		}
		if key != "digitalcc:doc:new-id" {
			t.Errorf("unexpected key: %s", key)
		}
		fields = f
		return nil
	}

	id, created, err := repo.Upsert(context.Background(), &doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created || id != "new-id" {
		t.Fatalf("expected created new-id, got %s created=%v", id, created)
	}
	if got := fields[domdoc.FieldTitleSort]; len(got) != 1 || got[0] != "pikes peak" {
		t.Errorf("title_sort = %v", got)
	}
	if got := fields[domdoc.FieldInCollections]; len(got) != 2 {
		t.Errorf("inCollections = %v", got)
	}
	if got := fields[domdoc.FieldSubjectTopicFacet]; len(got) != 1 || got[0] != "Mountains" {
		t.Errorf("subject_topic_facet = %v", got)
	}
	if got := fields[domdoc.FieldUseAndRepro]; len(got) != 1 || got[0] != "Public domain" {
		t.Errorf("useAndReproduction = %v", got)
	}
	if got := fields[domdoc.FieldDateIssued]; len(got) != 1 || got[0] != "1899" {
		t.Errorf("dateIssued = %v", got)
	}
	if _, ok := fields[domdoc.FieldLanguage]; ok {
		t.Error("empty fields must be omitted")
	}
	if fields[domdoc.FieldSource] == nil {
		t.Error("source must be stored")
	}
}

func TestUpsert_UpdateKeepsID(t *testing.T) {
	repo, ms := newTestRepo(t)
	doc := testDocument(t)

	ms.searchFn = func(_ context.Context, _ *db.SearchQuery) (*db.SearchResult, error) {
		return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{sourceEntry(t, "digitalcc:doc:old-id", doc)}}, nil
	}
	ms.putRecordFn = func(_ context.Context, _, key string, _ map[string][]string) error {
		if key != "digitalcc:doc:old-id" {
			t.Errorf("expected existing key, got %s", key)
		}
		return nil
	}

	id, created, err := repo.Upsert(context.Background(), &doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created || id != "old-id" {
		t.Fatalf("expected update of old-id, got %s created=%v", id, created)
	}
}

func TestUpsert_Invalid(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.putRecordFn = func(_ context.Context, _, _ string, _ map[string][]string) error {
		t.Fatal("invalid document must not be written")
		return nil
	}

	doc := domdoc.Document{PID: "a:1", ContentModels: []string{domdoc.ModelConstituent}}
	if _, _, err := repo.Upsert(context.Background(), &doc); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestUpsert_LookupError(t *testing.T) {
	repo, ms := newTestRepo(t)
	doc := testDocument(t)
	ms.searchFn = func(_ context.Context, _ *db.SearchQuery) (*db.SearchResult, error) {
		return nil, &db.Error{Op: db.OpSearch, Err: errors.New("timeout")}
	}

	_, _, err := repo.Upsert(context.Background(), &doc)
	if !isDBError(err) {
		t.Fatalf("expected *db.Error, got %v", err)
	}
}

func TestUpsert_PutError(t *testing.T) {
	repo, ms := newTestRepo(t)
	doc := testDocument(t)
	ms.putRecordFn = func(_ context.Context, _, _ string, _ map[string][]string) error {
		return &db.Error{Op: db.OpPutRecord, Err: errors.New("OOM")}
	}

	if _, _, err := repo.Upsert(context.Background(), &doc); !isDBError(err) {
		t.Fatalf("expected *db.Error, got %v", err)
	}
}

// --- GetByPID / Get / Exists ---

func TestGetByPID_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, _, err := repo.GetByPID(context.Background(), "nonexistent:1")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestGetByPID_DuplicateUsesFirst(t *testing.T) {
	repo, ms := newTestRepo(t)
	doc := testDocument(t)
	other := testDocument(t)
	other.TitlePrincipal = "Second"

	ms.searchFn = func(_ context.Context, _ *db.SearchQuery) (*db.SearchResult, error) {
		return &db.SearchResult{Total: 2, Entries: []db.SearchEntry{
			sourceEntry(t, "digitalcc:doc:a", doc),
			sourceEntry(t, "digitalcc:doc:b", other),
		}}, nil
	}

	got, id, err := repo.GetByPID(context.Background(), "coccc:42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "a" || got.TitlePrincipal != "Pikes Peak" {
		t.Errorf("expected first match, got %s %q", id, got.TitlePrincipal)
	}
}

func TestGet(t *testing.T) {
	repo, ms := newTestRepo(t)
	doc := testDocument(t)
	src, _ := doc.Source()

	ms.getRecordFn = func(_ context.Context, _, key string, fields ...string) (map[string]string, error) {
		if key != "digitalcc:doc:abc" {
			t.Errorf("unexpected key: %s", key)
		}
		if len(fields) != 1 || fields[0] != domdoc.FieldSource {
			t.Errorf("unexpected fields: %v", fields)
		}
		return map[string]string{domdoc.FieldSource: string(src)}, nil
	}

	got, err := repo.Get(context.Background(), "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.PID != "coccc:42" {
		t.Errorf("unexpected pid: %s", got.PID)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)

	if _, err := repo.Get(context.Background(), "missing"); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestExists(t *testing.T) {
	repo, ms := newTestRepo(t)
	doc := testDocument(t)

	ok, err := repo.Exists(context.Background(), "coccc:42")
	if err != nil || ok {
		t.Fatalf("expected false, got %v %v", ok, err)
	}

	ms.searchFn = func(_ context.Context, _ *db.SearchQuery) (*db.SearchResult, error) {
		return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{sourceEntry(t, "digitalcc:doc:x", doc)}}, nil
	}
	ok, err = repo.Exists(context.Background(), "coccc:42")
	if err != nil || !ok {
		t.Fatalf("expected true, got %v %v", ok, err)
	}
}

// --- schema lifecycle ---

func TestDropSchema(t *testing.T) {
	repo, ms := newTestRepo(t)
	exists := true
	var dropped []string
	ms.existsFn = func(_ context.Context, _ string) (bool, error) { return exists, nil }
	ms.dropIndexFn = func(_ context.Context, name string) error {
		dropped = append(dropped, name)
		exists = false
		return nil
	}

	ok, err := repo.DropSchema(context.Background())
	if err != nil || !ok {
		t.Fatalf("DropSchema = %v, %v", ok, err)
	}
	ok, err = repo.DropSchema(context.Background())
	if err != nil || ok {
		t.Fatalf("second DropSchema = %v, %v; want false, nil", ok, err)
	}
	if len(dropped) != 1 || dropped[0] != "repository" {
		t.Errorf("dropped = %v", dropped)
	}
}

func TestDropSchema_RaceWithOtherDrop(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.existsFn = func(_ context.Context, _ string) (bool, error) { return true, nil }
	ms.dropIndexFn = func(_ context.Context, _ string) error { return db.ErrIndexNotFound }

	ok, err := repo.DropSchema(context.Background())
	if err != nil || ok {
		t.Fatalf("DropSchema = %v, %v; want false, nil", ok, err)
	}
}

func TestRebuildSchema(t *testing.T) {
	repo, ms := newTestRepo(t)
	var calls []string
	ms.existsFn = func(_ context.Context, _ string) (bool, error) { return true, nil }
	ms.dropIndexFn = func(_ context.Context, _ string) error {
		calls = append(calls, "drop")
		return nil
	}
	ms.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error {
		calls = append(calls, "create")
		return nil
	}

	if err := repo.RebuildSchema(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(calls) != 2 || calls[0] != "drop" || calls[1] != "create" {
		t.Errorf("calls = %v, want [drop create]", calls)
	}
}

func TestRebuildSchema_ExistsError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.existsFn = func(_ context.Context, _ string) (bool, error) {
		return false, &db.Error{Op: db.OpIndexInfo, Err: errors.New("down")}
	}
	ms.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error {
		t.Fatal("index must not be created after a failed check")
		return nil
	}

	if err := repo.RebuildSchema(context.Background()); !isDBError(err) {
		t.Fatalf("expected db error, got %v", err)
	}
}

// --- Delete ---

func TestDelete(t *testing.T) {
	repo, ms := newTestRepo(t)
	doc := testDocument(t)
	ms.searchFn = func(_ context.Context, _ *db.SearchQuery) (*db.SearchResult, error) {
		return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{sourceEntry(t, "digitalcc:doc:abc", doc)}}, nil
	}
	var deleted string
	ms.deleteFn = func(_ context.Context, index, key string) error {
		if index != "repository" {
			t.Errorf("index = %q", index)
		}
		deleted = key
		return nil
	}

	if err := repo.Delete(context.Background(), "coccc:42"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != "digitalcc:doc:abc" {
		t.Errorf("deleted key = %q", deleted)
	}
}

func TestDelete_NotFound(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.deleteFn = func(_ context.Context, _, _ string) error {
		t.Fatal("nothing to delete")
		return nil
	}

	if err := repo.Delete(context.Background(), "coccc:404"); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestIDFromKey(t *testing.T) {
	repo, _ := newTestRepo(t)
	if got := repo.IDFromKey("digitalcc:doc:123"); got != "123" {
		t.Errorf("IDFromKey = %q", got)
	}
}

func isDBError(err error) bool {
	var dbErr *db.Error
	return errors.As(err, &dbErr)
}
