package document

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coloradocollege/digitalcc/internal/db"
	"github.com/coloradocollege/digitalcc/internal/domain"
	domdoc "github.com/coloradocollege/digitalcc/internal/domain/document"
	"github.com/coloradocollege/digitalcc/internal/domain/search/query"
	"github.com/coloradocollege/digitalcc/internal/logger"
)

// store is the consumer interface for documents (ISP).
type store interface {
	PutRecord(ctx context.Context, index, key string, fields map[string][]string) error
	GetRecord(ctx context.Context, index, key string, fields ...string) (map[string]string, error)
	DeleteRecord(ctx context.Context, index, key string) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
}

// Repo is the index store adapter: schema management and upsert-by-pid.
type Repo struct {
	store  store
	index  string
	prefix string
	newID  func() string
}

// New creates a document repository writing records under keyPrefix+"doc:".
func New(s store, index, keyPrefix string) *Repo {
	return &Repo{
		store:  s,
		index:  index,
		prefix: keyPrefix + "doc:",
		newID:  uuid.NewString,
	}
}

// Index returns the backing index name.
func (r *Repo) Index() string { return r.index }

// KeyPrefix returns the record key prefix.
func (r *Repo) KeyPrefix() string { return r.prefix }

// IDFromKey strips the record key prefix.
func (r *Repo) IDFromKey(key string) string {
	return strings.TrimPrefix(key, r.prefix)
}

// EnsureSchema creates the index if it does not exist. Safe on every startup.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	def, err := buildIndex(r.index, r.prefix)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", r.index, err)
	}
	logger.FromContext(ctx).Info("index created", zap.String("index", r.index))
	return nil
}

// SchemaExists reports whether the index is present in the store.
func (r *Repo) SchemaExists(ctx context.Context) (bool, error) {
	ok, err := r.store.IndexExists(ctx, r.index)
	if err != nil {
		return false, fmt.Errorf("index %s: %w", r.index, err)
	}
	return ok, nil
}

// DropSchema removes the index. Returns false when there was nothing to drop.
func (r *Repo) DropSchema(ctx context.Context) (bool, error) {
	ok, err := r.SchemaExists(ctx)
	if err != nil || !ok {
		return false, err
	}
	if err := r.store.DropIndex(ctx, r.index); err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("drop index %s: %w", r.index, err)
	}
	logger.FromContext(ctx).Info("index dropped", zap.String("index", r.index))
	return true, nil
}

// RebuildSchema drops the index, if present, and creates it from the current definition.
func (r *Repo) RebuildSchema(ctx context.Context) error {
	if _, err := r.DropSchema(ctx); err != nil {
		return err
	}
	return r.EnsureSchema(ctx)
}

// Upsert writes doc keyed by its pid. An existing record keeps its internal id
// and is replaced wholesale. Returns the internal id and whether it was created.
func (r *Repo) Upsert(ctx context.Context, doc *domdoc.Document) (string, bool, error) {
	if err := doc.Validate(); err != nil {
		return "", false, err
	}
	source, err := doc.Source()
	if err != nil {
		return "", false, err
	}

	_, id, err := r.GetByPID(ctx, doc.PID)
	created := false
	switch {
	case errors.Is(err, domain.ErrDocumentNotFound):
		id, created = r.newID(), true
	case err != nil:
		return "", false, err
	}

	if err := r.store.PutRecord(ctx, r.index, r.key(id), buildRecordFields(doc, source)); err != nil {
		return "", false, fmt.Errorf("put %s: %w", doc.PID, err)
	}
	return id, created, nil
}

// GetByPID returns the document with the given pid and its internal id.
// More than one match is logged and the first is used.
func (r *Repo) GetByPID(ctx context.Context, pid string) (domdoc.Document, string, error) {
	term, err := query.NewTerm(domdoc.FieldPID, pid)
	if err != nil {
		return domdoc.Document{}, "", fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	where, err := query.NewExpression(term)
	if err != nil {
		return domdoc.Document{}, "", err
	}

	res, err := r.store.Search(ctx, &db.SearchQuery{
		IndexName:    r.index,
		Where:        where,
		Limit:        2,
		ReturnFields: []string{domdoc.FieldSource},
	})
	if err != nil {
		return domdoc.Document{}, "", fmt.Errorf("lookup pid %s: %w", pid, err)
	}
	if res == nil || len(res.Entries) == 0 {
		return domdoc.Document{}, "", domain.ErrDocumentNotFound
	}
	if res.Total > 1 {
		logger.FromContext(ctx).Warn("pid matches more than one record",
			zap.String("pid", pid), zap.Int("count", res.Total))
	}

	entry := res.Entries[0]
	doc, err := domdoc.FromSource([]byte(entry.Fields[domdoc.FieldSource]))
	if err != nil {
		return domdoc.Document{}, "", fmt.Errorf("decode %s: %w", pid, err)
	}
	return doc, r.IDFromKey(entry.Key), nil
}

// Get returns a document by internal id.
func (r *Repo) Get(ctx context.Context, id string) (domdoc.Document, error) {
	rec, err := r.store.GetRecord(ctx, r.index, r.key(id), domdoc.FieldSource)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domdoc.Document{}, domain.ErrDocumentNotFound
		}
		return domdoc.Document{}, fmt.Errorf("get %s: %w", id, err)
	}
	src, ok := rec[domdoc.FieldSource]
	if !ok {
		return domdoc.Document{}, domain.ErrDocumentNotFound
	}
	return domdoc.FromSource([]byte(src))
}

// Delete removes the document with the given pid from the index.
func (r *Repo) Delete(ctx context.Context, pid string) error {
	_, id, err := r.GetByPID(ctx, pid)
	if err != nil {
		return err
	}
	if err := r.store.DeleteRecord(ctx, r.index, r.key(id)); err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.ErrDocumentNotFound
		}
		return fmt.Errorf("delete %s: %w", pid, err)
	}
	return nil
}

// Exists reports whether a document with the pid is indexed.
func (r *Repo) Exists(ctx context.Context, pid string) (bool, error) {
	_, _, err := r.GetByPID(ctx, pid)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrDocumentNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (r *Repo) key(id string) string {
	return r.prefix + id
}
