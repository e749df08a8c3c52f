package bleve

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"

	"github.com/coloradocollege/digitalcc/internal/db"
)

// PutRecord indexes the record under key, replacing any previous version.
func (s *Store) PutRecord(_ context.Context, index, key string, fields map[string][]string) error {
	idx, err := s.index(index)
	if err != nil {
		return err
	}

	doc := make(map[string]any, len(fields))
	for name, values := range fields {
		switch len(values) {
		case 0:
		case 1:
			doc[name] = values[0]
		default:
			doc[name] = values
		}
	}
	if len(doc) == 0 {
		return &db.Error{Op: db.OpPutRecord, Err: fmt.Errorf("key %s: no fields", key)}
	}

	if err := idx.Index(key, doc); err != nil {
		return &db.Error{Op: db.OpPutRecord, Err: err}
	}
	return nil
}

// GetRecord returns stored fields of the record at key. Only stored fields are retrievable.
func (s *Store) GetRecord(ctx context.Context, index, key string, fields ...string) (map[string]string, error) {
	idx, err := s.index(index)
	if err != nil {
		return nil, err
	}

	req := bleve.NewSearchRequest(bleve.NewDocIDQuery([]string{key}))
	req.Size = 1
	req.Fields = fields
	if len(fields) == 0 {
		req.Fields = []string{"*"}
	}

	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, &db.Error{Op: db.OpGetRecord, Err: err}
	}
	if len(res.Hits) == 0 {
		return nil, db.ErrKeyNotFound
	}
	return flattenFields(res.Hits[0].Fields), nil
}

// DeleteRecord removes the record at key.
func (s *Store) DeleteRecord(_ context.Context, index, key string) error {
	idx, err := s.index(index)
	if err != nil {
		return err
	}
	if err := idx.Delete(key); err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	return nil
}

func flattenFields(fields map[string]any) map[string]string {
	out := make(map[string]string, len(fields))
	for name, v := range fields {
		switch val := v.(type) {
		case string:
			out[name] = val
		case []any:
			parts := make([]string, 0, len(val))
			for _, p := range val {
				if s, ok := p.(string); ok {
					parts = append(parts, s)
				}
			}
			out[name] = strings.Join(parts, db.DefaultTagSeparator)
		default:
			out[name] = fmt.Sprint(val)
		}
	}
	return out
}
