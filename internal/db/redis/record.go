package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/rueidis"

	"github.com/coloradocollege/digitalcc/internal/db"
)

// PutRecord replaces the hash at key in one MULTI/EXEC transaction.
// Multi-valued fields are joined with the tag separator.
func (s *Store) PutRecord(ctx context.Context, _ string, key string, fields map[string][]string) error {
	hset := s.b().Hset().Key(key).FieldValue()
	n := 0
	for name, values := range fields {
		if len(values) == 0 {
			continue
		}
		hset = hset.FieldValue(name, strings.Join(values, db.DefaultTagSeparator))
		n++
	}
	if n == 0 {
		return &db.Error{Op: db.OpPutRecord, Err: fmt.Errorf("key %s: no fields", key)}
	}

	cmds := []rueidis.Completed{
		s.b().Multi().Build(),
		s.b().Del().Key(key).Build(),
		hset.Build(),
		s.b().Exec().Build(),
	}
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpPutRecord, Err: fmt.Errorf("key %s step %d: %w", key, i, err)}
		}
	}
	return nil
}

// GetRecord reads the hash at key. An empty hash means the record does not exist.
func (s *Store) GetRecord(ctx context.Context, _ string, key string, fields ...string) (map[string]string, error) {
	cmd := s.b().Hgetall().Key(key).Build()
	m, err := s.do(ctx, cmd).AsStrMap()
	if err != nil {
		return nil, &db.Error{Op: db.OpGetRecord, Err: err}
	}
	if len(m) == 0 {
		return nil, db.ErrKeyNotFound
	}
	if len(fields) == 0 {
		return m, nil
	}
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		if v, ok := m[f]; ok {
			out[f] = v
		}
	}
	return out, nil
}

// DeleteRecord removes the hash at key.
func (s *Store) DeleteRecord(ctx context.Context, _ string, key string) error {
	return s.Del(ctx, key)
}
