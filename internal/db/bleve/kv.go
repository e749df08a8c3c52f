package bleve

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/coloradocollege/digitalcc/internal/db"
)

// KV values are stored in the KV index's internal storage as
// an 8-byte big-endian expiry (unix nanoseconds, 0 = none) followed by the payload.
const expiryLen = 8

// Get retrieves a value by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := s.Ping(ctx); err != nil {
		return nil, err
	}
	return s.get(key)
}

func (s *Store) get(key string) ([]byte, error) {
	raw, err := s.kv.GetInternal([]byte(key))
	if err != nil {
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	if len(raw) < expiryLen {
		return nil, db.ErrKeyNotFound
	}
	if exp := int64(binary.BigEndian.Uint64(raw[:expiryLen])); exp != 0 && s.now().UnixNano() >= exp {
		_ = s.kv.DeleteInternal([]byte(key))
		return nil, db.ErrKeyNotFound
	}
	return raw[expiryLen:], nil
}

// Set stores a value at the given key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.SetWithTTL(ctx, key, value, 0)
}

// SetWithTTL stores a value with an expiration. A zero ttl never expires.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.Ping(ctx); err != nil {
		return err
	}
	return s.set(key, value, ttl)
}

func (s *Store) set(key string, value []byte, ttl time.Duration) error {
	buf := make([]byte, expiryLen+len(value))
	if ttl > 0 {
		binary.BigEndian.PutUint64(buf[:expiryLen], uint64(s.now().Add(ttl).UnixNano()))
	}
	copy(buf[expiryLen:], value)
	if err := s.kv.SetInternal([]byte(key), buf); err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}

// IncrBy atomically increments a decimal counter and returns the new value.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) (int64, error) {
	if err := s.Ping(ctx); err != nil {
		return 0, err
	}
	s.kvMu.Lock()
	defer s.kvMu.Unlock()

	var cur int64
	data, err := s.get(key)
	switch {
	case err == nil:
		cur, err = strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return 0, &db.Error{Op: db.OpIncrBy, Err: fmt.Errorf("value is not an integer: %w", err)}
		}
	case !errors.Is(err, db.ErrKeyNotFound):
		return 0, err
	}

	cur += val
	if err := s.set(key, []byte(strconv.FormatInt(cur, 10)), 0); err != nil {
		return 0, &db.Error{Op: db.OpIncrBy, Err: err}
	}
	return cur, nil
}

// Del deletes a key. Missing keys are not an error.
func (s *Store) Del(ctx context.Context, key string) error {
	if err := s.Ping(ctx); err != nil {
		return err
	}
	if err := s.kv.DeleteInternal([]byte(key)); err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	return nil
}
