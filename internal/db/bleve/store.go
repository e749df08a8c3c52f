// Package bleve implements db.Store on an embedded bleve index, in memory or on disk.
package bleve

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"

	"github.com/coloradocollege/digitalcc/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("bleve: store is closed")

const kvIndexName = "_kv"

// Config holds storage parameters. An empty Path keeps everything in memory.
type Config struct {
	Path string
}

// Store implements db.Store with one bleve index per index definition
// plus a mapping-less index whose internal storage backs the KV operations.
type Store struct {
	path string

	mu      sync.RWMutex
	closed  bool
	indexes map[string]bleve.Index
	kv      bleve.Index

	// kvMu serializes read-modify-write KV operations.
	kvMu sync.Mutex
	now  func() time.Time
}

// NewStore opens (or creates) the KV index and returns a ready store.
func NewStore(cfg Config) (*Store, error) {
	s := &Store{
		path:    cfg.Path,
		indexes: make(map[string]bleve.Index),
		now:     time.Now,
	}

	kv, err := s.openOrCreate(kvIndexName, bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("open kv index: %w", err)
	}
	s.kv = kv
	return s, nil
}

// Ping reports whether the store is open.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// WaitForReady returns immediately: an embedded index is ready once opened.
func (s *Store) WaitForReady(ctx context.Context, _ time.Duration) error {
	return s.Ping(ctx)
}

// Close closes every open index.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for name, idx := range s.indexes {
		_ = idx.Close()
		delete(s.indexes, name)
	}
	if s.kv != nil {
		_ = s.kv.Close()
	}
}

// index returns an open index, opening it from disk on first use.
func (s *Store) index(name string) (bleve.Index, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrClosed
	}
	idx, ok := s.indexes[name]
	s.mu.RUnlock()
	if ok {
		return idx, nil
	}

	if s.path == "" || !dirExists(s.indexPath(name)) {
		return nil, db.ErrIndexNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if idx, ok := s.indexes[name]; ok {
		return idx, nil
	}
	idx, err := bleve.Open(s.indexPath(name))
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", name, err)
	}
	s.indexes[name] = idx
	return idx, nil
}

func (s *Store) openOrCreate(name string, m bleveMapping) (bleve.Index, error) {
	if s.path == "" {
		return bleve.NewMemOnly(m)
	}
	p := s.indexPath(name)
	if idx, err := bleve.Open(p); err == nil {
		return idx, nil
	}
	if err := os.MkdirAll(s.path, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", s.path, err)
	}
	return bleve.New(p, m)
}

func (s *Store) indexPath(name string) string {
	return filepath.Join(s.path, name+".bleve")
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
