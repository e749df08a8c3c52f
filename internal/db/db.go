package db

import (
	"context"
	"time"
)

// Store is the main search engine facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	RecordStore
	KVStore
	IndexManager
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks engine connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RecordStore writes and reads indexed records by key.
// Multi-valued fields are stored as lists; single values as one-element lists.
type RecordStore interface {
	// PutRecord replaces the record at key wholesale.
	PutRecord(ctx context.Context, index, key string, fields map[string][]string) error
	// GetRecord returns the requested stored fields, or every field when none are named.
	GetRecord(ctx context.Context, index, key string, fields ...string) (map[string]string, error)
	DeleteRecord(ctx context.Context, index, key string) error
}

// KVStore provides simple key-value operations outside any index.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	Del(ctx context.Context, key string) error
}

// IndexManager provides index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher provides query and aggregation operations over indexes.
type Searcher interface {
	Search(ctx context.Context, q *SearchQuery) (*SearchResult, error)
	Aggregate(ctx context.Context, q *AggregateQuery) (*AggregateResult, error)
}
