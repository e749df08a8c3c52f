package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/coloradocollege/digitalcc/internal/db"
)

var _ db.Store = (*Store)(nil)

// ErrNoSearchModule means the server answers PING but has no FT.* commands.
var ErrNoSearchModule = errors.New("redis: search module not loaded")

const (
	clientName   = "digitalcc"
	readyBackoff = 100 * time.Millisecond
)

// Config holds connection parameters for a Redis store.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
}

// Store is the RediSearch driver: records are hashes under the index prefix,
// queries go through FT.SEARCH and facets through FT.AGGREGATE.
type Store struct {
	client rueidis.Client
}

// NewStore connects to Redis. Client-side caching is off because records
// change underneath the index on every harvest.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("redis: at least one address is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		ClientName:   clientName,
		DisableCache: true,
		AlwaysRESP2:  true, // FT.SEARCH and FT.AGGREGATE replies are parsed as RESP2 arrays
	})
	if err != nil {
		return nil, fmt.Errorf("redis: connect %s: %w", strings.Join(cfg.Addrs, ","), err)
	}
	return &Store{client: client}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.do(ctx, s.b().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady polls until the server answers and the search module is loaded.
// A server without the module fails at once.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		err := s.ready(ctx)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrNoSearchModule):
			return err
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for search engine: %w (last error: %v)", ctx.Err(), err)
		case <-time.After(readyBackoff):
		}
	}
}

func (s *Store) ready(ctx context.Context) error {
	if err := s.Ping(ctx); err != nil {
		return err
	}
	err := s.do(ctx, s.b().Arbitrary("FT._LIST").Build()).Error()
	if isRedisErr(err, "unknown command") {
		return ErrNoSearchModule
	}
	return err
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}

// isRedisErr reports whether err is a server error containing substr, ignoring case.
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(re.Error()), strings.ToLower(substr))
}
