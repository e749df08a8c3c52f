package redis

import "github.com/redis/rueidis"

// storeWithClient wraps an already built client, usually a rueidis/mock one.
func storeWithClient(c rueidis.Client) *Store {
	return &Store{client: c}
}
