package kv

import (
	"context"
)

// KeyPrefix namespaces every key written by the service.
const KeyPrefix = "gymsession||"

var (
	_ Store = (*RedisStore)(nil)
	_ Store = (*CachedStore)(nil)
	_ Store = (*MemoryStore)(nil)
)

// Store is a small durable key-value store. Get reports found=false for a
// missing key; that is not an error.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}
