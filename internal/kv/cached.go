package kv

import (
	"context"
	"errors"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

const defaultCacheExpireSeconds = 60 * 60

// CachedStore is a read-through freecache layer in front of another store.
// Writes go to the backing store first; the cache only ever holds values the
// backing store has acknowledged.
type CachedStore struct {
	cache         *freecache.Cache
	backing       Store
	expireSeconds int
}

func NewCachedStore(backing Store, cacheSizeBytes int) *CachedStore {
	return &CachedStore{
		cache:         freecache.NewCache(cacheSizeBytes),
		backing:       backing,
		expireSeconds: defaultCacheExpireSeconds,
	}
}

// WithExpiry sets how long cached values live. Non-positive values keep the
// default.
func (s *CachedStore) WithExpiry(expireSeconds int) *CachedStore {
	if expireSeconds > 0 {
		s.expireSeconds = expireSeconds
	}
	return s
}

func (s *CachedStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if value, err := s.cache.Get([]byte(key)); err == nil {
		log.Tracef("kv cache hit: %s", key)
		return value, true, nil
	} else if !errors.Is(err, freecache.ErrNotFound) {
		log.Errorf("kv cache get %s: %s", key, err)
	}

	value, found, err := s.backing.Get(ctx, key)
	if err != nil || !found {
		return nil, found, err
	}

	if err := s.cache.Set([]byte(key), value, s.expireSeconds); err != nil {
		log.Errorf("kv cache set %s: %s", key, err)
	}
	return value, true, nil
}

func (s *CachedStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.backing.Set(ctx, key, value); err != nil {
		s.cache.Del([]byte(key))
		return err
	}
	if err := s.cache.Set([]byte(key), value, s.expireSeconds); err != nil {
		log.Errorf("kv cache set %s: %s", key, err)
	}
	return nil
}

func (s *CachedStore) Remove(ctx context.Context, key string) error {
	s.cache.Del([]byte(key))
	return s.backing.Remove(ctx, key)
}

// CacheStats returns freecache hit and miss counters.
func (s *CachedStore) CacheStats() (hits, misses int64) {
	return s.cache.HitCount(), s.cache.MissCount()
}
