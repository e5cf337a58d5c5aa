package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/civicsignal/go-message-pipeline/pkg/messaging"
	"github.com/civicsignal/go-message-pipeline/pkg/store"
)

// CacheClient defines the subset of Redis commands we need.
type CacheClient interface {
	// Get returns the value or a specific error if not found.
	Get(ctx context.Context, key string, dest interface{}) error
	// Set stores the value with a TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Del removes the key.
	Del(ctx context.Context, key string) error
}

// CachedPreferenceStore is a decorator that adds read-aside caching to any
// ServicePreferenceStore. Records are immutable per (fiscalCode, serviceId,
// version) key, so a TTL is only a memory bound, not a consistency knob.
//
// Only found records are cached. A cached "not found" in MANUAL mode would
// keep a user's inbox closed after they opt in, so ErrNotFound always goes
// back to the real store.
type CachedPreferenceStore struct {
	realStore store.ServicePreferenceStore
	cache     CacheClient
	ttl       time.Duration
}

func NewCachedPreferenceStore(realStore store.ServicePreferenceStore, cache CacheClient, ttl time.Duration) *CachedPreferenceStore {
	return &CachedPreferenceStore{
		realStore: realStore,
		cache:     cache,
		ttl:       ttl,
	}
}

func (s *CachedPreferenceStore) Get(ctx context.Context, fiscalCode, serviceID string, version int64) (*messaging.ServicePreference, error) {
	key := s.cacheKey(fiscalCode, serviceID, version)

	var cached messaging.ServicePreference
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	pref, err := s.realStore.Get(ctx, fiscalCode, serviceID, version)
	if err != nil {
		// ErrNotFound included: the trichotomy passes through unchanged.
		return nil, err
	}

	// Caching is an optimization, not a transaction. If Redis is down we
	// just keep serving from the real store.
	_ = s.cache.Set(ctx, key, pref, s.ttl)

	return pref, nil
}

// Invalidate drops one cached record, for operator tooling after a manual
// preference correction.
func (s *CachedPreferenceStore) Invalidate(ctx context.Context, fiscalCode, serviceID string, version int64) error {
	err := s.cache.Del(ctx, s.cacheKey(fiscalCode, serviceID, version))
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("cache invalidation failed: %w", err)
	}
	return nil
}

func (s *CachedPreferenceStore) cacheKey(fiscalCode, serviceID string, version int64) string {
	return fmt.Sprintf("notify:prefs:%s:%s:%d", fiscalCode, serviceID, version)
}
