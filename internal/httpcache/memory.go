package httpcache

import (
	"context"

	"bakpdlbot/internal/components/assert"
	"bakpdlbot/internal/components/chrono"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryStore is a Store that lives for as long as the process does.
type MemoryStore struct {
	cache *ttlcache.Cache[string, Entry]
	time  chrono.TimeAPI
}

func NewMemoryStore(clock chrono.TimeAPI) *MemoryStore {
	assert.NotNil(clock)

	cache := ttlcache.New[string, Entry](
		ttlcache.WithTTL[string, Entry](DefaultExpiry),
		ttlcache.WithDisableTouchOnHit[string, Entry](),
	)
	go cache.Start()

	return &MemoryStore{cache: cache, time: clock}
}

func (m *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	item := m.cache.Get(key)
	if item == nil {
		return Entry{}, false, nil
	}
	entry := item.Value()
	if !entry.ExpiresAt.After(m.time.Now()) {
		m.cache.Delete(key)
		return Entry{}, false, nil
	}
	return entry, true, nil
}

func (m *MemoryStore) Set(_ context.Context, entry Entry) error {
	ttl := entry.ExpiresAt.Sub(m.time.Now())
	if ttl <= 0 {
		m.cache.Delete(entry.Key)
		return nil
	}
	m.cache.Set(entry.Key, entry, ttl)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.cache.Delete(key)
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.cache.DeleteAll()
	return nil
}

func (m *MemoryStore) Close() error {
	m.cache.Stop()
	return nil
}
