// Package httpcache is a persistent, time-boxed cache of GET responses that
// plugs into an http.Client as a RoundTripper.
package httpcache

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"bakpdlbot/internal/components/chrono"
)

const DefaultExpiry = time.Hour * 12

// Entry is one stored response.
type Entry struct {
	Key        string
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	StoredAt   time.Time
	ExpiresAt  time.Time
}

// Store persists entries until they expire.
//
// note: fault injection point
type Store interface {
	// Get returns the entry under `key`, found is false if there is none or it has expired.
	Get(ctx context.Context, key string) (entry Entry, found bool, err error)
	// Set stores the entry, replacing whatever is stored under the same key.
	Set(ctx context.Context, entry Entry) error
	// Delete removes the entry under `key`, deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Clear removes every entry.
	Clear(ctx context.Context) error
	Close() error
}

type Config struct {
	// DSN selects the store:
	//  - "" uses the sqlite file returned by DefaultPath
	//  - "memory:" uses an in-process ttl cache
	//  - "libsql://…", "https://…" or "wss://…" use a remote libsql database
	//  - anything else is a path to a sqlite file (or ":memory:")
	DSN         string `json:"dsn"`
	ExpireHours int    `json:"expire_hours"`
}

// Expiry returns the configured expiry window, DefaultExpiry if unset.
func (c Config) Expiry() time.Duration {
	if c.ExpireHours <= 0 {
		return DefaultExpiry
	}
	return time.Duration(c.ExpireHours) * time.Hour
}

// DefaultPath is the sqlite file used when no dsn is configured.
func DefaultPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "bakpdlbot", "zp_cache.db"), nil
}

// Open creates the store selected by the config.
func Open(ctx context.Context, config Config, clock chrono.TimeAPI) (Store, error) {
	dsn := config.DSN
	if dsn == "memory:" {
		return NewMemoryStore(clock), nil
	}
	if dsn == "" {
		var err error
		dsn, err = DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("resolve default cache path: %w", err)
		}
	}

	db, err := OpenDB(dsn)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	store, err := NewSQLiteStore(ctx, db, clock)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}
