package httpcache

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bakpdlbot/internal/components/assert"
	"bakpdlbot/internal/components/chrono"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

var remotePrefixes = []string{"libsql://", "https://", "http://", "wss://", "ws://"}

// OpenDB opens the database behind a dsn, remote urls use the libsql driver and
// everything else is opened as a local sqlite file.
func OpenDB(dsn string) (*sql.DB, error) {
	for _, prefix := range remotePrefixes {
		if strings.HasPrefix(dsn, prefix) {
			return sql.Open("libsql", dsn)
		}
	}

	path := strings.TrimPrefix(dsn, "file:")
	if path != ":memory:" {
		err := os.MkdirAll(filepath.Dir(path), 0755)
		if err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	// it also keeps every query of a ":memory:" db on the same connection.
	db.SetMaxOpenConns(1)
	if path != ":memory:" {
		_, err = db.Exec("PRAGMA journal_mode=WAL")
		if err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}

// SQLiteStore is a Store backed by a sqlite (or libsql) database.
type SQLiteStore struct {
	db   *sql.DB
	time chrono.TimeAPI
}

// NewSQLiteStore creates the cache table if it does not exist yet.
func NewSQLiteStore(ctx context.Context, db *sql.DB, clock chrono.TimeAPI) (*SQLiteStore, error) {
	assert.NotNil(db)
	assert.NotNil(clock)

	_, err := db.ExecContext(ctx, schema)
	if err != nil {
		return nil, fmt.Errorf("create cache schema: %w", err)
	}
	return &SQLiteStore{db: db, time: clock}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`select url, status_code, header, body, stored_at, expires_at
		from http_cache where key = ? and expires_at > ?`,
		key, s.time.Now().UnixMilli(),
	)

	entry := Entry{Key: key}
	var header string
	var storedAt, expiresAt int64
	err := row.Scan(&entry.URL, &entry.StatusCode, &header, &entry.Body, &storedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}

	entry.Header = http.Header{}
	err = json.Unmarshal([]byte(header), &entry.Header)
	if err != nil {
		return Entry{}, false, fmt.Errorf("decode stored header: %w", err)
	}
	entry.StoredAt = time.UnixMilli(storedAt)
	entry.ExpiresAt = time.UnixMilli(expiresAt)
	return entry, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, entry Entry) error {
	header, err := json.Marshal(entry.Header)
	if err != nil {
		return err
	}
	body := entry.Body
	if body == nil {
		body = []byte{}
	}
	_, err = s.db.ExecContext(
		ctx,
		`insert or replace into http_cache (key, url, status_code, header, body, stored_at, expires_at)
		values (?, ?, ?, ?, ?, ?, ?)`,
		entry.Key,
		entry.URL,
		entry.StatusCode,
		string(header),
		body,
		entry.StoredAt.UnixMilli(),
		entry.ExpiresAt.UnixMilli(),
	)
	return err
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "delete from http_cache where key = ?", key)
	return err
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "delete from http_cache")
	return err
}

// Prune deletes expired entries and returns how many were removed.
func (s *SQLiteStore) Prune(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		"delete from http_cache where expires_at <= ?",
		s.time.Now().UnixMilli(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
