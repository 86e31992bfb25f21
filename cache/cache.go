package cache

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// FileName is the database file created inside the cache directory
const FileName = "feeds.db"

// Cache stores raw feed documents keyed by feed URL
type Cache struct {
	db *sql.DB
}

// Entry is the last fetched document of a feed together with the
// validators the server sent with it
type Entry struct {
	URL          string
	Document     []byte
	ETag         string
	LastModified string
	FetchedAt    time.Time
}

// Age returns how long ago the entry was fetched relative to now
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.FetchedAt)
}

// CacheStats contains cache statistics
type CacheStats struct {
	Entries      int
	OldestEntry  time.Time
	LastAccessed time.Time // Most recent read or write of any entry
}

// NewCache opens (or creates) the cache database inside dir
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dsn := filepath.Join(dir, FileName) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Get retrieves the cached document for url
// Returns: (entry, found, error)
func (c *Cache) Get(ctx context.Context, url string) (Entry, bool, error) {
	var (
		entry     = Entry{URL: url}
		fetchedAt int64
	)

	err := c.db.QueryRowContext(ctx,
		"SELECT document, etag, last_modified, fetched_at FROM feed_cache WHERE url = ?",
		url,
	).Scan(&entry.Document, &entry.ETag, &entry.LastModified, &fetchedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to read cache entry for %s: %w", truncate(url, 50), err)
	}
	entry.FetchedAt = time.UnixMilli(fetchedAt)

	_, _ = c.db.ExecContext(ctx,
		"UPDATE feed_cache SET accessed_at = ? WHERE url = ?",
		time.Now().UnixMilli(), url,
	)

	return entry, true, nil
}

// Set replaces the entry for e.URL. The statement either fully applies or
// leaves the previous entry in place.
func (c *Cache) Set(ctx context.Context, e Entry) error {
	if e.URL == "" {
		return errors.New("cache entry without URL")
	}

	_, err := c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO feed_cache
		(url, document, etag, last_modified, fetched_at, accessed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.URL, e.Document, e.ETag, e.LastModified, e.FetchedAt.UnixMilli(), time.Now().UnixMilli())

	if err != nil {
		slog.Warn("feed cache write error", "error", err, "url", truncate(e.URL, 50))
		return err
	}

	return nil
}

// Touch marks the entry for url as fetched at the given time without
// replacing its document. Used when the server answered 304 Not Modified.
func (c *Cache) Touch(ctx context.Context, url string, at time.Time) error {
	res, err := c.db.ExecContext(ctx,
		"UPDATE feed_cache SET fetched_at = ?, accessed_at = ? WHERE url = ?",
		at.UnixMilli(), time.Now().UnixMilli(), url,
	)
	if err != nil {
		slog.Warn("feed cache touch error", "error", err, "url", truncate(url, 50))
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("no cache entry for %s", url)
	}
	return nil
}

// Clear removes all cache entries
func (c *Cache) Clear() error {
	if _, err := c.db.Exec("DELETE FROM feed_cache"); err != nil {
		return fmt.Errorf("failed to clear feed cache: %w", err)
	}
	return nil
}

// Stats returns cache statistics
func (c *Cache) Stats() (CacheStats, error) {
	var stats CacheStats

	var oldest, accessed sql.NullInt64
	err := c.db.QueryRow(
		"SELECT COUNT(*), MIN(fetched_at), MAX(accessed_at) FROM feed_cache",
	).Scan(&stats.Entries, &oldest, &accessed)
	if err != nil {
		return stats, err
	}
	if oldest.Valid && oldest.Int64 > 0 {
		stats.OldestEntry = time.UnixMilli(oldest.Int64)
	}
	if accessed.Valid && accessed.Int64 > 0 {
		stats.LastAccessed = time.UnixMilli(accessed.Int64)
	}

	return stats, nil
}

// Close closes the cache database
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// DefaultDir returns the default cache directory
func DefaultDir() string {
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		home := os.Getenv("HOME")
		if home == "" {
			return filepath.Join(os.TempDir(), "labnews_cache")
		}
		cacheDir = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheDir, "labnews")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
