package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"pma/internal/analysis"
)

// DefaultResultTTL bounds how long a cached file result is trusted even
// when its content hash and rule fingerprint still match.
const DefaultResultTTL = 7 * 24 * time.Hour

// ResultCache keeps the issues found per file, keyed by path and
// invalidated by content hash or rule fingerprint changes.
type ResultCache struct {
	db     *DB
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewResultCache creates a cache over db. ttl <= 0 disables expiry.
func NewResultCache(db *DB, ttl time.Duration, logger *slog.Logger) *ResultCache {
	return &ResultCache{
		db:     db,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

var _ analysis.ResultCache = (*ResultCache)(nil)

// Lookup returns the cached issues for key. Any read or decode failure is
// treated as a miss.
func (c *ResultCache) Lookup(ctx context.Context, key analysis.CacheKey) ([]analysis.Issue, bool) {
	var hash, fingerprint, createdAt string
	var payload []byte

	err := c.db.QueryRowContext(ctx, `
		SELECT content_hash, fingerprint, payload, created_at
		FROM result_cache
		WHERE path = ?
	`, key.Path).Scan(&hash, &fingerprint, &payload, &createdAt)

	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		c.logger.Debug("result cache lookup failed", "path", key.Path, "error", err.Error())
		return nil, false
	}

	if hash != key.ContentHash || fingerprint != key.Fingerprint {
		return nil, false
	}

	if c.ttl > 0 {
		created, err := time.Parse(time.RFC3339, createdAt)
		if err != nil || c.now().Sub(created) > c.ttl {
			return nil, false
		}
	}

	var issues []analysis.Issue
	if err := decodePayload(payload, &issues); err != nil {
		c.logger.Warn("discarding corrupt cache entry", "path", key.Path, "error", err.Error())
		return nil, false
	}
	return issues, true
}

// Store replaces the cached entry for key.Path.
func (c *ResultCache) Store(ctx context.Context, key analysis.CacheKey, issues []analysis.Issue) error {
	if issues == nil {
		issues = []analysis.Issue{}
	}
	payload, err := encodePayload(issues)
	if err != nil {
		return err
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO result_cache
		(path, content_hash, fingerprint, issue_count, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, key.Path, key.ContentHash, key.Fingerprint, len(issues), payload, c.now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("result cache store failed: %w", err)
	}
	return nil
}

// Purge removes entries older than the TTL and returns how many went.
func (c *ResultCache) Purge(ctx context.Context) (int64, error) {
	if c.ttl <= 0 {
		return 0, nil
	}
	cutoff := c.now().Add(-c.ttl).UTC().Format(time.RFC3339)
	res, err := c.db.ExecContext(ctx, "DELETE FROM result_cache WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge result cache: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes every cached entry.
func (c *ResultCache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, "DELETE FROM result_cache"); err != nil {
		return fmt.Errorf("failed to clear result cache: %w", err)
	}
	return nil
}

// CacheStats describes the cache contents.
type CacheStats struct {
	Entries    int   `json:"entries"`
	Issues     int   `json:"issues"`
	PayloadLen int64 `json:"payloadBytes"`
}

// Stats returns entry, issue and payload totals.
func (c *ResultCache) Stats(ctx context.Context) (CacheStats, error) {
	var s CacheStats
	err := c.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(issue_count), 0), COALESCE(SUM(LENGTH(payload)), 0)
		FROM result_cache
	`).Scan(&s.Entries, &s.Issues, &s.PayloadLen)
	if err != nil {
		return CacheStats{}, fmt.Errorf("failed to read cache stats: %w", err)
	}
	return s, nil
}
