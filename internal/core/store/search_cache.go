package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/scoutline/scoutline/internal/core"
)

// GetCachedSearch returns a cached search response if it has not expired.
func (s *Store) GetCachedSearch(ctx context.Context, key string) (*core.SearchResponse, error) {
	if s == nil || s.DB == nil {
		return nil, errNotInitialized
	}

	if ctx == nil {
		ctx = context.Background()
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("cache key is required")
	}

	var payload string
	row := s.DB.QueryRowContext(ctx, `
		SELECT response_json
		FROM search_cache
		WHERE cache_key = ? AND expires_at > ?
	`, key, time.Now().UTC().Unix())

	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch cached search: %w", err)
	}

	var resp core.SearchResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		return nil, fmt.Errorf("decode cached search: %w", err)
	}
	return &resp, nil
}

// SetCachedSearch stores a search response with a TTL.
func (s *Store) SetCachedSearch(ctx context.Context, key string, resp *core.SearchResponse, ttl time.Duration) error {
	if s == nil || s.DB == nil {
		return errNotInitialized
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if ttl <= 0 || resp == nil {
		return nil
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("cache key is required")
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode cached search: %w", err)
	}

	query, maxResults := splitCacheKey(key)
	now := time.Now().UTC()
	expires := now.Add(ttl)

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO search_cache (cache_key, query, max_results, response_json, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			response_json = excluded.response_json,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`, key, query, maxResults, string(payload), now.Unix(), expires.Unix())
	if err != nil {
		return fmt.Errorf("store cached search: %w", err)
	}

	return nil
}

// PurgeExpiredSearches deletes expired cache rows and reports how many were removed.
func (s *Store) PurgeExpiredSearches(ctx context.Context) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errNotInitialized
	}

	if ctx == nil {
		ctx = context.Background()
	}

	result, err := s.DB.ExecContext(ctx, `DELETE FROM search_cache WHERE expires_at <= ?`, time.Now().UTC().Unix())
	if err != nil {
		return 0, fmt.Errorf("purge search cache: %w", err)
	}
	return result.RowsAffected()
}

// splitCacheKey recovers the query and result count from a "query|n" key.
func splitCacheKey(key string) (string, int) {
	idx := strings.LastIndex(key, "|")
	if idx < 0 {
		return key, 0
	}
	n, err := strconv.Atoi(key[idx+1:])
	if err != nil {
		return key, 0
	}
	return key[:idx], n
}
