package store

import (
	"context"
	"fmt"
)

// migrations are applied in order; each version runs once per database.
var migrations = []struct {
	version    int
	statements []string
}{
	{
		version: 1,
		statements: []string{
			`CREATE TABLE IF NOT EXISTS search_cache (
				cache_key TEXT PRIMARY KEY,
				query TEXT NOT NULL,
				max_results INTEGER NOT NULL,
				response_json TEXT NOT NULL,
				created_at INTEGER NOT NULL,
				expires_at INTEGER NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_search_cache_expires ON search_cache(expires_at)`,
		},
	},
}

// Migrate brings the schema up to the latest version.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errNotInitialized
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := s.DB.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		for _, stmt := range m.statements {
			if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("store migration %d failed: %w", m.version, err)
			}
		}
		if _, err := s.DB.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, m.version); err != nil {
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
	}
	return nil
}

// SchemaVersion returns the highest applied migration, or 0 on a fresh database.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	if s == nil || s.DB == nil {
		return 0, errNotInitialized
	}
	var version int
	if err := s.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}
