// Package store persists the search cache in libsql: an embedded SQLite file by
// default, or a remote libsql/Turso database when a URL is configured.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/scoutline/scoutline/internal/config"
)

const (
	driverLibsql = "libsql"

	localBusyTimeoutMs = 5000
	memoryPath         = ":memory:"
)

var errNotInitialized = errors.New("store not initialized")

// Store wraps the libsql connection backing the persistent search cache.
type Store struct {
	DB     *sql.DB
	driver string
}

// location is a resolved connection target.
type location struct {
	dsn string
	// local marks embedded files, which need single-writer tuning.
	local bool
	// dir must exist before the embedded file can be created.
	dir string
}

// Open connects to the configured store and verifies it answers.
func Open(ctx context.Context, cfg config.StoreConfig) (*Store, error) {
	driver := strings.TrimSpace(cfg.Driver)
	if driver == "" {
		driver = driverLibsql
	}
	if driver != driverLibsql {
		return nil, fmt.Errorf("unsupported store driver: %s", driver)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	loc, err := resolveLocation(cfg)
	if err != nil {
		return nil, err
	}
	if loc.dir != "" {
		// #nosec G301 -- data directories use 0755 for multi-user access compatibility
		if err := os.MkdirAll(loc.dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open(driverLibsql, loc.dsn)
	if err != nil {
		return nil, fmt.Errorf("open libsql store: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping libsql store: %w", err)
	}
	if loc.local {
		if err := tuneLocal(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return &Store{DB: db, driver: driver}, nil
}

// Close releases database resources.
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// Driver returns the configured store driver.
func (s *Store) Driver() string {
	if s == nil {
		return ""
	}
	return s.driver
}

// CheckHealth pings the database.
func (s *Store) CheckHealth(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errNotInitialized
	}
	return s.DB.PingContext(ctx)
}

// tuneLocal serializes writers on embedded databases; concurrent search rounds
// otherwise hit SQLITE_BUSY on cache upserts.
func tuneLocal(ctx context.Context, db *sql.DB) error {
	db.SetMaxOpenConns(1)

	pragmas := []struct{ name, stmt string }{
		{"enable wal journal", "PRAGMA journal_mode=WAL"},
		{"set busy timeout", fmt.Sprintf("PRAGMA busy_timeout=%d", localBusyTimeoutMs)},
	}
	for _, p := range pragmas {
		var result any
		if err := db.QueryRowContext(ctx, p.stmt).Scan(&result); err != nil {
			return fmt.Errorf("%s: %w", p.name, err)
		}
	}
	return nil
}

// resolveLocation turns the store config into a DSN. A URL wins over a path; bare
// paths become file: DSNs.
func resolveLocation(cfg config.StoreConfig) (location, error) {
	if raw := strings.TrimSpace(cfg.URL); raw != "" {
		dsn, err := withAuthToken(raw, cfg.AuthToken)
		return location{dsn: dsn}, err
	}

	path := strings.TrimSpace(cfg.Path)
	switch {
	case path == "":
		return location{}, errors.New("store path or url is required")
	case path == memoryPath, strings.HasPrefix(path, "libsql:"):
		return location{dsn: path}, nil
	case strings.HasPrefix(path, "file:"):
		parsed, err := url.Parse(path)
		if err != nil {
			return location{}, fmt.Errorf("invalid store path: %w", err)
		}
		local := parsed.Path
		if local == "" {
			local = parsed.Opaque
		}
		return location{dsn: path, local: true, dir: parentDir(strings.TrimPrefix(local, "//"))}, nil
	default:
		clean := filepath.Clean(path)
		return location{dsn: "file:" + clean, local: true, dir: parentDir(clean)}, nil
	}
}

func withAuthToken(dsn, token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return dsn, nil
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid store url: %w", err)
	}
	query := parsed.Query()
	if query.Get("authToken") == "" {
		query.Set("authToken", token)
		parsed.RawQuery = query.Encode()
	}
	return parsed.String(), nil
}

func parentDir(path string) string {
	dir := filepath.Dir(filepath.Clean(path))
	if dir == "." || dir == string(filepath.Separator) {
		return ""
	}
	return dir
}
