// internal/store/sql.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Burrhanburak/scrape-site/pkg/types"
)

// sqlStore is the shared implementation behind the sqlite, postgres, and
// mysql backends. The dialects differ only in placeholder style and upsert
// syntax.
type sqlStore struct {
	db        *sql.DB
	getQuery  string
	putQuery  string
}

const createTableDDL = `CREATE TABLE IF NOT EXISTS site_profiles (
	hostname   VARCHAR(255) PRIMARY KEY,
	rules      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

// NewSQLiteStore opens (and initializes) an embedded SQLite profile store
func NewSQLiteStore(dsn string) (Store, error) {
	if dsn == "" {
		dsn = "profiles.db"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}
	if _, err := db.Exec(createTableDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize sqlite store: %w", err)
	}
	return &sqlStore{
		db:       db,
		getQuery: `SELECT rules, updated_at FROM site_profiles WHERE hostname = ?`,
		putQuery: `INSERT INTO site_profiles (hostname, rules, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(hostname) DO UPDATE SET rules = excluded.rules, updated_at = excluded.updated_at`,
	}, nil
}

// NewPostgresStore connects to a PostgreSQL profile store
func NewPostgresStore(dsn string) (Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres store requires a DSN")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres store: %w", err)
	}
	if _, err := db.Exec(createTableDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize postgres store: %w", err)
	}
	return &sqlStore{
		db:       db,
		getQuery: `SELECT rules, updated_at FROM site_profiles WHERE hostname = $1`,
		putQuery: `INSERT INTO site_profiles (hostname, rules, updated_at) VALUES ($1, $2, $3)
			ON CONFLICT(hostname) DO UPDATE SET rules = EXCLUDED.rules, updated_at = EXCLUDED.updated_at`,
	}, nil
}

// NewMySQLStore connects to a MySQL profile store
func NewMySQLStore(dsn string) (Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("mysql store requires a DSN")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql store: %w", err)
	}
	if _, err := db.Exec(createTableDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize mysql store: %w", err)
	}
	return &sqlStore{
		db:       db,
		getQuery: `SELECT rules, updated_at FROM site_profiles WHERE hostname = ?`,
		putQuery: `INSERT INTO site_profiles (hostname, rules, updated_at) VALUES (?, ?, ?)
			ON DUPLICATE KEY UPDATE rules = VALUES(rules), updated_at = VALUES(updated_at)`,
	}, nil
}

func (s *sqlStore) Get(ctx context.Context, hostname string) (*types.SiteSelectorProfile, error) {
	hostname = normalizeHostname(hostname)

	var raw string
	var updatedAt time.Time
	err := s.db.QueryRowContext(ctx, s.getQuery, hostname).Scan(&raw, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile for %s: %w", hostname, err)
	}
	return decodeRules(hostname, raw, updatedAt)
}

func (s *sqlStore) Put(ctx context.Context, profile *types.SiteSelectorProfile) error {
	if profile == nil || profile.Hostname == "" {
		return fmt.Errorf("profile must carry a hostname")
	}
	raw, err := encodeRules(profile)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.putQuery, normalizeHostname(profile.Hostname), raw, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to store profile for %s: %w", profile.Hostname, err)
	}
	return nil
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}
