// internal/store/store.go

// Package store persists site selector profiles keyed by hostname. The core
// reads through it with no cache invalidation logic; staleness is the
// store's concern, not the pipeline's.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Burrhanburak/scrape-site/pkg/types"
)

// ErrNotFound is returned when no profile exists for a hostname
var ErrNotFound = errors.New("store: profile not found")

// Store is the profile persistence contract. Put upserts; hostname is the
// unique key.
type Store interface {
	Get(ctx context.Context, hostname string) (*types.SiteSelectorProfile, error)
	Put(ctx context.Context, profile *types.SiteSelectorProfile) error
	Close() error
}

// Config selects and configures a backend
type Config struct {
	Backend string `yaml:"backend" json:"backend"` // memory, sqlite, postgres, mysql, mongodb, redis
	DSN     string `yaml:"dsn,omitempty" json:"dsn,omitempty"`

	// Mongo-specific names; ignored by other backends.
	Database   string `yaml:"database,omitempty" json:"database,omitempty"`
	Collection string `yaml:"collection,omitempty" json:"collection,omitempty"`
}

// New creates a store from configuration. An empty backend yields the
// in-memory store.
func New(cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(cfg.DSN)
	case "postgres", "postgresql":
		return NewPostgresStore(cfg.DSN)
	case "mysql":
		return NewMySQLStore(cfg.DSN)
	case "mongodb", "mongo":
		return NewMongoStore(cfg)
	case "redis":
		return NewRedisStore(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Backend)
	}
}

// MemoryStore keeps profiles in a map. The default for tests and one-shot
// CLI runs.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*types.SiteSelectorProfile
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]*types.SiteSelectorProfile)}
}

// Get returns the profile for a hostname, or ErrNotFound
func (s *MemoryStore) Get(_ context.Context, hostname string) (*types.SiteSelectorProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[normalizeHostname(hostname)]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneProfile(profile), nil
}

// Put upserts a profile under its hostname
func (s *MemoryStore) Put(_ context.Context, profile *types.SiteSelectorProfile) error {
	if profile == nil || profile.Hostname == "" {
		return fmt.Errorf("profile must carry a hostname")
	}
	stored := cloneProfile(profile)
	stored.Hostname = normalizeHostname(profile.Hostname)
	stored.UpdatedAt = time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[stored.Hostname] = stored
	return nil
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error { return nil }

// Len returns the number of stored profiles
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles)
}

func normalizeHostname(hostname string) string {
	return strings.ToLower(strings.TrimSpace(hostname))
}

func cloneProfile(p *types.SiteSelectorProfile) *types.SiteSelectorProfile {
	clone := &types.SiteSelectorProfile{
		Hostname:  p.Hostname,
		Rules:     make(map[types.FieldKey][]types.SelectorRule, len(p.Rules)),
		UpdatedAt: p.UpdatedAt,
	}
	for key, rules := range p.Rules {
		clone.Rules[key] = append([]types.SelectorRule(nil), rules...)
	}
	return clone
}

// encodeRules serializes a profile's rule map for the SQL and Redis backends
func encodeRules(p *types.SiteSelectorProfile) (string, error) {
	data, err := json.Marshal(p.Rules)
	if err != nil {
		return "", fmt.Errorf("failed to encode profile rules: %w", err)
	}
	return string(data), nil
}

// decodeRules deserializes a stored rule map
func decodeRules(hostname, raw string, updatedAt time.Time) (*types.SiteSelectorProfile, error) {
	profile := types.NewSiteSelectorProfile(hostname)
	profile.UpdatedAt = updatedAt
	if raw == "" {
		return profile, nil
	}
	if err := json.Unmarshal([]byte(raw), &profile.Rules); err != nil {
		return nil, fmt.Errorf("failed to decode profile rules for %s: %w", hostname, err)
	}
	return profile, nil
}
