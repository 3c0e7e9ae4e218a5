// internal/store/redis.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Burrhanburak/scrape-site/pkg/types"
)

const redisKeyPrefix = "profile:"

// redisStore keeps profiles as JSON values keyed by hostname
type redisStore struct {
	client *redis.Client
}

type redisProfile struct {
	Rules     string    `json:"rules"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRedisStore connects to a Redis profile store
func NewRedisStore(dsn string) (Store, error) {
	if dsn == "" {
		dsn = "redis://localhost:6379/0"
	}
	opts, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid redis DSN: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &redisStore{client: client}, nil
}

func (s *redisStore) Get(ctx context.Context, hostname string) (*types.SiteSelectorProfile, error) {
	hostname = normalizeHostname(hostname)

	raw, err := s.client.Get(ctx, redisKeyPrefix+hostname).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile for %s: %w", hostname, err)
	}

	var doc redisProfile
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("corrupt profile for %s: %w", hostname, err)
	}
	return decodeRules(hostname, doc.Rules, doc.UpdatedAt)
}

func (s *redisStore) Put(ctx context.Context, profile *types.SiteSelectorProfile) error {
	if profile == nil || profile.Hostname == "" {
		return fmt.Errorf("profile must carry a hostname")
	}
	rules, err := encodeRules(profile)
	if err != nil {
		return err
	}

	doc := redisProfile{Rules: rules, UpdatedAt: time.Now().UTC()}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode profile for %s: %w", profile.Hostname, err)
	}

	key := redisKeyPrefix + normalizeHostname(profile.Hostname)
	if err := s.client.Set(ctx, key, raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to store profile for %s: %w", profile.Hostname, err)
	}
	return nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
