// internal/store/mongodb.go
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Burrhanburak/scrape-site/pkg/types"
)

// mongoStore persists profiles as one document per hostname
type mongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

type mongoProfile struct {
	Hostname  string    `bson:"_id"`
	Rules     string    `bson:"rules"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// NewMongoStore connects to a MongoDB profile store
func NewMongoStore(cfg Config) (Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("mongodb store requires a DSN")
	}
	database := cfg.Database
	if database == "" {
		database = "scrape_site"
	}
	collection := cfg.Collection
	if collection == "" {
		collection = "site_profiles"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &mongoStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

func (s *mongoStore) Get(ctx context.Context, hostname string) (*types.SiteSelectorProfile, error) {
	hostname = normalizeHostname(hostname)

	var doc mongoProfile
	err := s.collection.FindOne(ctx, bson.M{"_id": hostname}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile for %s: %w", hostname, err)
	}
	return decodeRules(hostname, doc.Rules, doc.UpdatedAt)
}

func (s *mongoStore) Put(ctx context.Context, profile *types.SiteSelectorProfile) error {
	if profile == nil || profile.Hostname == "" {
		return fmt.Errorf("profile must carry a hostname")
	}
	raw, err := encodeRules(profile)
	if err != nil {
		return err
	}

	doc := mongoProfile{
		Hostname:  normalizeHostname(profile.Hostname),
		Rules:     raw,
		UpdatedAt: time.Now().UTC(),
	}
	_, err = s.collection.ReplaceOne(ctx, bson.M{"_id": doc.Hostname}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to store profile for %s: %w", profile.Hostname, err)
	}
	return nil
}

func (s *mongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
