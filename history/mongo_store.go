package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoStore is a MongoDB-based implementation of Store. The per-key
// insert-or-increment maps onto a single UpdateOne with $inc/$set, so
// concurrent upserts from distinct sessions keep the counter monotonic.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// mongoEntry is the document shape stored per (origin, target) key.
type mongoEntry struct {
	Origin       string    `bson:"origin"`
	Target       string    `bson:"target"`
	Selector     string    `bson:"selector"`
	SuccessCount int64     `bson:"success_count"`
	LastSuccess  time.Time `bson:"last_success"`
}

// NewMongoStore connects to MongoDB and ensures the unique key index.
func NewMongoStore(config StoreConfig) (*MongoStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(config.Mongo.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	coll := client.Database(config.Mongo.Database).Collection(config.Mongo.Collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "origin", Value: 1}, {Key: "target", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create history index: %w", err)
	}

	return &MongoStore{client: client, coll: coll}, nil
}

// Get returns the entry for (origin, target), or ErrNotFound.
func (s *MongoStore) Get(ctx context.Context, origin, target string) (*Entry, error) {
	filter := bson.D{
		{Key: "origin", Value: origin},
		{Key: "target", Value: NormalizeTarget(target)},
	}

	var doc mongoEntry
	err := s.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history entry: %w", err)
	}
	return &Entry{
		Origin:       doc.Origin,
		Target:       doc.Target,
		Selector:     doc.Selector,
		SuccessCount: doc.SuccessCount,
		LastSuccess:  doc.LastSuccess,
	}, nil
}

// Upsert records a successful selector use.
func (s *MongoStore) Upsert(ctx context.Context, origin, target, selector string) error {
	if origin == "" || target == "" || selector == "" {
		return ErrInvalidInput
	}

	filter := bson.D{
		{Key: "origin", Value: origin},
		{Key: "target", Value: NormalizeTarget(target)},
	}
	update := bson.D{
		{Key: "$inc", Value: bson.D{{Key: "success_count", Value: int64(1)}}},
		{Key: "$set", Value: bson.D{
			{Key: "selector", Value: selector},
			{Key: "last_success", Value: time.Now()},
		}},
	}

	_, err := s.coll.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert history entry: %w", err)
	}
	return nil
}

// Ping checks if the store is healthy.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
