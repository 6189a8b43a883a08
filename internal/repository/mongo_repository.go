package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_giftpack/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrSlotNotFound also matches storage.ErrNotFound.
var ErrSlotNotFound = fmt.Errorf("profile slot not found: %w", storage.ErrNotFound)

// ProfileRetention is how long an untouched profile slot survives.
const ProfileRetention = 90 * 24 * time.Hour

type profileSlot struct {
	Key       string    `bson:"key"`
	Value     []byte    `bson:"value"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoRepository is the durable home of profile slots: cart lines,
// personalizations, newsletter state and the used-email ledger.
type MongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		collection: db.Collection("profile_slots"),
	}
}

func (m *MongoRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var slot profileSlot

	filter := bson.M{"key": key}
	err := m.collection.FindOne(ctx, filter).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("failed to get slot: %w", err)
	}

	return slot.Value, nil
}

func (m *MongoRepository) Set(ctx context.Context, key string, value []byte) error {
	now := time.Now()

	filter := bson.M{"key": key}
	update := bson.M{
		"$set":         bson.M{"value": value, "updated_at": now},
		"$setOnInsert": bson.M{"created_at": now},
	}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert slot: %w", err)
	}
	return nil
}

func (m *MongoRepository) Delete(ctx context.Context, key string) error {
	filter := bson.M{"key": key}
	if _, err := m.collection.DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("failed to delete slot: %w", err)
	}
	return nil
}

func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(ProfileRetention.Seconds())),
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

var _ storage.KV = (*MongoRepository)(nil)
