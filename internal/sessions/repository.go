package sessions

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultTTL bounds how long a persisted session outlives its last write.
const DefaultTTL = 7 * 24 * time.Hour

// Repository persists serialized auth sessions by storage key.
// Get returns (nil, nil) for a missing or expired key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

var (
	_ Repository = (*MongoRepository)(nil)
	_ Repository = (*RedisRepository)(nil)
	_ Repository = (*MemoryRepository)(nil)
)

// record is the stored form of a session in MongoDB.
type record struct {
	Key       string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	ExpiresAt time.Time `bson:"expiresAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// MongoRepository implements Repository using a Mongo collection
type MongoRepository struct {
	col *mongo.Collection
	ttl time.Duration
}

// NewMongoRepository creates the repository and a TTL index on expiresAt so
// Mongo drops stale sessions on its own.
func NewMongoRepository(ctx context.Context, col *mongo.Collection, ttl time.Duration) (*MongoRepository, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	idx := mongo.IndexModel{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)}
	if _, err := col.Indexes().CreateOne(ctx, idx); err != nil {
		return nil, err
	}
	return &MongoRepository{col: col, ttl: ttl}, nil
}

func (r *MongoRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var rec record
	if err := r.col.FindOne(ctx, bson.M{"_id": key}).Decode(&rec); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	// the TTL monitor runs once a minute; hide records it has not reaped yet
	if time.Now().UTC().After(rec.ExpiresAt) {
		_, _ = r.col.DeleteOne(ctx, bson.M{"_id": key})
		return nil, nil
	}
	return rec.Value, nil
}

func (r *MongoRepository) Set(ctx context.Context, key string, value []byte) error {
	now := time.Now().UTC()
	rec := record{Key: key, Value: value, ExpiresAt: now.Add(r.ttl), UpdatedAt: now}
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": key}, rec, options.Replace().SetUpsert(true))
	return err
}

func (r *MongoRepository) Delete(ctx context.Context, key string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": key})
	return err
}
