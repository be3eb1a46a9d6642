package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/questions"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo stores past questions in a collection keyed by string _id.
type MongoRepo struct {
	col *mongo.Collection
}

// NewMongoRepo wraps col and ensures the listing index exists.
func NewMongoRepo(ctx context.Context, col *mongo.Collection) (*MongoRepo, error) {
	idx := mongo.IndexModel{Keys: bson.D{{Key: "level", Value: 1}, {Key: "courseCode", Value: 1}}}
	if _, err := col.Indexes().CreateOne(ctx, idx); err != nil {
		return nil, err
	}
	return &MongoRepo{col: col}, nil
}

func (m *MongoRepo) Create(ctx context.Context, q *questions.PastQuestion) (string, error) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	if q.UpdatedAt.IsZero() {
		q.UpdatedAt = q.CreatedAt
	}
	if _, err := m.col.InsertOne(ctx, q); err != nil {
		return "", err
	}
	return q.ID, nil
}

func (m *MongoRepo) Get(ctx context.Context, id string) (*questions.PastQuestion, error) {
	var q questions.PastQuestion
	err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&q)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &q, nil
}

func (m *MongoRepo) List(ctx context.Context) ([]*questions.PastQuestion, error) {
	cur, err := m.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*questions.PastQuestion{}
	for cur.Next(ctx) {
		var q questions.PastQuestion
		if err := cur.Decode(&q); err != nil {
			return nil, err
		}
		out = append(out, &q)
	}
	return out, cur.Err()
}

func (m *MongoRepo) IncrementDownloads(ctx context.Context, id string) (*questions.PastQuestion, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$inc": bson.M{"downloads": 1}, "$set": bson.M{"updatedAt": time.Now().UTC()}}
	var q questions.PastQuestion
	err := m.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&q)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &q, nil
}

func (m *MongoRepo) Count(ctx context.Context) (int64, error) {
	return m.col.CountDocuments(ctx, bson.M{})
}
