package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"school_reviews/internal/adapters/observability"
)

const Collection = "review_store"

type entry struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// KV keeps one document per key in the review_store collection.
type KV struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// Connect dials uri and pings the server before returning.
func Connect(ctx context.Context, uri, dbName string) (*KV, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return &KV{client: client, collection: client.Database(dbName).Collection(Collection)}, nil
}

func (r *KV) Close(ctx context.Context) error { return r.client.Disconnect(ctx) }

func (r *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var e entry
	err := r.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		observability.ObserveKV("mongo", "miss")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	observability.ObserveKV("mongo", "hit")
	return []byte(e.Value), true, nil
}

func (r *KV) Set(ctx context.Context, key string, value []byte) error {
	observability.ObserveKV("mongo", "set")
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M{"value": string(value), "updated_at": time.Now().UTC()}},
		options.UpdateOne().SetUpsert(true),
	)
	return err
}

func (r *KV) Del(ctx context.Context, key string) error {
	observability.ObserveKV("mongo", "del")
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": key})
	return err
}
