package docstore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Each failed attempt means another writer won, so this bounds how many
// concurrent writers to one document are served before giving up.
const mongoMaxAttempts = 32

var ErrConflict = errors.New("document changed concurrently")

type mongoDocument struct {
	Key       string `bson:"_id"`
	Body      string `bson:"body"`
	Version   int64  `bson:"version"`
	UpdatedAt int64  `bson:"updated_at"`
}

// MongoStore keeps one MongoDB document per key. Transactions use optimistic
// concurrency on the version field and retry on contention.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(collection),
	}, nil
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

func (s *MongoStore) load(ctx context.Context, key string) (*Document, error) {
	var md mongoDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&md)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find document: %w", err)
	}
	doc, err := UnmarshalDocument(key, []byte(md.Body))
	if err != nil {
		return nil, err
	}
	doc.Version = md.Version
	return doc, nil
}

func (s *MongoStore) Get(ctx context.Context, key string) (*Document, error) {
	return s.load(ctx, key)
}

func (s *MongoStore) SetMerge(ctx context.Context, key string, patch *Patch) error {
	return s.RunTransaction(ctx, key, patch.ApplyTo)
}

func (s *MongoStore) RunTransaction(ctx context.Context, key string, fn func(doc *Document) error) error {
	for attempt := 0; attempt < mongoMaxAttempts; attempt++ {
		doc, err := s.load(ctx, key)
		if errors.Is(err, ErrNotFound) {
			doc = NewDocument(key)
		} else if err != nil {
			return err
		}
		prev := doc.Version

		if err := fn(doc); err != nil {
			return err
		}

		doc.Version = prev + 1
		out, err := doc.Marshal()
		if err != nil {
			return fmt.Errorf("encode document: %w", err)
		}
		md := mongoDocument{Key: key, Body: string(out), Version: doc.Version, UpdatedAt: doc.UpdatedAt}

		if prev == 0 {
			_, err := s.coll.InsertOne(ctx, md)
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			if err != nil {
				return fmt.Errorf("insert document: %w", err)
			}
			return nil
		}

		res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": key, "version": prev}, md)
		if err != nil {
			return fmt.Errorf("replace document: %w", err)
		}
		if res.MatchedCount == 1 {
			return nil
		}
	}
	return fmt.Errorf("update %q after %d attempts: %w", key, mongoMaxAttempts, ErrConflict)
}

var _ Store = (*MongoStore)(nil)
