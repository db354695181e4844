package database

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const connectTimeout = 10 * time.Second

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate key")
)

// Store owns the single client for the process and the collections used by
// the routers. The driver's client is safe for concurrent use.
type Store struct {
	Client *mongo.Client
	DB     *mongo.Database

	users     *mongo.Collection
	products  *mongo.Collection
	tokens    *mongo.Collection
	contacts  *mongo.Collection
	blacklist *mongo.Collection
}

// Connect makes exactly one attempt to reach the server. mongo.Connect is
// lazy, so the ping is what confirms the connection.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(connectTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return NewStore(client, client.Database(dbName)), nil
}

func NewStore(client *mongo.Client, db *mongo.Database) *Store {
	return &Store{
		Client:    client,
		DB:        db,
		users:     db.Collection("users"),
		products:  db.Collection("products"),
		tokens:    db.Collection("tokens"),
		contacts:  db.Collection("contacts"),
		blacklist: db.Collection("blacklist_tokens"),
	}
}

// EnsureIndexes creates the indexes the routers rely on. It is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}

	_, err = s.products.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user", Value: 1}},
	})
	if err != nil {
		return err
	}

	for _, coll := range []*mongo.Collection{s.tokens, s.blacklist} {
		_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Disconnect(ctx context.Context) error {
	return s.Client.Disconnect(ctx)
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}
