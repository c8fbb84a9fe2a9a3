package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/quailyard/mailharvest/internal/record"
)

const (
	uniqueIndexName = "message_id_unique"

	// legacyIndexName is the camelCase index older deployments built.
	legacyIndexName = "messageId_1"
)

// ErrIdentityConflict reports a duplicate-key error on an upsert. The
// upsert is keyed on message_id, so hitting the unique index anyway
// means identity derivation produced a non-unique id.
var ErrIdentityConflict = errors.New("duplicate message_id under upsert")

// MongoStore persists email records in a MongoDB collection with a
// unique index on message_id.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	logger *slog.Logger
}

// Open connects to MongoDB, verifies liveness with a ping, and ensures
// the unique index before returning the store.
func Open(ctx context.Context, uri, database, collection string, logger *slog.Logger) (*MongoStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	s := &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(collection),
		logger: logger,
	}

	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

// EnsureIndexes creates the unique message_id index. Creating an index
// that already exists is a no-op on the server side. The legacy index
// is dropped if present; a missing legacy index is not an error.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	if err := s.coll.Indexes().DropOne(ctx, legacyIndexName); err != nil && !isIndexNotFound(err) {
		s.logger.Warn("dropping legacy index failed",
			"index", legacyIndexName,
			"error", err,
		)
	}

	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "message_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName(uniqueIndexName),
	})
	if err != nil {
		return fmt.Errorf("create unique index on message_id: %w", err)
	}
	return nil
}

// Upsert inserts or fully replaces the record keyed on its message_id,
// refreshing every field including last_updated.
func (s *MongoStore) Upsert(ctx context.Context, rec record.EmailRecord) error {
	filter := bson.D{{Key: "message_id", Value: rec.MessageID}}

	_, err := s.coll.ReplaceOne(ctx, filter, rec, options.Replace().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("upsert %s: %w", rec.MessageID, ErrIdentityConflict)
		}
		return fmt.Errorf("upsert %s: %w", rec.MessageID, err)
	}
	return nil
}

// Ping confirms the server is reachable.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects from the server.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// isIndexNotFound reports whether err is the server telling us the
// index we tried to drop does not exist.
func isIndexNotFound(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code == 27 || cmdErr.Name == "IndexNotFound"
	}
	return false
}
