package infra

import (
	"context"
	"fmt"
	"sync"

	"github.com/Vovarama1992/voicepost/internal/ports"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	collUsers          = "users"
	collTranscriptions = "transcriptions"
)

// MongoConn is the process-wide database handle. The client is created on
// first use and reused afterwards; a failed attempt is retried on the next call.
type MongoConn struct {
	uri    string
	dbName string

	mu     sync.Mutex
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoConn(uri, dbName string) *MongoConn {
	return &MongoConn{uri: uri, dbName: dbName}
}

func (c *MongoConn) Database(ctx context.Context) (*mongo.Database, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return c.db, nil
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(c.uri))
	if err != nil {
		return nil, storageErr("mongo connect", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, storageErr("mongo ping", err)
	}

	db := client.Database(c.dbName)
	if err := ensureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	c.client = client
	c.db = db
	return db, nil
}

func (c *MongoConn) collection(ctx context.Context, name string) (*mongo.Collection, error) {
	db, err := c.Database(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection(name), nil
}

func (c *MongoConn) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil
	}
	err := c.client.Disconnect(ctx)
	c.client = nil
	c.db = nil
	return err
}

func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(collUsers).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return storageErr("create users index", err)
	}

	_, err = db.Collection(collTranscriptions).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return storageErr("create transcriptions index", err)
	}
	return nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ports.ErrStorage, op, err)
}
