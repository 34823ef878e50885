package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	// Test connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	if err := createIndexes(ctx, client.Database(cfg.DBName).Collection(cfg.MongoCollection)); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %v", err)
	}

	return client, nil
}

// Regular indexes backing the namespace filter and per-document deletes.
// The Atlas vector index itself is provisioned outside the driver.
func createIndexes(ctx context.Context, chunks *mongo.Collection) error {
	chunkIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "namespace", Value: 1}}},
		{Keys: bson.D{{Key: "namespace", Value: 1}, {Key: "document_id", Value: 1}}},
		{Keys: bson.D{{Key: "document_id", Value: 1}, {Key: "chunk_index", Value: 1}}},
	}
	_, err := chunks.Indexes().CreateMany(ctx, chunkIndexes)
	return err
}
