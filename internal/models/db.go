package models

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/davidfesteban/lazygallery/internal/config"
)

const (
	CollectionGalleries   = "galleries"
	CollectionMediaAssets = "mediaAssets"
)

// InitDB connects to MongoDB and verifies the connection.
func InitDB(ctx context.Context, cfg *config.Config) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return client.Database(cfg.MongoDatabase), nil
}

// EnsureIndexes creates the indexes the query paths rely on. Gallery share
// slugs are globally unique; asset share slugs are unique but sparse since
// unshared assets carry no slug.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	galleryIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "shareSlug", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "ownerId", Value: 1}},
		},
	}
	if _, err := db.Collection(CollectionGalleries).Indexes().CreateMany(ctx, galleryIndexes); err != nil {
		return fmt.Errorf("failed to create gallery indexes: %w", err)
	}

	assetIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "galleryId", Value: 1}, {Key: "uploadedAt", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "ownerId", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "shareSlug", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	}
	if _, err := db.Collection(CollectionMediaAssets).Indexes().CreateMany(ctx, assetIndexes); err != nil {
		return fmt.Errorf("failed to create media asset indexes: %w", err)
	}

	return nil
}
