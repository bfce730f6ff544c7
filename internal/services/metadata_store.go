package services

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/davidfesteban/lazygallery/internal/models"
)

// MetadataStore is the document-store surface for galleries and media
// assets. Missing documents surface as ErrNotFound; a share-slug collision
// on insert or save surfaces as a duplicate-key error the caller retries.
type MetadataStore interface {
	InsertGallery(ctx context.Context, gallery *models.Gallery) error
	GalleryByID(ctx context.Context, id string) (*models.Gallery, error)
	GalleryBySlug(ctx context.Context, shareSlug string) (*models.Gallery, error)
	SaveGallery(ctx context.Context, gallery *models.Gallery) error

	InsertAsset(ctx context.Context, asset *models.MediaAsset) error
	AssetByID(ctx context.Context, id string) (*models.MediaAsset, error)
	AssetsPage(ctx context.Context, galleryID string, page, size int, sharedOnly bool) ([]models.MediaAsset, int64, error)
	AssetsByGallery(ctx context.Context, galleryID string) ([]models.MediaAsset, error)
	SaveAsset(ctx context.Context, asset *models.MediaAsset) error
	DeleteAsset(ctx context.Context, id string) error
}

// IsDuplicateKey reports whether an error is a unique-index violation.
func IsDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

// MongoStore implements MetadataStore over the galleries and mediaAssets
// collections.
type MongoStore struct {
	galleries *mongo.Collection
	assets    *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		galleries: db.Collection(models.CollectionGalleries),
		assets:    db.Collection(models.CollectionMediaAssets),
	}
}

func (s *MongoStore) InsertGallery(ctx context.Context, gallery *models.Gallery) error {
	if gallery.ID == "" {
		gallery.ID = primitive.NewObjectID().Hex()
	}
	_, err := s.galleries.InsertOne(ctx, gallery)
	return err
}

func (s *MongoStore) GalleryByID(ctx context.Context, id string) (*models.Gallery, error) {
	var gallery models.Gallery
	err := s.galleries.FindOne(ctx, bson.M{"_id": id}).Decode(&gallery)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &gallery, nil
}

func (s *MongoStore) GalleryBySlug(ctx context.Context, shareSlug string) (*models.Gallery, error) {
	var gallery models.Gallery
	err := s.galleries.FindOne(ctx, bson.M{"shareSlug": shareSlug}).Decode(&gallery)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &gallery, nil
}

func (s *MongoStore) SaveGallery(ctx context.Context, gallery *models.Gallery) error {
	res, err := s.galleries.ReplaceOne(ctx, bson.M{"_id": gallery.ID}, gallery)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) InsertAsset(ctx context.Context, asset *models.MediaAsset) error {
	if asset.ID == "" {
		asset.ID = primitive.NewObjectID().Hex()
	}
	_, err := s.assets.InsertOne(ctx, asset)
	return err
}

func (s *MongoStore) AssetByID(ctx context.Context, id string) (*models.MediaAsset, error) {
	var asset models.MediaAsset
	err := s.assets.FindOne(ctx, bson.M{"_id": id}).Decode(&asset)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &asset, nil
}

// AssetsPage returns one fixed-size page of a gallery's assets ordered by
// uploadedAt descending, plus the full match count. Ties on uploadedAt break
// by _id so the order stays stable across queries.
func (s *MongoStore) AssetsPage(ctx context.Context, galleryID string, page, size int, sharedOnly bool) ([]models.MediaAsset, int64, error) {
	filter := bson.M{"galleryId": galleryID}
	if sharedOnly {
		filter["shared"] = true
	}

	total, err := s.assets.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "uploadedAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(page) * int64(size)).
		SetLimit(int64(size))

	cursor, err := s.assets.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var assets []models.MediaAsset
	if err := cursor.All(ctx, &assets); err != nil {
		return nil, 0, err
	}
	return assets, total, nil
}

// AssetsByGallery returns the full inventory of a gallery ordered by
// uploadedAt descending.
func (s *MongoStore) AssetsByGallery(ctx context.Context, galleryID string) ([]models.MediaAsset, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "uploadedAt", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := s.assets.Find(ctx, bson.M{"galleryId": galleryID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var assets []models.MediaAsset
	if err := cursor.All(ctx, &assets); err != nil {
		return nil, err
	}
	return assets, nil
}

func (s *MongoStore) SaveAsset(ctx context.Context, asset *models.MediaAsset) error {
	res, err := s.assets.ReplaceOne(ctx, bson.M{"_id": asset.ID}, asset)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteAsset(ctx context.Context, id string) error {
	res, err := s.assets.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
