package handlers

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/davidfesteban/lazygallery/internal/config"
	"github.com/davidfesteban/lazygallery/internal/models"
	"github.com/davidfesteban/lazygallery/internal/pkg/thumbnail"
	"github.com/davidfesteban/lazygallery/internal/services"
)

// stubMetadata is an in-memory services.MetadataStore for routing tests.
// Uniqueness enforcement is left to the service-level suite.
type stubMetadata struct {
	mu        sync.Mutex
	galleries map[string]models.Gallery
	assets    map[string]models.MediaAsset
	seq       int
}

func newStubMetadata() *stubMetadata {
	return &stubMetadata{
		galleries: make(map[string]models.Gallery),
		assets:    make(map[string]models.MediaAsset),
	}
}

func (s *stubMetadata) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s%06d", prefix, s.seq)
}

func (s *stubMetadata) InsertGallery(_ context.Context, gallery *models.Gallery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gallery.ID == "" {
		gallery.ID = s.nextID("g")
	}
	s.galleries[gallery.ID] = *gallery
	return nil
}

func (s *stubMetadata) GalleryByID(_ context.Context, id string) (*models.Gallery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gallery, ok := s.galleries[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	return &gallery, nil
}

func (s *stubMetadata) GalleryBySlug(_ context.Context, shareSlug string) (*models.Gallery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, gallery := range s.galleries {
		if gallery.ShareSlug == shareSlug {
			g := gallery
			return &g, nil
		}
	}
	return nil, services.ErrNotFound
}

func (s *stubMetadata) SaveGallery(_ context.Context, gallery *models.Gallery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.galleries[gallery.ID]; !ok {
		return services.ErrNotFound
	}
	s.galleries[gallery.ID] = *gallery
	return nil
}

func (s *stubMetadata) InsertAsset(_ context.Context, asset *models.MediaAsset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if asset.ID == "" {
		asset.ID = s.nextID("a")
	}
	s.assets[asset.ID] = *asset
	return nil
}

func (s *stubMetadata) AssetByID(_ context.Context, id string) (*models.MediaAsset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	asset, ok := s.assets[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	return &asset, nil
}

func (s *stubMetadata) sorted(galleryID string, sharedOnly bool) []models.MediaAsset {
	var out []models.MediaAsset
	for _, asset := range s.assets {
		if asset.GalleryID != galleryID {
			continue
		}
		if sharedOnly && !asset.Shared {
			continue
		}
		out = append(out, asset)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].UploadedAt.After(out[j].UploadedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *stubMetadata) AssetsPage(_ context.Context, galleryID string, page, size int, sharedOnly bool) ([]models.MediaAsset, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.sorted(galleryID, sharedOnly)
	total := int64(len(all))
	start := page * size
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (s *stubMetadata) AssetsByGallery(_ context.Context, galleryID string) ([]models.MediaAsset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(galleryID, false), nil
}

func (s *stubMetadata) SaveAsset(_ context.Context, asset *models.MediaAsset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assets[asset.ID]; !ok {
		return services.ErrNotFound
	}
	s.assets[asset.ID] = *asset
	return nil
}

func (s *stubMetadata) DeleteAsset(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assets[id]; !ok {
		return services.ErrNotFound
	}
	delete(s.assets, id)
	return nil
}

// stubObjects is an in-memory services.ObjectStore.
type stubObjects struct {
	mu    sync.Mutex
	blobs map[string][]byte
	types map[string]string
}

func newStubObjects() *stubObjects {
	return &stubObjects{
		blobs: make(map[string][]byte),
		types: make(map[string]string),
	}
}

func (s *stubObjects) EnsureBucket(context.Context, string) error { return nil }

func (s *stubObjects) Put(_ context.Context, bucket, key string, data []byte, contentType string, _ map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[bucket+"/"+key] = append([]byte(nil), data...)
	s.types[bucket+"/"+key] = contentType
	return nil
}

func (s *stubObjects) Stat(_ context.Context, bucket, key string) (services.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[bucket+"/"+key]
	if !ok {
		return services.ObjectInfo{}, services.ErrObjectNotFound
	}
	sum := md5.Sum(data)
	return services.ObjectInfo{
		Size:        int64(len(data)),
		ETag:        hex.EncodeToString(sum[:]),
		ContentType: s.types[bucket+"/"+key],
	}, nil
}

func (s *stubObjects) Get(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[bucket+"/"+key]
	if !ok {
		return nil, services.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *stubObjects) Remove(_ context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[bucket+"/"+key]; !ok {
		return services.ErrObjectNotFound
	}
	delete(s.blobs, bucket+"/"+key)
	delete(s.types, bucket+"/"+key)
	return nil
}

// newTestRouter wires the full API surface over in-memory stores, mirroring
// the production route table.
func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		BaseURL:          "http://localhost:8080",
		BucketMedia:      "media",
		BucketThumbnails: "thumbnails",
		BucketArchives:   "archives",
		BcryptCost:       bcrypt.MinCost,
	}
	log := zerolog.Nop()

	meta := newStubMetadata()
	objects := newStubObjects()
	galleryService := services.NewGalleryService(meta, cfg, log)
	thumbs := thumbnail.NewBuilder(64, 64, 80)
	mediaService := services.NewMediaService(objects, meta, galleryService, thumbs, cfg, log)

	galleryHandler := NewGalleryHandler(galleryService)
	mediaHandler := NewMediaHandler(mediaService, cfg)
	sharedHandler := NewSharedHandler(mediaService)

	router := gin.New()
	api := router.Group("/api")
	{
		api.POST("/galleries", galleryHandler.Create)
		api.GET("/galleries/:galleryId", galleryHandler.Get)
		api.PATCH("/galleries/:galleryId/sharing", galleryHandler.UpdateSharing)

		api.GET("/galleries/:galleryId/media", mediaHandler.List)
		api.POST("/galleries/:galleryId/upload", mediaHandler.Upload)
		api.DELETE("/galleries/:galleryId/media/:id", mediaHandler.Delete)
		api.PATCH("/galleries/:galleryId/media/:id/sharing", mediaHandler.UpdateSharing)
		api.GET("/galleries/:galleryId/files/original/:id", mediaHandler.GetOriginal)
		api.GET("/galleries/:galleryId/files/preview/:id", mediaHandler.GetPreview)
		api.GET("/galleries/:galleryId/download", mediaHandler.DownloadArchive)

		api.GET("/shared/:shareSlug/media", sharedHandler.List)
		api.GET("/shared/:shareSlug/files/original/:id", sharedHandler.GetOriginal)
		api.GET("/shared/:shareSlug/files/preview/:id", sharedHandler.GetPreview)
	}
	return router
}
