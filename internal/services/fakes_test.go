package services

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/davidfesteban/lazygallery/internal/models"
)

// duplicateKeyErr mimics a unique-index violation from the driver.
func duplicateKeyErr() error {
	return mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}
}

// memMetadata is an in-memory MetadataStore with the same uniqueness and
// ordering rules as the Mongo-backed one.
type memMetadata struct {
	mu        sync.Mutex
	galleries map[string]models.Gallery
	assets    map[string]models.MediaAsset
	seq       int

	// insertGalleryFailures makes the next N gallery inserts fail with a
	// duplicate-key error, to exercise slug retry paths.
	insertGalleryFailures int
}

func newMemMetadata() *memMetadata {
	return &memMetadata{
		galleries: make(map[string]models.Gallery),
		assets:    make(map[string]models.MediaAsset),
	}
}

func (m *memMetadata) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s%06d", prefix, m.seq)
}

func (m *memMetadata) InsertGallery(_ context.Context, gallery *models.Gallery) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.insertGalleryFailures > 0 {
		m.insertGalleryFailures--
		return duplicateKeyErr()
	}
	for _, existing := range m.galleries {
		if existing.ShareSlug == gallery.ShareSlug {
			return duplicateKeyErr()
		}
	}
	if gallery.ID == "" {
		gallery.ID = m.nextID("g")
	}
	m.galleries[gallery.ID] = *gallery
	return nil
}

func (m *memMetadata) GalleryByID(_ context.Context, id string) (*models.Gallery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	gallery, ok := m.galleries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &gallery, nil
}

func (m *memMetadata) GalleryBySlug(_ context.Context, shareSlug string) (*models.Gallery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, gallery := range m.galleries {
		if gallery.ShareSlug == shareSlug {
			g := gallery
			return &g, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memMetadata) SaveGallery(_ context.Context, gallery *models.Gallery) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.galleries[gallery.ID]; !ok {
		return ErrNotFound
	}
	for id, existing := range m.galleries {
		if id != gallery.ID && existing.ShareSlug == gallery.ShareSlug {
			return duplicateKeyErr()
		}
	}
	m.galleries[gallery.ID] = *gallery
	return nil
}

func (m *memMetadata) InsertAsset(_ context.Context, asset *models.MediaAsset) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if asset.ShareSlug != nil {
		for _, existing := range m.assets {
			if existing.ShareSlug != nil && *existing.ShareSlug == *asset.ShareSlug {
				return duplicateKeyErr()
			}
		}
	}
	if asset.ID == "" {
		asset.ID = m.nextID("a")
	}
	m.assets[asset.ID] = *asset
	return nil
}

func (m *memMetadata) AssetByID(_ context.Context, id string) (*models.MediaAsset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	asset, ok := m.assets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &asset, nil
}

func (m *memMetadata) galleryAssets(galleryID string, sharedOnly bool) []models.MediaAsset {
	var out []models.MediaAsset
	for _, asset := range m.assets {
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

func (m *memMetadata) AssetsPage(_ context.Context, galleryID string, page, size int, sharedOnly bool) ([]models.MediaAsset, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := m.galleryAssets(galleryID, sharedOnly)
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

func (m *memMetadata) AssetsByGallery(_ context.Context, galleryID string) ([]models.MediaAsset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.galleryAssets(galleryID, false), nil
}

func (m *memMetadata) SaveAsset(_ context.Context, asset *models.MediaAsset) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.assets[asset.ID]; !ok {
		return ErrNotFound
	}
	if asset.ShareSlug != nil {
		for id, existing := range m.assets {
			if id != asset.ID && existing.ShareSlug != nil && *existing.ShareSlug == *asset.ShareSlug {
				return duplicateKeyErr()
			}
		}
	}
	m.assets[asset.ID] = *asset
	return nil
}

func (m *memMetadata) DeleteAsset(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.assets[id]; !ok {
		return ErrNotFound
	}
	delete(m.assets, id)
	return nil
}

type memBlob struct {
	data        []byte
	contentType string
	meta        map[string]string
}

// memObjects is an in-memory ObjectStore. Missing keys surface as
// ErrObjectNotFound, matching the MinIO-backed mapping.
type memObjects struct {
	mu    sync.Mutex
	blobs map[string]memBlob
	puts  map[string]int
}

func newMemObjects() *memObjects {
	return &memObjects{
		blobs: make(map[string]memBlob),
		puts:  make(map[string]int),
	}
}

func blobKey(bucket, key string) string { return bucket + "/" + key }

func (m *memObjects) EnsureBucket(context.Context, string) error { return nil }

func (m *memObjects) Put(_ context.Context, bucket, key string, data []byte, contentType string, userMeta map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.puts[bucket]++
	m.blobs[blobKey(bucket, key)] = memBlob{
		data:        append([]byte(nil), data...),
		contentType: contentType,
		meta:        userMeta,
	}
	return nil
}

func (m *memObjects) Stat(_ context.Context, bucket, key string) (ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	blob, ok := m.blobs[blobKey(bucket, key)]
	if !ok {
		return ObjectInfo{}, ErrObjectNotFound
	}
	sum := md5.Sum(blob.data)
	return ObjectInfo{
		Size:        int64(len(blob.data)),
		ETag:        hex.EncodeToString(sum[:]),
		ContentType: blob.contentType,
	}, nil
}

func (m *memObjects) Get(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	blob, ok := m.blobs[blobKey(bucket, key)]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(blob.data)), nil
}

func (m *memObjects) Remove(_ context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.blobs[blobKey(bucket, key)]; !ok {
		return ErrObjectNotFound
	}
	delete(m.blobs, blobKey(bucket, key))
	return nil
}

func (m *memObjects) has(bucket, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.blobs[blobKey(bucket, key)]
	return ok
}
