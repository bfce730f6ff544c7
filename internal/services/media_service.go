package services

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"io"
	"mime"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/davidfesteban/lazygallery/internal/config"
	"github.com/davidfesteban/lazygallery/internal/models"
	"github.com/davidfesteban/lazygallery/internal/pkg/thumbnail"
	"github.com/davidfesteban/lazygallery/pkg/idcodec"
)

const (
	galleriesPrefix  = "galleries/"
	originalsFolder  = "originals/"
	thumbnailsFolder = "thumbnails/"
	archivesFolder   = "archives/"

	defaultContentType = "application/octet-stream"

	minPageLimit = 1
	maxPageLimit = 200
)

// UploadPart is one file of a multipart upload.
type UploadPart struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

// Archive is the result of an archive request. When NotModified is set only
// the ETag is meaningful and Content is nil.
type Archive struct {
	NotModified bool
	ETag        string
	Size        int64
	Filename    string
	Content     io.ReadCloser
}

// MediaService implements the media pipeline: ingest, paged listing, gated
// reads, deletion, per-asset sharing and archive build-and-cache.
type MediaService struct {
	objects   ObjectStore
	store     MetadataStore
	galleries *GalleryService
	thumbs    *thumbnail.Builder
	cfg       *config.Config
	log       zerolog.Logger

	archiveBuilds singleflight.Group
}

func NewMediaService(objects ObjectStore, store MetadataStore, galleries *GalleryService, thumbs *thumbnail.Builder, cfg *config.Config, log zerolog.Logger) *MediaService {
	return &MediaService{
		objects:   objects,
		store:     store,
		galleries: galleries,
		thumbs:    thumbs,
		cfg:       cfg,
		log:       log,
	}
}

// Upload stores each non-empty part: original blob, thumbnail for images,
// then the metadata document. A thumbnail failure is logged and does not
// fail the part. Returns the URL-encoded ids of stored assets in order.
func (s *MediaService) Upload(ctx context.Context, galleryID, ownerID string, parts []UploadPart) ([]string, error) {
	gallery, err := s.galleries.RequireOwnerGallery(ctx, galleryID, ownerID)
	if err != nil {
		return nil, err
	}

	stored := make([]string, 0, len(parts))
	for _, part := range parts {
		if len(part.Data) == 0 {
			continue
		}

		storageName := generateStorageName(part.Filename)
		objectKey := originalKey(gallery.ID, storageName)
		contentType := resolveContentType(part.ContentType, part.Filename)
		originalName := part.Filename
		if originalName == "" {
			originalName = storageName
		}

		err := s.objects.Put(ctx, s.cfg.BucketMedia, objectKey, part.Data, contentType, map[string]string{
			"original-name": originalName,
			"uploaded-at":   strconv.FormatInt(time.Now().UnixMilli(), 10),
		})
		if err != nil {
			return nil, err
		}

		if strings.HasPrefix(contentType, "image/") {
			s.createThumbnail(ctx, gallery.ID, storageName, part.Data)
		}

		size := part.Size
		if size == 0 {
			size = int64(len(part.Data))
		}
		asset := &models.MediaAsset{
			GalleryID:    gallery.ID,
			OwnerID:      ownerID,
			ObjectKey:    objectKey,
			StorageName:  storageName,
			OriginalName: originalName,
			MimeType:     contentType,
			Size:         size,
			UploadedAt:   time.Now().UTC(),
			Shared:       false,
		}
		if err := s.store.InsertAsset(ctx, asset); err != nil {
			return nil, err
		}
		stored = append(stored, idcodec.Encode(asset.ID))
	}

	return stored, nil
}

// createThumbnail derives and stores a preview. An existing thumbnail
// short-circuits; any failure is logged and swallowed.
func (s *MediaService) createThumbnail(ctx context.Context, galleryID, storageName string, data []byte) {
	key := thumbnailKey(galleryID, storageName)
	if _, err := s.objects.Stat(ctx, s.cfg.BucketThumbnails, key); err == nil {
		return
	}

	thumb, err := s.thumbs.Build(data)
	if err != nil {
		s.log.Warn().Err(err).Str("storageName", storageName).Msg("failed to build thumbnail")
		return
	}
	if err := s.objects.Put(ctx, s.cfg.BucketThumbnails, key, thumb, "image/jpeg", nil); err != nil {
		s.log.Warn().Err(err).Str("storageName", storageName).Msg("failed to store thumbnail")
	}
}

// ListForOwner returns a page of a gallery's assets for its owner.
func (s *MediaService) ListForOwner(ctx context.Context, galleryID, ownerID string, offset, limit int) (*models.MediaPage, error) {
	gallery, err := s.galleries.RequireOwnerGallery(ctx, galleryID, ownerID)
	if err != nil {
		return nil, err
	}
	return s.fetchPage(ctx, gallery, offset, limit, false, true)
}

// ListShared returns a page of the shared assets of a shared gallery.
func (s *MediaService) ListShared(ctx context.Context, shareSlug, password string, offset, limit int) (*models.MediaPage, error) {
	gallery, err := s.galleries.VerifySharedGallery(ctx, shareSlug, password)
	if err != nil {
		return nil, err
	}
	return s.fetchPage(ctx, gallery, offset, limit, true, false)
}

// fetchPage maps the offset/limit window onto fixed-size store pages:
// page offset/limit is fetched, offset%limit head items are dropped and the
// remainder is trimmed to limit.
func (s *MediaService) fetchPage(ctx context.Context, gallery *models.Gallery, offset, limit int, sharedOnly, ownerContext bool) (*models.MediaPage, error) {
	if limit < minPageLimit {
		limit = minPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}

	page := offset / limit
	localSkip := offset % limit

	assets, total, err := s.store.AssetsPage(ctx, gallery.ID, page, limit, sharedOnly)
	if err != nil {
		return nil, err
	}

	if localSkip > 0 {
		if len(assets) > localSkip {
			assets = assets[localSkip:]
		} else {
			assets = nil
		}
	}
	if len(assets) > limit {
		assets = assets[:limit]
	}

	items := make([]models.MediaItem, 0, len(assets))
	for _, asset := range assets {
		items = append(items, s.toMediaItem(&asset, gallery, ownerContext))
	}

	var nextOffset *int
	if int64(offset+len(items)) < total {
		n := offset + len(items)
		nextOffset = &n
	}

	return &models.MediaPage{Items: items, NextOffset: nextOffset, Total: total}, nil
}

func (s *MediaService) toMediaItem(asset *models.MediaAsset, gallery *models.Gallery, ownerContext bool) models.MediaItem {
	encodedID := idcodec.Encode(asset.ID)
	mediaType := detectType(asset.MimeType)

	var originalURL string
	var previewURL *string
	if ownerContext {
		originalURL = "/api/galleries/" + gallery.ID + "/files/original/" + encodedID
		if mediaType == "image" {
			p := "/api/galleries/" + gallery.ID + "/files/preview/" + encodedID
			previewURL = &p
		}
	} else {
		originalURL = "/api/shared/" + gallery.ShareSlug + "/files/original/" + encodedID
		if mediaType == "image" {
			p := "/api/shared/" + gallery.ShareSlug + "/files/preview/" + encodedID
			previewURL = &p
		}
	}

	var shareLink *string
	if gallery.Shared && asset.Shared && gallery.ShareSlug != "" {
		link := "/api/shared/" + gallery.ShareSlug + "/files/original/" + encodedID
		shareLink = &link
	}

	return models.MediaItem{
		ID:          encodedID,
		GalleryID:   gallery.ID,
		Name:        asset.OriginalName,
		Type:        mediaType,
		Mime:        asset.MimeType,
		Size:        asset.Size,
		Mtime:       asset.UploadedAt.UnixMilli(),
		Shared:      asset.Shared,
		ShareLink:   shareLink,
		OriginalURL: originalURL,
		PreviewURL:  previewURL,
	}
}

// Delete removes the metadata document first, then the original, then
// best-effort the thumbnail. Metadata-first means no request can succeed
// against a row whose original is already gone.
func (s *MediaService) Delete(ctx context.Context, galleryID, ownerID, encodedID string) error {
	gallery, err := s.galleries.RequireOwnerGallery(ctx, galleryID, ownerID)
	if err != nil {
		return err
	}
	asset, err := s.resolveOwnedMedia(ctx, encodedID, gallery.ID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteAsset(ctx, asset.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return notFound("Media not found")
		}
		return err
	}

	if err := s.objects.Remove(ctx, s.cfg.BucketMedia, asset.ObjectKey); err != nil && !errors.Is(err, ErrObjectNotFound) {
		return err
	}

	thumbKey := thumbnailKey(gallery.ID, asset.StorageName)
	if err := s.objects.Remove(ctx, s.cfg.BucketThumbnails, thumbKey); err != nil && !errors.Is(err, ErrObjectNotFound) {
		s.log.Debug().Err(err).Str("storageName", asset.StorageName).Msg("failed to remove thumbnail")
	}

	return nil
}

// UpdateSharing toggles per-asset sharing. Enabling requires the parent
// gallery to be shared and allocates a slug only when the asset has none;
// disabling clears the slug so the next enable gets a fresh one.
func (s *MediaService) UpdateSharing(ctx context.Context, galleryID, ownerID, encodedID string, shared bool) (*models.MediaAsset, error) {
	gallery, err := s.galleries.RequireOwnerGallery(ctx, galleryID, ownerID)
	if err != nil {
		return nil, err
	}
	if shared && !gallery.Shared {
		return nil, invalidArgument("Enable gallery sharing before sharing files")
	}
	asset, err := s.resolveOwnedMedia(ctx, encodedID, gallery.ID)
	if err != nil {
		return nil, err
	}

	asset.Shared = shared
	if !shared {
		asset.ShareSlug = nil
		if err := s.store.SaveAsset(ctx, asset); err != nil {
			return nil, err
		}
		return asset, nil
	}

	if asset.ShareSlug != nil {
		if err := s.store.SaveAsset(ctx, asset); err != nil {
			return nil, err
		}
		return asset, nil
	}

	for attempt := 0; ; attempt++ {
		slug := newShareSlug()
		asset.ShareSlug = &slug
		err := s.store.SaveAsset(ctx, asset)
		if err == nil {
			return asset, nil
		}
		if !IsDuplicateKey(err) || attempt >= slugAllocAttempts {
			return nil, err
		}
	}
}

func (s *MediaService) StatOriginalForOwner(ctx context.Context, galleryID, ownerID, encodedID string) (ObjectInfo, error) {
	gallery, err := s.galleries.RequireOwnerGallery(ctx, galleryID, ownerID)
	if err != nil {
		return ObjectInfo{}, err
	}
	asset, err := s.resolveOwnedMedia(ctx, encodedID, gallery.ID)
	if err != nil {
		return ObjectInfo{}, err
	}
	return s.objects.Stat(ctx, s.cfg.BucketMedia, asset.ObjectKey)
}

func (s *MediaService) OpenOriginalForOwner(ctx context.Context, galleryID, ownerID, encodedID string) (io.ReadCloser, error) {
	gallery, err := s.galleries.RequireOwnerGallery(ctx, galleryID, ownerID)
	if err != nil {
		return nil, err
	}
	asset, err := s.resolveOwnedMedia(ctx, encodedID, gallery.ID)
	if err != nil {
		return nil, err
	}
	return s.objects.Get(ctx, s.cfg.BucketMedia, asset.ObjectKey)
}

func (s *MediaService) StatThumbnailForOwner(ctx context.Context, galleryID, ownerID, encodedID string) (ObjectInfo, error) {
	gallery, err := s.galleries.RequireOwnerGallery(ctx, galleryID, ownerID)
	if err != nil {
		return ObjectInfo{}, err
	}
	asset, err := s.resolveOwnedMedia(ctx, encodedID, gallery.ID)
	if err != nil {
		return ObjectInfo{}, err
	}
	return s.objects.Stat(ctx, s.cfg.BucketThumbnails, thumbnailKey(gallery.ID, asset.StorageName))
}

func (s *MediaService) OpenThumbnailForOwner(ctx context.Context, galleryID, ownerID, encodedID string) (io.ReadCloser, error) {
	gallery, err := s.galleries.RequireOwnerGallery(ctx, galleryID, ownerID)
	if err != nil {
		return nil, err
	}
	asset, err := s.resolveOwnedMedia(ctx, encodedID, gallery.ID)
	if err != nil {
		return nil, err
	}
	return s.objects.Get(ctx, s.cfg.BucketThumbnails, thumbnailKey(gallery.ID, asset.StorageName))
}

func (s *MediaService) StatOriginalShared(ctx context.Context, shareSlug, password, encodedID string) (ObjectInfo, error) {
	gallery, err := s.galleries.VerifySharedGallery(ctx, shareSlug, password)
	if err != nil {
		return ObjectInfo{}, err
	}
	asset, err := s.resolveSharedMedia(ctx, encodedID, gallery)
	if err != nil {
		return ObjectInfo{}, err
	}
	return s.objects.Stat(ctx, s.cfg.BucketMedia, asset.ObjectKey)
}

func (s *MediaService) OpenOriginalShared(ctx context.Context, shareSlug, password, encodedID string) (io.ReadCloser, error) {
	gallery, err := s.galleries.VerifySharedGallery(ctx, shareSlug, password)
	if err != nil {
		return nil, err
	}
	asset, err := s.resolveSharedMedia(ctx, encodedID, gallery)
	if err != nil {
		return nil, err
	}
	return s.objects.Get(ctx, s.cfg.BucketMedia, asset.ObjectKey)
}

func (s *MediaService) StatThumbnailShared(ctx context.Context, shareSlug, password, encodedID string) (ObjectInfo, error) {
	gallery, err := s.galleries.VerifySharedGallery(ctx, shareSlug, password)
	if err != nil {
		return ObjectInfo{}, err
	}
	asset, err := s.resolveSharedMedia(ctx, encodedID, gallery)
	if err != nil {
		return ObjectInfo{}, err
	}
	return s.objects.Stat(ctx, s.cfg.BucketThumbnails, thumbnailKey(gallery.ID, asset.StorageName))
}

func (s *MediaService) OpenThumbnailShared(ctx context.Context, shareSlug, password, encodedID string) (io.ReadCloser, error) {
	gallery, err := s.galleries.VerifySharedGallery(ctx, shareSlug, password)
	if err != nil {
		return nil, err
	}
	asset, err := s.resolveSharedMedia(ctx, encodedID, gallery)
	if err != nil {
		return nil, err
	}
	return s.objects.Get(ctx, s.cfg.BucketThumbnails, thumbnailKey(gallery.ID, asset.StorageName))
}

// DownloadArchive serves a zip of the gallery's current inventory. The
// inventory signature is content-addressed into the archives bucket, so a
// stat hit implies byte-identical content; concurrent builds for one
// signature are collapsed into a single build.
func (s *MediaService) DownloadArchive(ctx context.Context, galleryID, ownerID, ifNoneMatch string) (*Archive, error) {
	gallery, err := s.galleries.RequireOwnerGallery(ctx, galleryID, ownerID)
	if err != nil {
		return nil, err
	}

	inventory, err := s.store.AssetsByGallery(ctx, gallery.ID)
	if err != nil {
		return nil, err
	}

	signature := computeSignature(inventory)
	etag := `"` + signature + `"`

	if ifNoneMatch == etag {
		return &Archive{NotModified: true, ETag: etag}, nil
	}

	key := archiveKey(gallery.ID, signature)
	if _, err, _ := s.archiveBuilds.Do(key, func() (interface{}, error) {
		return nil, s.ensureArchive(ctx, key, inventory)
	}); err != nil {
		return nil, err
	}

	info, err := s.objects.Stat(ctx, s.cfg.BucketArchives, key)
	if err != nil {
		return nil, err
	}
	stream, err := s.objects.Get(ctx, s.cfg.BucketArchives, key)
	if err != nil {
		return nil, err
	}

	filename := "gallery-" + strings.ReplaceAll(gallery.Name, " ", "_") + "-" + signature[:8] + ".zip"
	return &Archive{
		ETag:     etag,
		Size:     info.Size,
		Filename: filename,
		Content:  stream,
	}, nil
}

// ensureArchive builds and persists the zip unless it is already cached.
func (s *MediaService) ensureArchive(ctx context.Context, key string, inventory []models.MediaAsset) error {
	if _, err := s.objects.Stat(ctx, s.cfg.BucketArchives, key); err == nil {
		return nil
	} else if !errors.Is(err, ErrObjectNotFound) {
		return err
	}

	s.log.Info().Str("key", key).Msg("archive missing, generating new version")

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, asset := range inventory {
		entryName := path.Base(asset.OriginalName)
		if entryName == "." || entryName == "/" || entryName == "" {
			entryName = asset.StorageName
		}
		entry, err := zw.Create(entryName)
		if err != nil {
			return err
		}
		in, err := s.objects.Get(ctx, s.cfg.BucketMedia, asset.ObjectKey)
		if err != nil {
			return err
		}
		_, err = io.Copy(entry, in)
		in.Close()
		if err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return err
	}

	return s.objects.Put(ctx, s.cfg.BucketArchives, key, buf.Bytes(), "application/zip", nil)
}

func (s *MediaService) resolveOwnedMedia(ctx context.Context, encodedID, galleryID string) (*models.MediaAsset, error) {
	id, err := idcodec.Decode(encodedID)
	if err != nil {
		return nil, notFound("Media not found")
	}
	asset, err := s.store.AssetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFound("Media not found")
		}
		return nil, err
	}
	if asset.GalleryID != galleryID {
		return nil, notFound("Media not found")
	}
	return asset, nil
}

func (s *MediaService) resolveSharedMedia(ctx context.Context, encodedID string, gallery *models.Gallery) (*models.MediaAsset, error) {
	id, err := idcodec.Decode(encodedID)
	if err != nil {
		return nil, notFound("Media not available")
	}
	asset, err := s.store.AssetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFound("Media not available")
		}
		return nil, err
	}
	if !asset.Shared || asset.GalleryID != gallery.ID {
		return nil, notFound("Media not available")
	}
	return asset, nil
}

// computeSignature digests the inventory's objectKey|size|uploadedAtMillis
// projection. A pure function of the current inventory.
func computeSignature(inventory []models.MediaAsset) string {
	lines := make([]string, 0, len(inventory))
	for _, asset := range inventory {
		lines = append(lines, asset.ObjectKey+"|"+strconv.FormatInt(asset.Size, 10)+"|"+strconv.FormatInt(asset.UploadedAt.UnixMilli(), 10))
	}
	sum := sha1.Sum([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])
}

func originalKey(galleryID, storageName string) string {
	return galleriesPrefix + galleryID + "/" + originalsFolder + storageName
}

func thumbnailKey(galleryID, storageName string) string {
	return galleriesPrefix + galleryID + "/" + thumbnailsFolder + storageName + ".jpg"
}

func archiveKey(galleryID, signature string) string {
	return galleriesPrefix + galleryID + "/" + archivesFolder + "media-" + signature + ".zip"
}

// generateStorageName returns a server-assigned name: random UUID plus the
// lowercased extension, or "bin" when the filename has none.
func generateStorageName(filename string) string {
	ext := strings.TrimPrefix(path.Ext(filename), ".")
	if ext == "" {
		ext = "bin"
	}
	return uuid.New().String() + "." + strings.ToLower(ext)
}

// resolveContentType prefers the uploader-declared type, falls back to an
// extension lookup and finally to octet-stream.
func resolveContentType(declared, filename string) string {
	if strings.TrimSpace(declared) != "" {
		return declared
	}
	if byExt := mime.TypeByExtension(path.Ext(filename)); byExt != "" {
		return byExt
	}
	return defaultContentType
}

func detectType(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return "image"
	case strings.HasPrefix(mimeType, "video/"):
		return "video"
	default:
		return "other"
	}
}
