package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/davidfesteban/lazygallery/internal/config"
	"github.com/davidfesteban/lazygallery/internal/models"
	"github.com/davidfesteban/lazygallery/pkg/crypto"
)

const slugAllocAttempts = 5

type GalleryService struct {
	store MetadataStore
	cfg   *config.Config
	log   zerolog.Logger
}

func NewGalleryService(store MetadataStore, cfg *config.Config, log zerolog.Logger) *GalleryService {
	return &GalleryService{store: store, cfg: cfg, log: log}
}

// Create hashes the password, issues a share slug and persists the gallery.
// The slug exists from day one; the shared flag decides whether it resolves.
func (s *GalleryService) Create(ctx context.Context, ownerID, name, password string, shared bool) (*models.Gallery, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, invalidArgument("ownerId required")
	}
	if strings.TrimSpace(name) == "" {
		return nil, invalidArgument("name required")
	}
	if strings.TrimSpace(password) == "" {
		return nil, invalidArgument("password required")
	}

	hash, err := crypto.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for attempt := 0; attempt < slugAllocAttempts; attempt++ {
		gallery := &models.Gallery{
			OwnerID:      ownerID,
			Name:         name,
			PasswordHash: hash,
			ShareSlug:    newShareSlug(),
			Shared:       shared,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		err := s.store.InsertGallery(ctx, gallery)
		if err == nil {
			return gallery, nil
		}
		if !IsDuplicateKey(err) {
			return nil, err
		}
		s.log.Warn().Int("attempt", attempt+1).Msg("share slug collision, retrying")
	}
	return nil, fmt.Errorf("failed to allocate a unique share slug")
}

// RequireOwnerGallery returns the gallery iff it exists and belongs to the
// owner. An ownership mismatch is indistinguishable from absence.
func (s *GalleryService) RequireOwnerGallery(ctx context.Context, galleryID, ownerID string) (*models.Gallery, error) {
	gallery, err := s.store.GalleryByID(ctx, galleryID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFound("Gallery not found")
		}
		return nil, err
	}
	if gallery.OwnerID != ownerID {
		return nil, notFound("Gallery not found")
	}
	return gallery, nil
}

// VerifySharedGallery resolves a share slug and checks the password. A
// missing slug, an unshared gallery and a wrong password all fail the same
// way.
func (s *GalleryService) VerifySharedGallery(ctx context.Context, shareSlug, password string) (*models.Gallery, error) {
	gallery, err := s.store.GalleryBySlug(ctx, shareSlug)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFound("Gallery not available")
		}
		return nil, err
	}
	if !gallery.Shared {
		return nil, notFound("Gallery not available")
	}
	if !crypto.CheckPassword(password, gallery.PasswordHash) {
		return nil, notFound("Gallery not available")
	}
	return gallery, nil
}

// UpdateSharing toggles gallery sharing. Enabling keeps the slug issued at
// creation; a slug is allocated only if one is somehow missing.
func (s *GalleryService) UpdateSharing(ctx context.Context, galleryID, ownerID string, shared bool) (*models.Gallery, error) {
	gallery, err := s.RequireOwnerGallery(ctx, galleryID, ownerID)
	if err != nil {
		return nil, err
	}

	if shared && gallery.ShareSlug == "" {
		gallery.ShareSlug = newShareSlug()
	}
	gallery.Shared = shared
	gallery.UpdatedAt = time.Now().UTC()

	for attempt := 0; ; attempt++ {
		err := s.store.SaveGallery(ctx, gallery)
		if err == nil {
			return gallery, nil
		}
		if !IsDuplicateKey(err) || attempt >= slugAllocAttempts {
			return nil, err
		}
		gallery.ShareSlug = newShareSlug()
	}
}

// View builds the external representation. The share link resolves against
// the configured public base URL.
func (s *GalleryService) View(gallery *models.Gallery) models.GalleryView {
	view := models.GalleryView{
		ID:     gallery.ID,
		Name:   gallery.Name,
		Shared: gallery.Shared,
	}
	if gallery.Shared && gallery.ShareSlug != "" {
		link := s.cfg.BaseURL + "/g/" + gallery.ShareSlug
		view.ShareLink = &link
	}
	return view
}

// newShareSlug returns 12 random bytes as unpadded URL-safe base64.
// Uniqueness is enforced by the store's unique index, not here.
func newShareSlug() string {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
