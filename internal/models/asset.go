package models

import "time"

// MediaAsset is the metadata document for one stored file. The document
// owns its object-store keys; blobs without a matching document are
// tolerated, documents without a blob are not.
type MediaAsset struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	GalleryID    string    `bson:"galleryId" json:"gallery_id"`
	OwnerID      string    `bson:"ownerId" json:"owner_id"`
	ObjectKey    string    `bson:"objectKey" json:"object_key"`
	StorageName  string    `bson:"storageName" json:"storage_name"`
	OriginalName string    `bson:"originalName" json:"original_name"`
	MimeType     string    `bson:"mimeType" json:"mime_type"`
	Size         int64     `bson:"size" json:"size"`
	UploadedAt   time.Time `bson:"uploadedAt" json:"uploaded_at"`
	Shared       bool      `bson:"shared" json:"shared"`
	// Empty unless the asset is currently shared; cleared on un-share so the
	// next enable allocates a fresh slug.
	ShareSlug *string `bson:"shareSlug,omitempty" json:"-"`
}
