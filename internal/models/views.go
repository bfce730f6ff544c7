package models

// GalleryView is the external representation of a gallery. ShareLink is
// present only while the gallery is shared.
type GalleryView struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Shared    bool    `json:"shared"`
	ShareLink *string `json:"shareLink"`
}

// MediaItem is one entry of a media listing. IDs are URL-encoded; the type
// field is derived from the MIME prefix (image, video, other). PreviewUrl is
// populated only for images.
type MediaItem struct {
	ID          string  `json:"id"`
	GalleryID   string  `json:"galleryId"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Mime        string  `json:"mime"`
	Size        int64   `json:"size"`
	Mtime       int64   `json:"mtime"`
	Shared      bool    `json:"shared"`
	ShareLink   *string `json:"shareLink"`
	OriginalURL string  `json:"originalUrl"`
	PreviewURL  *string `json:"previewUrl"`
}

// MediaPage is a listing envelope. NextOffset is null on the last page.
type MediaPage struct {
	Items      []MediaItem `json:"items"`
	NextOffset *int        `json:"nextOffset"`
	Total      int64       `json:"total"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
