package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/davidfesteban/lazygallery/internal/config"
	"github.com/davidfesteban/lazygallery/internal/services"
)

type MediaHandler struct {
	media *services.MediaService
	cfg   *config.Config
}

func NewMediaHandler(media *services.MediaService, cfg *config.Config) *MediaHandler {
	return &MediaHandler{media: media, cfg: cfg}
}

// List handles GET /api/galleries/:galleryId/media?offset=&limit=
func (h *MediaHandler) List(c *gin.Context) {
	offset, limit := pagingParams(c)
	page, err := h.media.ListForOwner(c.Request.Context(), c.Param("galleryId"), c.GetHeader(ownerHeader), offset, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Upload handles POST /api/galleries/:galleryId/upload (multipart)
func (h *MediaHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "failed to parse multipart form"})
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		files = form.File["files[]"]
	}

	parts := make([]services.UploadPart, 0, len(files))
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "failed to open uploaded file"})
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "failed to read uploaded file"})
			return
		}
		parts = append(parts, services.UploadPart{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Data:        data,
		})
	}

	uploaded, err := h.media.Upload(c.Request.Context(), c.Param("galleryId"), c.GetHeader(ownerHeader), parts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"uploaded": uploaded})
}

// Delete handles DELETE /api/galleries/:galleryId/media/:id
func (h *MediaHandler) Delete(c *gin.Context) {
	err := h.media.Delete(c.Request.Context(), c.Param("galleryId"), c.GetHeader(ownerHeader), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateSharing handles PATCH /api/galleries/:galleryId/media/:id/sharing
func (h *MediaHandler) UpdateSharing(c *gin.Context) {
	var req updateSharingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	asset, err := h.media.UpdateSharing(c.Request.Context(), c.Param("galleryId"), c.GetHeader(ownerHeader), c.Param("id"), req.Shared)
	if err != nil {
		respondError(c, err)
		return
	}

	var slug *string
	var shareLink *string
	if asset.Shared && asset.ShareSlug != nil {
		slug = asset.ShareSlug
		link := h.cfg.BaseURL + "/api/shared/" + *asset.ShareSlug + "/files/original/" + c.Param("id")
		shareLink = &link
	}
	c.JSON(http.StatusOK, gin.H{"shared": asset.Shared, "shareSlug": slug, "shareLink": shareLink})
}

// GetOriginal handles GET /api/galleries/:galleryId/files/original/:id
func (h *MediaHandler) GetOriginal(c *gin.Context) {
	ctx := c.Request.Context()
	galleryID, ownerID, id := c.Param("galleryId"), c.GetHeader(ownerHeader), c.Param("id")

	info, err := h.media.StatOriginalForOwner(ctx, galleryID, ownerID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	stream, err := h.media.OpenOriginalForOwner(ctx, galleryID, ownerID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	serveBlob(c, info, stream, false)
}

// GetPreview handles GET /api/galleries/:galleryId/files/preview/:id
func (h *MediaHandler) GetPreview(c *gin.Context) {
	ctx := c.Request.Context()
	galleryID, ownerID, id := c.Param("galleryId"), c.GetHeader(ownerHeader), c.Param("id")

	info, err := h.media.StatThumbnailForOwner(ctx, galleryID, ownerID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	stream, err := h.media.OpenThumbnailForOwner(ctx, galleryID, ownerID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	serveBlob(c, info, stream, true)
}

// DownloadArchive handles GET /api/galleries/:galleryId/download
func (h *MediaHandler) DownloadArchive(c *gin.Context) {
	archive, err := h.media.DownloadArchive(
		c.Request.Context(),
		c.Param("galleryId"),
		c.GetHeader(ownerHeader),
		c.GetHeader("If-None-Match"),
	)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("ETag", archive.ETag)
	c.Header("Cache-Control", "public, max-age=0, must-revalidate")
	if archive.NotModified {
		c.Status(http.StatusNotModified)
		return
	}

	extraHeaders := map[string]string{
		"Content-Disposition": `attachment; filename="` + archive.Filename + `"`,
	}
	c.DataFromReader(http.StatusOK, archive.Size, "application/octet-stream", archive.Content, extraHeaders)
}

// serveBlob streams a stored object with the file cache headers. Previews
// are always JPEG; originals fall back to octet-stream when the store has
// no content type on record.
func serveBlob(c *gin.Context, info services.ObjectInfo, stream io.ReadCloser, preview bool) {
	contentType := info.ContentType
	if preview {
		contentType = "image/jpeg"
	} else if contentType == "" {
		contentType = "application/octet-stream"
	}

	extraHeaders := map[string]string{
		"ETag":          info.ETag,
		"Cache-Control": "public, max-age=3600",
	}
	c.DataFromReader(http.StatusOK, info.Size, contentType, stream, extraHeaders)
}

func pagingParams(c *gin.Context) (int, int) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	return offset, limit
}
