package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/davidfesteban/lazygallery/internal/services"
)

// SharedHandler serves the password-gated share-slug surface.
type SharedHandler struct {
	media *services.MediaService
}

func NewSharedHandler(media *services.MediaService) *SharedHandler {
	return &SharedHandler{media: media}
}

// List handles GET /api/shared/:shareSlug/media?offset=&limit=
func (h *SharedHandler) List(c *gin.Context) {
	offset, limit := pagingParams(c)
	page, err := h.media.ListShared(c.Request.Context(), c.Param("shareSlug"), c.GetHeader(passwordHeader), offset, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetOriginal handles GET /api/shared/:shareSlug/files/original/:id
func (h *SharedHandler) GetOriginal(c *gin.Context) {
	ctx := c.Request.Context()
	slug, password, id := c.Param("shareSlug"), c.GetHeader(passwordHeader), c.Param("id")

	info, err := h.media.StatOriginalShared(ctx, slug, password, id)
	if err != nil {
		respondError(c, err)
		return
	}
	stream, err := h.media.OpenOriginalShared(ctx, slug, password, id)
	if err != nil {
		respondError(c, err)
		return
	}
	serveBlob(c, info, stream, false)
}

// GetPreview handles GET /api/shared/:shareSlug/files/preview/:id
func (h *SharedHandler) GetPreview(c *gin.Context) {
	ctx := c.Request.Context()
	slug, password, id := c.Param("shareSlug"), c.GetHeader(passwordHeader), c.Param("id")

	info, err := h.media.StatThumbnailShared(ctx, slug, password, id)
	if err != nil {
		respondError(c, err)
		return
	}
	stream, err := h.media.OpenThumbnailShared(ctx, slug, password, id)
	if err != nil {
		respondError(c, err)
		return
	}
	serveBlob(c, info, stream, true)
}
