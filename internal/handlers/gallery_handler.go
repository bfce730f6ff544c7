package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/davidfesteban/lazygallery/internal/services"
)

const (
	ownerHeader    = "X-Owner-Id"
	passwordHeader = "X-Gallery-Password"
)

type GalleryHandler struct {
	galleries *services.GalleryService
}

func NewGalleryHandler(galleries *services.GalleryService) *GalleryHandler {
	return &GalleryHandler{galleries: galleries}
}

type createGalleryRequest struct {
	OwnerID  string `json:"ownerId"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Shared   bool   `json:"shared"`
}

type updateSharingRequest struct {
	Shared bool `json:"shared"`
}

// Create handles POST /api/galleries
func (h *GalleryHandler) Create(c *gin.Context) {
	var req createGalleryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	gallery, err := h.galleries.Create(c.Request.Context(), req.OwnerID, req.Name, req.Password, req.Shared)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.galleries.View(gallery))
}

// Get handles GET /api/galleries/:galleryId
func (h *GalleryHandler) Get(c *gin.Context) {
	gallery, err := h.galleries.RequireOwnerGallery(c.Request.Context(), c.Param("galleryId"), c.GetHeader(ownerHeader))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.galleries.View(gallery))
}

// UpdateSharing handles PATCH /api/galleries/:galleryId/sharing
func (h *GalleryHandler) UpdateSharing(c *gin.Context) {
	var req updateSharingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	gallery, err := h.galleries.UpdateSharing(c.Request.Context(), c.Param("galleryId"), c.GetHeader(ownerHeader), req.Shared)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.galleries.View(gallery))
}
