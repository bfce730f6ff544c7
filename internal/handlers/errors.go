package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/davidfesteban/lazygallery/internal/models"
	"github.com/davidfesteban/lazygallery/internal/services"
)

// respondError maps the service taxonomy onto HTTP. Authorization failures
// and unknown resources share one body so the API never acts as an
// existence oracle; the invalid-argument case keeps the same body code and
// only differs in status.
func respondError(c *gin.Context, err error) {
	var storageErr *services.StorageError

	switch {
	case errors.Is(err, services.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "not_found", Message: err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "not_found", Message: err.Error()})
	case errors.Is(err, services.ErrObjectNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "not_found", Message: "Object not found"})
	case errors.As(err, &storageErr):
		c.JSON(http.StatusBadGateway, models.ErrorResponse{Error: "storage_error", Message: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "error", Message: err.Error()})
	}
}
