// Package v1 provides the HTTP handlers for the decision-support API.
package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/graphcare/backend/internal/domain"
	"github.com/graphcare/backend/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the API routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/infer/upload", h.InferFromUpload)
	e.POST("/api/infer/augment", h.Augment)
	e.GET("/api/health", h.Health)
}

// Health returns a trivial liveness signal.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// errorJSON maps domain errors to status codes: validation 400, unknown
// session 404, everything upstream or storage-related 500.
func (h *Handler) errorJSON(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	var (
		ve *domain.ValidationError
		nf *domain.NotFoundError
	)
	switch {
	case errors.As(err, &ve):
		status = http.StatusBadRequest
	case errors.As(err, &nf):
		status = http.StatusNotFound
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}
