package v1

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/graphcare/backend/internal/domain"
)

// Content types accepted for the uploaded patient document.
var allowedUploadTypes = map[string]bool{
	"application/json":         true,
	"text/json":                true,
	"application/octet-stream": true,
}

// InferFromUpload establishes a session from an uploaded patient document.
func (h *Handler) InferFromUpload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "请上传JSON文件（application/json）"})
	}
	ct := fh.Header.Get("Content-Type")
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if !allowedUploadTypes[ct] {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "请上传JSON文件（application/json）"})
	}

	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "无法读取上传文件"})
	}
	defer f.Close()
	raw, err := io.ReadAll(f)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "无法读取上传文件"})
	}

	resp, err := h.service.Intake(c.Request().Context(), raw)
	if err != nil {
		return h.errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Augment appends a clinical note to an existing session.
func (h *Handler) Augment(c echo.Context) error {
	var req domain.AugmentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.SessionID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "session_id is required"})
	}

	resp, err := h.service.Augment(c.Request().Context(), req.SessionID, req.Text)
	if err != nil {
		return h.errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}
