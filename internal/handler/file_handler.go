package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	apperrors "filemanager/internal/errors"
	"filemanager/internal/middleware"
	"filemanager/internal/model"
	"filemanager/internal/service"
)

// FileHandler serves file metadata and content.
type FileHandler struct {
	svc    service.FileService
	logger *slog.Logger
}

// NewFileHandler creates a new file handler.
func NewFileHandler(svc service.FileService, logger *slog.Logger) *FileHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileHandler{svc: svc, logger: logger}
}

// ParentRef is a parent folder id sent either as a JSON number or as a string.
type ParentRef string

// UnmarshalJSON accepts 12, "12" and null.
func (p *ParentRef) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*p = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*p = ParentRef(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*p = ParentRef(n.String())
	return nil
}

// UploadRequest represents a file or folder creation request.
// Type is the field name older clients send instead of Kind.
type UploadRequest struct {
	Name     string    `json:"name"`
	Kind     string    `json:"kind"`
	Type     string    `json:"type"`
	ParentID ParentRef `json:"parentId" swaggertype:"string"`
	IsPublic bool      `json:"isPublic"`
	Data     string    `json:"data"`
}

func (r UploadRequest) input() service.UploadInput {
	kind := r.Kind
	if kind == "" {
		kind = r.Type
	}
	return service.UploadInput{
		Name:     r.Name,
		Kind:     kind,
		ParentID: string(r.ParentID),
		IsPublic: r.IsPublic,
		Data:     r.Data,
	}
}

// Upload godoc
// @Summary Create a file, image or folder
// @Tags files
// @Accept json
// @Produce json
// @Security TokenAuth
// @Param file body UploadRequest true "Upload payload, data is base64"
// @Success 201 {object} model.FileView
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /files [post]
func (h *FileHandler) Upload(c echo.Context) error {
	var req UploadRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}

	rec, err := h.svc.Upload(context.WithoutCancel(c.Request().Context()), middleware.UserID(c), req.input())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, rec.View())
}

// Get godoc
// @Summary Get file metadata
// @Tags files
// @Produce json
// @Security TokenAuth
// @Param id path int true "File ID"
// @Success 200 {object} model.FileView
// @Failure 404 {object} errors.ErrorResponse
// @Router /files/{id} [get]
func (h *FileHandler) Get(c echo.Context) error {
	id, ok := fileID(c)
	if !ok {
		return respondError(c, h.logger, apperrors.ErrNotFound)
	}
	rec, err := h.svc.Get(c.Request().Context(), middleware.UserID(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, rec.View())
}

// List godoc
// @Summary List the caller's files in a folder
// @Tags files
// @Produce json
// @Security TokenAuth
// @Param parentId query string false "Parent folder ID, root when absent"
// @Param page query int false "Zero based page"
// @Success 200 {array} model.FileView
// @Failure 401 {object} errors.ErrorResponse
// @Router /files [get]
func (h *FileHandler) List(c echo.Context) error {
	page, err := strconv.Atoi(c.QueryParam("page"))
	if err != nil || page < 0 {
		page = 0
	}
	recs, err := h.svc.List(c.Request().Context(), middleware.UserID(c), c.QueryParam("parentId"), page)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, model.Views(recs))
}

// Publish godoc
// @Summary Make a file public
// @Tags files
// @Produce json
// @Security TokenAuth
// @Param id path int true "File ID"
// @Success 200 {object} model.FileView
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /files/{id}/publish [put]
func (h *FileHandler) Publish(c echo.Context) error {
	return h.setPublic(c, h.svc.Publish)
}

// Unpublish godoc
// @Summary Make a file private
// @Tags files
// @Produce json
// @Security TokenAuth
// @Param id path int true "File ID"
// @Success 200 {object} model.FileView
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /files/{id}/unpublish [put]
func (h *FileHandler) Unpublish(c echo.Context) error {
	return h.setPublic(c, h.svc.Unpublish)
}

func (h *FileHandler) setPublic(c echo.Context, apply func(context.Context, uint, uint) (*model.FileRecord, error)) error {
	id, ok := fileID(c)
	if !ok {
		return respondError(c, h.logger, apperrors.ErrNotFound)
	}
	rec, err := apply(context.WithoutCancel(c.Request().Context()), middleware.UserID(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, rec.View())
}

// Data godoc
// @Summary Download file content or a thumbnail
// @Tags files
// @Produce octet-stream
// @Security TokenAuth
// @Param id path int true "File ID"
// @Param size query int false "Thumbnail width (500, 250 or 100)"
// @Success 200 {file} binary
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /files/{id}/data [get]
func (h *FileHandler) Data(c echo.Context) error {
	id, ok := fileID(c)
	if !ok {
		return respondError(c, h.logger, apperrors.ErrNotFound)
	}
	content, err := h.svc.Data(c.Request().Context(), middleware.UserID(c), id, c.QueryParam("size"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.Blob(http.StatusOK, content.ContentType, content.Data)
}

// fileID parses the :id path parameter. Ids that cannot exist are reported as not ok.
func fileID(c echo.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
