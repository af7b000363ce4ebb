package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "filemanager/internal/errors"
	"filemanager/internal/middleware"
	"filemanager/internal/service"
)

// UserHandler bundles HTTP handlers.
type UserHandler struct {
	svc    service.UserService
	logger *slog.Logger
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService, logger *slog.Logger) *UserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserHandler{svc: svc, logger: logger}
}

// CreateUserRequest represents a user registration request.
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
}

// CreateUser godoc
// @Summary Create user
// @Tags users
// @Accept json
// @Produce json
// @Param user body CreateUserRequest true "User payload"
// @Success 201 {object} UserResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /users [post]
func (h *UserHandler) CreateUser(c echo.Context) error {
	var req CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(validationMessage(err))
	}

	user, err := h.svc.Register(context.WithoutCancel(c.Request().Context()), req.Email, req.Password)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, UserResponse{ID: user.ID, Email: user.Email})
}

// Me godoc
// @Summary Current user
// @Tags users
// @Produce json
// @Security TokenAuth
// @Success 200 {object} UserResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /users/me [get]
func (h *UserHandler) Me(c echo.Context) error {
	view, err := h.svc.GetUser(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		// A session pointing at a vanished user is no session at all.
		if errors.Is(err, apperrors.ErrNotFound) {
			err = apperrors.ErrUnauthorized
		}
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, UserResponse{ID: view.ID, Email: view.Email})
}
