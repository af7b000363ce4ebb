package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "filemanager/internal/errors"
	"filemanager/internal/middleware"
	"filemanager/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{authService: authService, logger: logger}
}

// ConnectResponse carries a new session token.
type ConnectResponse struct {
	Token string `json:"token"`
}

// Connect godoc
// @Summary Open a session
// @Description Credentials are sent with HTTP Basic authentication.
// @Tags auth
// @Produce json
// @Security BasicAuth
// @Success 200 {object} ConnectResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /connect [get]
func (h *AuthHandler) Connect(c echo.Context) error {
	email, password, ok := c.Request().BasicAuth()
	if !ok {
		return respondError(c, h.logger, apperrors.ErrUnauthorized)
	}

	token, err := h.authService.Connect(context.WithoutCancel(c.Request().Context()), email, password)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, ConnectResponse{Token: token})
}

// Disconnect godoc
// @Summary Close the current session
// @Tags auth
// @Security TokenAuth
// @Success 204
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /disconnect [get]
func (h *AuthHandler) Disconnect(c echo.Context) error {
	if err := h.authService.Disconnect(context.WithoutCancel(c.Request().Context()), middleware.Token(c)); err != nil {
		return respondError(c, h.logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}
