package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"filemanager/internal/service"
)

// AppHandler reports service health and counters.
type AppHandler struct {
	svc    service.AppService
	logger *slog.Logger
}

// NewAppHandler creates a new app handler.
func NewAppHandler(svc service.AppService, logger *slog.Logger) *AppHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AppHandler{svc: svc, logger: logger}
}

// Status godoc
// @Summary Liveness of Redis and MySQL
// @Tags app
// @Produce json
// @Success 200 {object} service.Status
// @Failure 500 {object} service.Status
// @Router /status [get]
func (h *AppHandler) Status(c echo.Context) error {
	st := h.svc.Status(c.Request().Context())
	code := http.StatusOK
	if !st.Healthy() {
		code = http.StatusInternalServerError
		h.logger.Warn("backing store down", "redis", st.Redis, "db", st.DB)
	}
	return c.JSON(code, st)
}

// Stats godoc
// @Summary Number of users and files
// @Tags app
// @Produce json
// @Success 200 {object} service.Stats
// @Failure 500 {object} errors.ErrorResponse
// @Router /stats [get]
func (h *AppHandler) Stats(c echo.Context) error {
	stats, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, stats)
}
