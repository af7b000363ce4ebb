package router

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"

	"filemanager/internal/handler"
	"filemanager/internal/metrics"
	sessions "filemanager/internal/middleware"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	resolver sessions.SessionResolver,
	userHandler *handler.UserHandler,
	authHandler *handler.AuthHandler,
	fileHandler *handler.FileHandler,
	appHandler *handler.AppHandler,
) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(metrics.Middleware())

	e.Validator = NewValidator()

	requireSession := sessions.RequireSession(resolver)
	optionalSession := sessions.OptionalSession(resolver)

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/status", appHandler.Status)
	e.GET("/stats", appHandler.Stats)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// Public routes
	e.POST("/users", userHandler.CreateUser)
	e.GET("/connect", authHandler.Connect)

	// Session routes
	e.GET("/disconnect", authHandler.Disconnect, requireSession)
	e.GET("/users/me", userHandler.Me, requireSession)

	files := e.Group("/files")
	files.POST("", fileHandler.Upload, requireSession)
	files.GET("", fileHandler.List, requireSession)
	files.PUT("/:id/publish", fileHandler.Publish, requireSession)
	files.PUT("/:id/unpublish", fileHandler.Unpublish, requireSession)

	// Public files are readable without a session.
	files.GET("/:id", fileHandler.Get, optionalSession)
	files.GET("/:id/data", fileHandler.Data, optionalSession)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator returns a validator reporting fields by their JSON names.
func NewValidator() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &CustomValidator{validator: v}
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
