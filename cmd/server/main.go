package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"filemanager/docs"
	"filemanager/internal/auth"
	"filemanager/internal/cache"
	"filemanager/internal/config"
	"filemanager/internal/db"
	"filemanager/internal/handler"
	"filemanager/internal/logger"
	"filemanager/internal/model"
	"filemanager/internal/queue"
	"filemanager/internal/repository"
	"filemanager/internal/router"
	"filemanager/internal/service"
	"filemanager/internal/storage/fs"
)

const shutdownTimeout = 10 * time.Second

// @title Files Manager API
// @version 1.0
// @description Upload, organize and share files. Image thumbnails are generated in the background.
// @host localhost:8080
// @BasePath /
// @schemes http
// @securityDefinitions.basic BasicAuth
// @securityDefinitions.apikey TokenAuth
// @in header
// @name X-Token
func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogJSON)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestID())

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		fatal(log, "database init", err)
	}

	// Drop tables if RESET_DB environment variable is set
	if os.Getenv("RESET_DB") == "true" {
		resetTables(log, gormDB)
	}
	if err := db.Migrate(gormDB); err != nil {
		fatal(log, "migrate", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()

	store, err := fs.New(cfg.FolderPath)
	if err != nil {
		fatal(log, "content store init", err)
	}

	// Initialize queues and their producers
	thumbnailDispatcher := queue.NewDispatcher(
		queue.New(cacheClient, cfg.ThumbnailQueue, cfg.JobMaxAttempts), cfg.ThumbnailQueue, 0, log)
	welcomeDispatcher := queue.NewDispatcher(
		queue.New(cacheClient, cfg.WelcomeQueue, cfg.JobMaxAttempts), cfg.WelcomeQueue, 0, log)

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	fileRepo := repository.NewFileRepository(gormDB)

	// Initialize auth components
	sessionStore := auth.NewSessionStore(cacheClient, cfg.SessionTTL)
	hasher := auth.NewPasswordHasher(cfg.BcryptCost)

	// Initialize services
	authService := service.NewAuthService(userRepo, sessionStore, hasher, log)
	userService := service.NewUserService(userRepo, cacheClient, hasher, welcomeDispatcher, log)
	fileService := service.NewFileService(fileRepo, store, thumbnailDispatcher, service.FileServiceConfig{
		ThumbnailWidths: cfg.ThumbnailWidths,
		PageSize:        cfg.PageSize,
	}, log)
	appService := service.NewAppService(
		cacheClient.Ping,
		func(ctx context.Context) error { return db.Ping(ctx, gormDB) },
		userService,
		fileService,
	)

	// Register routes
	router.Register(
		e,
		authService,
		handler.NewUserHandler(userService, log),
		handler.NewAuthHandler(authService, log),
		handler.NewFileHandler(fileService, log),
		handler.NewAppHandler(appService, log),
	)

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = strings.TrimPrefix(strings.TrimPrefix(cfg.SwaggerHost, "http://"), "https://")
	}
	log.Info("swagger documentation available", "url", swaggerURL(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		addr := ":" + cfg.ServerPort
		log.Info("server listening", "addr", addr, "content_root", store.Root())
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(log, "server start", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}
	// Jobs still buffered in memory are flushed once no request can add more.
	for _, d := range []*queue.Dispatcher{thumbnailDispatcher, welcomeDispatcher} {
		if err := d.Close(shutdownCtx); err != nil {
			log.Error("dispatcher close", "error", err)
		}
	}
}

func resetTables(log *slog.Logger, gormDB *gorm.DB) {
	log.Warn("RESET_DB=true detected, dropping all tables")
	for _, table := range []interface{}{&model.FileRecord{}, &model.User{}} {
		if err := gormDB.Migrator().DropTable(table); err != nil {
			log.Warn("failed to drop table (may not exist)", "error", err)
		}
	}
}

func swaggerURL(cfg *config.Config) string {
	host := cfg.SwaggerHost
	if host == "" {
		host = "localhost:" + cfg.ServerPort
	}
	// SwaggerHost may already include scheme (http:// or https://)
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return host + "/swagger/index.html"
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, "error", err)
	os.Exit(1)
}
