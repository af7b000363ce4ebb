package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"filemanager/internal/cache"
	"filemanager/internal/config"
	"filemanager/internal/db"
	"filemanager/internal/logger"
	"filemanager/internal/queue"
	"filemanager/internal/repository"
	"filemanager/internal/storage/fs"
	"filemanager/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogJSON)

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		fatal(log, "database init", err)
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	thumbnailQueue := queue.New(cacheClient, cfg.ThumbnailQueue, cfg.JobMaxAttempts)
	welcomeQueue := queue.New(cacheClient, cfg.WelcomeQueue, cfg.JobMaxAttempts)

	// Jobs left in processing by a crashed worker are delivered again.
	for _, q := range []*queue.Queue{thumbnailQueue, welcomeQueue} {
		n, err := q.Recover(ctx)
		if err != nil {
			fatal(log, "recover "+q.Name(), err)
		}
		if n > 0 {
			log.Info("recovered in-flight jobs", "queue", q.Name(), "count", n)
		}
	}

	thumbnails := worker.NewThumbnailProcessor(repository.NewFileRepository(gormDB), store, cfg.ThumbnailWidths, log)
	welcomes := worker.NewWelcomeProcessor(repository.NewUserRepository(gormDB), log)

	pools := []*worker.Pool{
		worker.NewPool(thumbnailQueue, thumbnails.Handle, cfg.WorkerConcurrency, log),
		worker.NewPool(welcomeQueue, welcomes.Handle, cfg.WorkerConcurrency, log),
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range pools {
		g.Go(func() error { return p.Run(gctx) })
	}
	g.Go(func() error {
		log.Info("metrics listening", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		fatal(log, "worker stopped", err)
	}
	log.Info("worker stopped")
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, "error", err)
	os.Exit(1)
}
