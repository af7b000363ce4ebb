// Package worker consumes background jobs: thumbnail generation and welcome messages.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"filemanager/internal/metrics"
	"filemanager/internal/model"
	"filemanager/internal/queue"
	"filemanager/internal/repository"
	"filemanager/internal/storage/fs"
	"filemanager/internal/thumbnail"
)

// Stage names a step of a thumbnail job.
type Stage string

const (
	StageReceived Stage = "received"
	StageFetching Stage = "fetching-source"
	StageGenerate Stage = "generating"
	StagePersist  Stage = "persisting"
	StageDone     Stage = "done"
	StageFailed   Stage = "failed"
)

// ContentStore is the part of the content store the worker needs.
type ContentStore interface {
	Read(path string) ([]byte, error)
	WriteAt(path string, data []byte) error
	Delete(path string) error
	ThumbnailPath(localPath string, width int) string
}

// ThumbnailProcessor derives fixed-width thumbnails from uploaded images.
type ThumbnailProcessor struct {
	files  repository.FileRepository
	store  ContentStore
	widths []int
	logger *slog.Logger
}

// NewThumbnailProcessor creates a processor writing one thumbnail per width.
func NewThumbnailProcessor(files repository.FileRepository, store ContentStore, widths []int, logger *slog.Logger) *ThumbnailProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ThumbnailProcessor{
		files:  files,
		store:  store,
		widths: slices.Clone(widths),
		logger: logger,
	}
}

// Handle decodes a delivery and processes it.
func (p *ThumbnailProcessor) Handle(ctx context.Context, d *queue.Delivery) error {
	var job model.ThumbnailJob
	if err := d.Decode(&job); err != nil {
		return err
	}
	return p.Process(ctx, job)
}

// Process runs one attempt of a thumbnail job. Either every width is persisted or none is.
// Errors that cannot succeed on retry are marked permanent.
func (p *ThumbnailProcessor) Process(ctx context.Context, job model.ThumbnailJob) error {
	log := p.logger.With("file_id", job.FileID, "user_id", job.UserID)
	log.Debug("thumbnail job", "stage", StageReceived)

	if job.FileID == 0 {
		return p.fail(log, StageReceived, queue.Permanent(errors.New("Missing fileId")))
	}
	if job.UserID == 0 {
		return p.fail(log, StageReceived, queue.Permanent(errors.New("Missing userId")))
	}

	log.Debug("thumbnail job", "stage", StageFetching)
	source, localPath, err := p.fetch(ctx, job)
	if err != nil {
		return p.fail(log, StageFetching, err)
	}

	log.Debug("thumbnail job", "stage", StageGenerate, "widths", p.widths)
	artifacts, err := p.generate(ctx, source)
	if err != nil {
		return p.fail(log, StageGenerate, err)
	}

	log.Debug("thumbnail job", "stage", StagePersist)
	if err := p.persist(log, localPath, artifacts); err != nil {
		return p.fail(log, StagePersist, err)
	}
	for _, width := range p.widths {
		metrics.RecordThumbnail(width)
	}

	log.Info("thumbnails generated", "stage", StageDone, "count", len(p.widths))
	return nil
}

func (p *ThumbnailProcessor) fetch(ctx context.Context, job model.ThumbnailJob) (*thumbnail.Source, string, error) {
	record, err := p.files.FindByID(ctx, job.FileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", queue.Permanent(errors.New("File not found"))
		}
		return nil, "", fmt.Errorf("find file: %w", err)
	}
	if record.OwnerID != job.UserID {
		return nil, "", queue.Permanent(errors.New("File not found"))
	}
	if record.Kind != model.KindImage || record.LocalPath == nil {
		return nil, "", queue.Permanent(fmt.Errorf("file %d is not an image", record.ID))
	}

	data, err := p.store.Read(*record.LocalPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotFound) {
			return nil, "", queue.Permanent(fmt.Errorf("source content: %w", err))
		}
		return nil, "", fmt.Errorf("source content: %w", err)
	}

	source, err := thumbnail.Decode(data)
	if err != nil {
		return nil, "", queue.Permanent(err)
	}
	return source, *record.LocalPath, nil
}

// generate resizes every width concurrently; the result is ordered like p.widths.
func (p *ThumbnailProcessor) generate(ctx context.Context, source *thumbnail.Source) ([][]byte, error) {
	artifacts := make([][]byte, len(p.widths))
	g, gctx := errgroup.WithContext(ctx)
	for i, width := range p.widths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := source.Resize(width)
			if err != nil {
				return fmt.Errorf("resize to %dpx: %w", width, err)
			}
			artifacts[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return artifacts, nil
}

// persist writes every artifact. On failure the artifacts already written are removed
// so readers never see a partial set.
func (p *ThumbnailProcessor) persist(log *slog.Logger, localPath string, artifacts [][]byte) error {
	written := make([]string, 0, len(p.widths))
	for i, width := range p.widths {
		path := p.store.ThumbnailPath(localPath, width)
		if err := p.store.WriteAt(path, artifacts[i]); err != nil {
			for _, done := range written {
				if derr := p.store.Delete(done); derr != nil {
					log.Warn("failed to remove partial thumbnail", "path", done, "error", derr)
				}
			}
			return fmt.Errorf("write %dpx thumbnail: %w", width, err)
		}
		written = append(written, path)
	}
	return nil
}

func (p *ThumbnailProcessor) fail(log *slog.Logger, stage Stage, err error) error {
	log.Warn("thumbnail job failed", "stage", StageFailed, "failed_stage", stage, "permanent", queue.IsPermanent(err), "error", err)
	return err
}
