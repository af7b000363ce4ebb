package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "filemanager/internal/errors"
	"filemanager/internal/metrics"
	"filemanager/internal/model"
	"filemanager/internal/repository"
	"filemanager/internal/storage/fs"
)

const defaultContentType = "application/octet-stream"

// Validation messages returned to clients.
const (
	msgMissingName     = "Missing name"
	msgMissingType     = "Missing type"
	msgMissingData     = "Missing data"
	msgInvalidData     = "Invalid data"
	msgParentNotFound  = "Parent not found"
	msgParentNotFolder = "Parent is not a folder"
	msgFolderHasNoData = "A folder doesn't have content"
	msgInvalidSize     = "Invalid size"
)

// ContentStore persists file bytes.
type ContentStore interface {
	Write(data []byte) (string, error)
	Read(path string) ([]byte, error)
	Delete(path string) error
	ThumbnailPath(localPath string, width int) string
}

// UploadInput is an upload request as received from a client.
// ParentID is kept as text: "", "0" and absent all mean the root.
type UploadInput struct {
	Name     string
	Kind     string
	ParentID string
	IsPublic bool
	Data     string
}

// FileContent is the payload served for a file or one of its thumbnails.
type FileContent struct {
	Name        string
	ContentType string
	Data        []byte
}

// FileService manages file metadata and content.
type FileService interface {
	Upload(ctx context.Context, ownerID uint, in UploadInput) (*model.FileRecord, error)
	Get(ctx context.Context, requesterID, id uint) (*model.FileRecord, error)
	List(ctx context.Context, ownerID uint, parentID string, page int) ([]model.FileRecord, error)
	Publish(ctx context.Context, requesterID, id uint) (*model.FileRecord, error)
	Unpublish(ctx context.Context, requesterID, id uint) (*model.FileRecord, error)
	Data(ctx context.Context, requesterID, id uint, size string) (*FileContent, error)
	Count(ctx context.Context) (int64, error)
}

type fileService struct {
	repo       repository.FileRepository
	store      ContentStore
	thumbnails JobDispatcher
	widths     []int
	pageSize   int
	logger     *slog.Logger
}

// FileServiceConfig holds the tunables of the file service.
type FileServiceConfig struct {
	ThumbnailWidths []int
	PageSize        int
}

// NewFileService creates a new file service. thumbnails may be nil.
func NewFileService(repo repository.FileRepository, store ContentStore, thumbnails JobDispatcher, cfg FileServiceConfig, logger *slog.Logger) FileService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = repository.DefaultPageSize
	}
	return &fileService{
		repo:       repo,
		store:      store,
		thumbnails: thumbnails,
		widths:     slices.Clone(cfg.ThumbnailWidths),
		pageSize:   cfg.PageSize,
		logger:     logger,
	}
}

// parseParentID reads a parent id. Both "" and "0" mean the root.
func parseParentID(raw string) (uint, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.RootFolderID, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// Upload validates the request, stores content, then inserts metadata.
// Validation fails on the first problem in the order name, kind, data, parent.
func (s *fileService) Upload(ctx context.Context, ownerID uint, in UploadInput) (*model.FileRecord, error) {
	if in.Name == "" {
		return nil, apperrors.NewValidationError(msgMissingName)
	}
	kind := model.FileKind(in.Kind)
	if !kind.Valid() {
		return nil, apperrors.NewValidationError(msgMissingType)
	}
	if kind != model.KindFolder && in.Data == "" {
		return nil, apperrors.NewValidationError(msgMissingData)
	}

	parentID, err := s.resolveParent(ctx, ownerID, in.ParentID)
	if err != nil {
		return nil, err
	}

	record := &model.FileRecord{
		OwnerID:  ownerID,
		Name:     in.Name,
		Kind:     kind,
		ParentID: parentID,
		IsPublic: in.IsPublic,
	}

	if kind == model.KindFolder {
		if err := s.repo.Create(ctx, record); err != nil {
			return nil, fmt.Errorf("create folder: %w", err)
		}
		metrics.RecordUpload(string(kind))
		return record, nil
	}

	content, ok := decodeBase64(in.Data)
	if !ok {
		return nil, apperrors.NewValidationError(msgInvalidData)
	}

	localPath, err := s.store.Write(content)
	if err != nil {
		return nil, fmt.Errorf("store content: %w", err)
	}
	record.LocalPath = &localPath

	if err := s.repo.Create(ctx, record); err != nil {
		if derr := s.store.Delete(localPath); derr != nil {
			s.logger.Warn("failed to remove orphaned content", "path", localPath, "error", derr)
		}
		return nil, fmt.Errorf("create file: %w", err)
	}
	metrics.RecordUpload(string(kind))

	if kind == model.KindImage && s.thumbnails != nil {
		s.thumbnails.Dispatch(ctx, model.ThumbnailJob{
			UserID:      ownerID,
			FileID:      record.ID,
			RequestedAt: time.Now().UTC(),
		})
	}

	s.logger.Info("file uploaded", "file_id", record.ID, "user_id", ownerID, "kind", kind)
	return record, nil
}

// decodeBase64 accepts standard and URL-safe alphabets, padded or not.
func decodeBase64(data string) ([]byte, bool) {
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		if content, err := enc.DecodeString(data); err == nil {
			return content, true
		}
	}
	return nil, false
}

// resolveParent checks that raw names a folder the uploader can see.
func (s *fileService) resolveParent(ctx context.Context, ownerID uint, raw string) (uint, error) {
	parentID, ok := parseParentID(raw)
	if !ok {
		return 0, apperrors.NewValidationError(msgParentNotFound)
	}
	if parentID == model.RootFolderID {
		return model.RootFolderID, nil
	}

	parent, err := s.repo.FindByID(ctx, parentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperrors.NewValidationError(msgParentNotFound)
		}
		return 0, fmt.Errorf("find parent: %w", err)
	}
	if !Authorize(parent, ownerID, OpRead) {
		return 0, apperrors.NewValidationError(msgParentNotFound)
	}
	if !parent.IsFolder() {
		return 0, apperrors.NewValidationError(msgParentNotFolder)
	}
	return parent.ID, nil
}

// find loads a record and hides it when op is not allowed.
func (s *fileService) find(ctx context.Context, requesterID, id uint, op Operation) (*model.FileRecord, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find file: %w", err)
	}
	if !Authorize(record, requesterID, op) {
		return nil, apperrors.ErrNotFound
	}
	return record, nil
}

func (s *fileService) Get(ctx context.Context, requesterID, id uint) (*model.FileRecord, error) {
	return s.find(ctx, requesterID, id, OpRead)
}

// List returns one page of the owner's records under parentID.
// An unparseable parent id matches nothing.
func (s *fileService) List(ctx context.Context, ownerID uint, parentID string, page int) ([]model.FileRecord, error) {
	parent, ok := parseParentID(parentID)
	if !ok {
		return []model.FileRecord{}, nil
	}
	if page < 0 {
		page = 0
	}
	files, err := s.repo.FindByParent(ctx, ownerID, parent, page, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return files, nil
}

func (s *fileService) Publish(ctx context.Context, requesterID, id uint) (*model.FileRecord, error) {
	return s.setPublic(ctx, requesterID, id, true)
}

func (s *fileService) Unpublish(ctx context.Context, requesterID, id uint) (*model.FileRecord, error) {
	return s.setPublic(ctx, requesterID, id, false)
}

func (s *fileService) setPublic(ctx context.Context, requesterID, id uint, isPublic bool) (*model.FileRecord, error) {
	if requesterID == AnonymousID {
		return nil, apperrors.ErrUnauthorized
	}
	record, err := s.repo.SetPublic(ctx, id, requesterID, isPublic)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("update visibility: %w", err)
	}
	return record, nil
}

// Data returns the content of a file, or of its thumbnail when size is set.
func (s *fileService) Data(ctx context.Context, requesterID, id uint, size string) (*FileContent, error) {
	record, err := s.find(ctx, requesterID, id, OpRead)
	if err != nil {
		return nil, err
	}
	if record.IsFolder() {
		return nil, apperrors.NewValidationError(msgFolderHasNoData)
	}
	if record.LocalPath == nil {
		return nil, apperrors.ErrNotFound
	}

	path := *record.LocalPath
	thumbnail := false
	if size != "" {
		width, err := strconv.Atoi(size)
		if err != nil || !slices.Contains(s.widths, width) {
			return nil, apperrors.NewValidationError(msgInvalidSize)
		}
		path = s.store.ThumbnailPath(path, width)
		thumbnail = true
	}

	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("read content: %w", err)
	}

	return &FileContent{
		Name:        record.Name,
		ContentType: contentType(record.Name, data, thumbnail),
		Data:        data,
	}, nil
}

func (s *fileService) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

// contentType derives the media type from the file name.
// Thumbnails may be re-encoded, so their bytes are sniffed instead.
func contentType(name string, data []byte, thumbnail bool) string {
	if thumbnail {
		return http.DetectContentType(data)
	}
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return defaultContentType
}
