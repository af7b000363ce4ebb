package repository

import (
	"context"

	"gorm.io/gorm"

	"filemanager/internal/model"
)

// DefaultPageSize is the number of records returned per page.
const DefaultPageSize = 20

// FileRepository defines file metadata persistence operations.
type FileRepository interface {
	Create(ctx context.Context, file *model.FileRecord) error
	FindByID(ctx context.Context, id uint) (*model.FileRecord, error)
	// FindByParent returns one zero-based page of the owner's records under parentID,
	// newest first. A page past the end is an empty slice.
	FindByParent(ctx context.Context, ownerID, parentID uint, page, pageSize int) ([]model.FileRecord, error)
	// SetPublic updates visibility of the record matching both id and ownerID and
	// returns the updated record, or gorm.ErrRecordNotFound.
	SetPublic(ctx context.Context, id, ownerID uint, isPublic bool) (*model.FileRecord, error)
	Count(ctx context.Context) (int64, error)
}

type fileRepository struct {
	db *gorm.DB
}

// NewFileRepository creates a new file repository.
func NewFileRepository(db *gorm.DB) FileRepository {
	return &fileRepository{db: db}
}

// Create inserts a new file record and fills its ID.
func (r *fileRepository) Create(ctx context.Context, file *model.FileRecord) error {
	return r.db.WithContext(ctx).Create(file).Error
}

// FindByID finds a file record by ID.
func (r *fileRepository) FindByID(ctx context.Context, id uint) (*model.FileRecord, error) {
	var file model.FileRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&file).Error; err != nil {
		return nil, err
	}
	return &file, nil
}

// FindByParent lists a page of records for an owner and parent folder.
func (r *fileRepository) FindByParent(ctx context.Context, ownerID, parentID uint, page, pageSize int) ([]model.FileRecord, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if page < 0 {
		page = 0
	}

	files := make([]model.FileRecord, 0)
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND parent_id = ?", ownerID, parentID).
		Order("id DESC").
		Offset(page * pageSize).
		Limit(pageSize).
		Find(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

// SetPublic is a single conditional update keyed by id and owner.
func (r *fileRepository) SetPublic(ctx context.Context, id, ownerID uint, isPublic bool) (*model.FileRecord, error) {
	if err := r.db.WithContext(ctx).Model(&model.FileRecord{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Update("is_public", isPublic).Error; err != nil {
		return nil, err
	}

	// RowsAffected is zero for a no-op update on MySQL, so existence is checked by reading back.
	var file model.FileRecord
	if err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&file).Error; err != nil {
		return nil, err
	}
	return &file, nil
}

// Count returns the total number of file records.
func (r *fileRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.FileRecord{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
