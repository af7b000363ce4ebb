package model

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// FileKind is the type of a file record.
type FileKind string

const (
	KindFolder FileKind = "folder"
	KindFile   FileKind = "file"
	KindImage  FileKind = "image"
)

// RootFolderID is the parent id of records living at the top level.
const RootFolderID uint = 0

// Valid reports whether k is one of the known kinds.
func (k FileKind) Valid() bool {
	switch k {
	case KindFolder, KindFile, KindImage:
		return true
	}
	return false
}

// ErrFolderWithContent is returned when a folder record carries a local path.
var ErrFolderWithContent = errors.New("folder records cannot reference content")

// FileRecord is the metadata of a folder, file or image.
// OwnerID is set once on creation and never updated.
// LocalPath is nil for folders and unique otherwise; it is assigned by the content store.
type FileRecord struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	OwnerID   uint      `json:"userId" gorm:"not null;index:idx_files_owner_parent,priority:1"`
	Name      string    `json:"name" gorm:"size:255;not null"`
	Kind      FileKind  `json:"kind" gorm:"type:varchar(16);not null"`
	ParentID  uint      `json:"parentId" gorm:"not null;default:0;index:idx_files_owner_parent,priority:2"`
	IsPublic  bool      `json:"isPublic" gorm:"not null;default:false"`
	LocalPath *string   `json:"-" gorm:"size:512;uniqueIndex"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// TableName keeps the historical collection name.
func (FileRecord) TableName() string {
	return "files"
}

// BeforeCreate rejects folders that reference content.
func (f *FileRecord) BeforeCreate(tx *gorm.DB) error {
	if f.Kind == KindFolder && f.LocalPath != nil {
		return ErrFolderWithContent
	}
	return nil
}

// IsFolder reports whether the record is a folder.
func (f *FileRecord) IsFolder() bool {
	return f.Kind == KindFolder
}

// FileView is the public projection of a file record. It never exposes the local path.
type FileView struct {
	ID       uint     `json:"id"`
	UserID   uint     `json:"userId"`
	Name     string   `json:"name"`
	Kind     FileKind `json:"kind"`
	IsPublic bool     `json:"isPublic"`
	ParentID uint     `json:"parentId"`
}

// View returns the public projection of f.
func (f *FileRecord) View() FileView {
	return FileView{
		ID:       f.ID,
		UserID:   f.OwnerID,
		Name:     f.Name,
		Kind:     f.Kind,
		IsPublic: f.IsPublic,
		ParentID: f.ParentID,
	}
}

// Views projects a slice of records.
func Views(records []FileRecord) []FileView {
	views := make([]FileView, 0, len(records))
	for i := range records {
		views = append(views, records[i].View())
	}
	return views
}
