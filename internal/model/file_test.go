package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileKind_Valid(t *testing.T) {
	assert.True(t, KindFolder.Valid())
	assert.True(t, KindFile.Valid())
	assert.True(t, KindImage.Valid())
	assert.False(t, FileKind("video").Valid())
	assert.False(t, FileKind("").Valid())
}

func TestFileRecord_BeforeCreate(t *testing.T) {
	path := "/tmp/files_manager/abc"

	folder := &FileRecord{Kind: KindFolder, LocalPath: &path}
	assert.ErrorIs(t, folder.BeforeCreate(nil), ErrFolderWithContent)

	emptyFolder := &FileRecord{Kind: KindFolder}
	assert.NoError(t, emptyFolder.BeforeCreate(nil))

	file := &FileRecord{Kind: KindFile, LocalPath: &path}
	assert.NoError(t, file.BeforeCreate(nil))
}

func TestFileRecord_ViewHidesLocalPath(t *testing.T) {
	path := "/tmp/files_manager/abc"
	rec := &FileRecord{ID: 3, OwnerID: 9, Name: "pic.png", Kind: KindImage, ParentID: 2, IsPublic: true, LocalPath: &path}

	payload, err := json.Marshal(rec.View())
	require.NoError(t, err)

	assert.JSONEq(t, `{"id":3,"userId":9,"name":"pic.png","kind":"image","isPublic":true,"parentId":2}`, string(payload))
	assert.NotContains(t, string(payload), path)
}
