package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"filemanager/internal/model"
)

func TestAuthorize(t *testing.T) {
	private := &model.FileRecord{ID: 1, OwnerID: 10, IsPublic: false}
	public := &model.FileRecord{ID: 2, OwnerID: 10, IsPublic: true}

	tests := []struct {
		name      string
		record    *model.FileRecord
		requester uint
		op        Operation
		want      bool
	}{
		{"owner reads private", private, 10, OpRead, true},
		{"owner writes private", private, 10, OpWrite, true},
		{"stranger reads private", private, 11, OpRead, false},
		{"anonymous reads private", private, AnonymousID, OpRead, false},
		{"stranger reads public", public, 11, OpRead, true},
		{"anonymous reads public", public, AnonymousID, OpRead, true},
		{"stranger writes public", public, 11, OpWrite, false},
		{"anonymous writes public", public, AnonymousID, OpWrite, false},
		{"nil record", nil, 10, OpRead, false},
		{"unknown operation", private, 10, Operation(99), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Authorize(tt.record, tt.requester, tt.op))
		})
	}
}

func TestAuthorize_AnonymousNeverOwnsOrphanRecord(t *testing.T) {
	orphan := &model.FileRecord{ID: 3, OwnerID: 0}
	assert.False(t, Authorize(orphan, AnonymousID, OpWrite))
	assert.False(t, Authorize(orphan, AnonymousID, OpRead))
}
