package service

import "filemanager/internal/model"

// Operation is the kind of access requested on a file record.
type Operation int

const (
	OpRead Operation = iota
	OpWrite
)

// AnonymousID is the requester id of unauthenticated requests.
const AnonymousID uint = 0

// Authorize decides whether requesterID may perform op on record.
// Only the owner may write; anyone may read a public record.
func Authorize(record *model.FileRecord, requesterID uint, op Operation) bool {
	if record == nil {
		return false
	}
	isOwner := requesterID != AnonymousID && record.OwnerID == requesterID
	switch op {
	case OpRead:
		return record.IsPublic || isOwner
	case OpWrite:
		return isOwner
	default:
		return false
	}
}
