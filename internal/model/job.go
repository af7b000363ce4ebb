package model

import "time"

// ThumbnailJob asks the worker to derive thumbnails for an image record.
type ThumbnailJob struct {
	UserID      uint      `json:"userId"`
	FileID      uint      `json:"fileId"`
	RequestedAt time.Time `json:"requestedAt"`
}

// WelcomeJob is dispatched once per newly registered user.
type WelcomeJob struct {
	UserID uint `json:"userId"`
}
