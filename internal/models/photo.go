package models

import "time"

// PhotoKindCover marks a photo uploaded as a profile cover.
const PhotoKindCover = "cover"

// Photo is an uploaded image stored under the media directory.
type Photo struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Hash      string    `gorm:"uniqueIndex;size:64;not null" json:"hash"`
	Kind      string    `gorm:"size:32;not null;index" json:"kind"`
	JPEGPath  string    `gorm:"size:512;not null" json:"-"`
	WebPPath  string    `gorm:"size:512;not null" json:"-"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}
