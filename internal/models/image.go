package models

import "time"

// Image is an uploaded binary attached to a post. The bytes are opaque to
// the application.
type Image struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ContentType string    `gorm:"not null" json:"content_type"`
	Size        int       `json:"size"`
	Data        []byte    `gorm:"not null" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}
