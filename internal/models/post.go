package models

import (
	"time"

	"gorm.io/gorm"
)

// PostPageSize is the fixed page size for every post listing.
const PostPageSize = 10

// Post is a piece of authored content. Likes and Comments are kept inline as
// ordered ID lists.
type Post struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Content   string         `gorm:"type:text;not null" json:"content"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	User      *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ImageID   *uint          `json:"image_id,omitempty"`
	Likes     IDList         `gorm:"type:text;serializer:json" json:"likes"`
	Comments  IDList         `gorm:"type:text;serializer:json" json:"comments"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// PostQuery selects a page of posts. Posts are always returned newest first.
type PostQuery struct {
	// AuthorIDs restricts the page to these authors. Nil means every author;
	// an empty non-nil slice matches nothing.
	AuthorIDs []uint
	// BeforeID, when non-zero, returns only posts with a smaller ID.
	BeforeID uint
	Limit    int
}
