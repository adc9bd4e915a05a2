// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a member of the network together with their social edges.
type User struct {
	ID                     uint           `gorm:"primaryKey" json:"id"`
	Name                   string         `gorm:"not null" json:"name"`
	Username               string         `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash           string         `gorm:"not null" json:"-"`
	ProfilePicURL          string         `json:"profile_pic_url"`
	Friends                IDList         `gorm:"type:text;serializer:json" json:"friends"`
	FriendRequestsSent     IDList         `gorm:"type:text;serializer:json" json:"friend_requests_sent"`
	FriendRequestsReceived IDList         `gorm:"type:text;serializer:json" json:"friend_requests_received"`
	Posts                  IDList         `gorm:"type:text;serializer:json" json:"posts"`
	CreatedAt              time.Time      `json:"created_at"`
	UpdatedAt              time.Time      `json:"updated_at"`
	DeletedAt              gorm.DeletedAt `gorm:"index" json:"-"`
}

// UserSummary is the public projection used when embedding a user in
// another resource.
type UserSummary struct {
	ID            uint   `json:"id"`
	Name          string `json:"name"`
	Username      string `json:"username"`
	ProfilePicURL string `json:"profile_pic_url"`
}

// Summary returns the public projection of u.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:            u.ID,
		Name:          u.Name,
		Username:      u.Username,
		ProfilePicURL: u.ProfilePicURL,
	}
}
