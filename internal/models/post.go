package models

import (
	"time"
)

type Post struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Pid              string    `gorm:"uniqueIndex;size:8;not null" json:"pid"`
	UserID           uint      `gorm:"not null;index" json:"user_id"`
	User             User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Title            string    `gorm:"not null" json:"title"`
	Content          string    `gorm:"type:text" json:"content"` // Markdown source
	CoverImage       string    `json:"cover_image"`
	Tags             []string  `gorm:"serializer:json;type:text" json:"tags"`
	IsRestricted     bool      `gorm:"index" json:"is_restricted"`
	RestrictedReason string    `json:"restricted_reason"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	// Filled at query time, not stored
	LikeCount    int64 `gorm:"-" json:"like_count"`
	CommentCount int64 `gorm:"-" json:"comment_count"`
}
