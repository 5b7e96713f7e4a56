package models

import (
	"time"
)

type User struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Username         string    `gorm:"uniqueIndex;not null" json:"username"`
	Email            string    `gorm:"uniqueIndex;not null" json:"email"`
	Password         string    `gorm:"not null" json:"-"` // Hash
	Avatar           string    `json:"avatar"`
	Bio              string    `gorm:"size:500" json:"bio"`
	IsRestricted     bool      `json:"is_restricted"`
	RestrictedReason string    `json:"restricted_reason"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	// No DeletedAt for hard delete
}
