// Package models defines the data structures that map to database tables
// and provides the core types used throughout the application.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User represents a blog account. Email is the login identifier.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Bio          string     `json:"bio"`
	Image        *string    `json:"-"` // object key; served as image_url
	PasswordHash string     `json:"-"` // Never serialize the hash
	IsActive     bool       `json:"is_active"`
	IsStaff      bool       `json:"is_staff"`
	TOTPSecret   *string    `json:"-"` // Nullable; set during 2FA setup
	TOTPEnabled  bool       `json:"totp_enabled"`
	DateJoined   time.Time  `json:"date_joined"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// FullName returns "first last", falling back to the username when both
// name parts are empty.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// Needs2FASetup returns true if the user has not completed 2FA enrollment.
// Only staff accounts are asked to enroll.
func (u *User) Needs2FASetup() bool {
	return u.IsStaff && !u.TOTPEnabled
}

// Author is the public projection of a user embedded in posts and comments.
type Author struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
}

// AuthorStat is an author ranked by number of published posts.
type AuthorStat struct {
	Author
	PostCount int `json:"post_count"`
}
