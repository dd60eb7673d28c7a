package models

import (
	"time"

	"github.com/google/uuid"
)

// CommentStatus is the moderation state of a comment.
type CommentStatus string

const (
	CommentPending     CommentStatus = "pending"
	CommentApproved    CommentStatus = "approved"
	CommentNotApproved CommentStatus = "not_approved"
)

// Valid reports whether s is a known moderation state.
func (s CommentStatus) Valid() bool {
	switch s {
	case CommentPending, CommentApproved, CommentNotApproved:
		return true
	}
	return false
}

// Comment belongs to one post and optionally replies to another comment of
// the same post.
type Comment struct {
	ID        uuid.UUID     `json:"id"`
	Content   string        `json:"content"`
	Status    CommentStatus `json:"status"`
	PostID    uuid.UUID     `json:"post_id"`
	AuthorID  uuid.UUID     `json:"-"`
	Author    Author        `json:"author"`
	ParentID  *uuid.UUID    `json:"parent_id,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
