// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// PostStatus represents the publishing state of a post.
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
)

// Valid reports whether s is a known status.
func (s PostStatus) Valid() bool {
	return s == PostStatusDraft || s == PostStatusPublished
}

// Post is a blog article. Slug is fixed at creation; IsActive=false is a
// soft delete.
type Post struct {
	ID        uuid.UUID    `json:"id"`
	Title     string       `json:"title"`
	Slug      string       `json:"slug"`
	Content   string       `json:"content"`
	Image     *string      `json:"image,omitempty"`
	Views     int64        `json:"views"`
	Status    PostStatus   `json:"status"`
	IsActive  bool         `json:"is_active"`
	OwnerID   uuid.UUID    `json:"-"`
	Owner     Author       `json:"owner"`
	Category  *CategoryRef `json:"category,omitempty"`
	Tags      []Tag        `json:"tags"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`

	// Virtual field populated by admin list queries.
	CommentCount int `json:"comment_count,omitempty"`
}

// IsPublished returns true if the post is in published status.
func (p *Post) IsPublished() bool {
	return p.Status == PostStatusPublished
}

// IsPubliclyVisible reports whether the post appears in public listings.
func (p *Post) IsPubliclyVisible() bool {
	return p.IsActive && p.IsPublished()
}

// PostFilter narrows a post listing. The zero value lists every visible
// post newest first.
type PostFilter struct {
	Query        string // case-insensitive match on title, author name, tag name
	CategorySlug string
	TagSlug      string
	Username     string
	BookmarkedBy *uuid.UUID
	OrderByViews bool
	Limit        int
	Offset       int
}

// PostPage is one page of a post listing.
type PostPage struct {
	Posts      []Post `json:"posts"`
	Page       int    `json:"page"`
	TotalPages int    `json:"total_pages"`
	Total      int    `json:"total"`
}

// PostAdminFilter narrows the back-office post list. Nil fields match all.
type PostAdminFilter struct {
	Status   *PostStatus
	IsActive *bool
}
