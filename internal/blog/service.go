// Package blog implements the reading and authoring rules of the blog: the
// visibility policy, the view counter, listings and search, the comment
// tree, bookmarks and likes, and the staff moderation operations.
package blog

import (
	"context"

	"quillpress/internal/metrics"
	"quillpress/internal/models"
)

// Page sizes of the public listings.
const (
	PageSize      = 9
	SmallPageSize = 6 // tag and author listings
	SideListSize  = 3 // index, related posts, top authors
	TopTagsSize   = 10
)

// Deps bundles the collaborators of a Service. Images and Metrics may be nil.
type Deps struct {
	Posts      PostStore
	Tags       TagStore
	Categories CategoryStore
	Comments   CommentStore
	Grants     GrantStore
	Authors    AuthorStore
	Images     ImageStore
	Metrics    *metrics.Metrics
}

// Service is the blog application layer. It is safe for concurrent use;
// all shared state lives in the stores.
type Service struct {
	posts      PostStore
	tags       TagStore
	categories CategoryStore
	comments   CommentStore
	grants     GrantStore
	authors    AuthorStore
	images     ImageStore
	metrics    *metrics.Metrics
	policy     Policy
}

// New creates a Service.
func New(d Deps) *Service {
	return &Service{
		posts:      d.Posts,
		tags:       d.Tags,
		categories: d.Categories,
		comments:   d.Comments,
		grants:     d.Grants,
		authors:    d.Authors,
		images:     d.Images,
		metrics:    d.Metrics,
		policy:     NewPolicy(d.Grants),
	}
}

// Policy returns the visibility policy the service enforces.
func (s *Service) Policy() Policy {
	return s.policy
}

// listPage loads one page of f. Pages start at 1; a page past the last one
// is ErrNotFound, except that an empty first page is allowed.
func (s *Service) listPage(ctx context.Context, f models.PostFilter, page, size int) (*models.PostPage, error) {
	if page < 1 {
		page = 1
	}
	f.Limit = size
	f.Offset = (page - 1) * size

	posts, total, err := s.posts.List(ctx, f)
	if err != nil {
		return nil, storeErr("list posts", err)
	}
	totalPages := (total + size - 1) / size
	if page > 1 && page > totalPages {
		return nil, ErrNotFound
	}
	return &models.PostPage{
		Posts:      posts,
		Page:       page,
		TotalPages: max(totalPages, 1),
		Total:      total,
	}, nil
}

// paginate slices an in-memory result the way listPage slices a query.
func paginate(posts []models.Post, page, size int) (*models.PostPage, error) {
	if page < 1 {
		page = 1
	}
	total := len(posts)
	totalPages := (total + size - 1) / size
	if page > 1 && page > totalPages {
		return nil, ErrNotFound
	}
	start := min((page-1)*size, total)
	end := min(start+size, total)
	return &models.PostPage{
		Posts:      posts[start:end],
		Page:       page,
		TotalPages: max(totalPages, 1),
		Total:      total,
	}, nil
}
