package blog

import (
	"context"
	"io"

	"github.com/google/uuid"

	"quillpress/internal/models"
)

// PostStore is the persistence the service needs for posts. Lookups return
// (nil, nil) when nothing matches; writes wrap store.ErrNotFound.
type PostStore interface {
	FindBySlug(ctx context.Context, slug string) (*models.Post, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	List(ctx context.Context, f models.PostFilter) ([]models.Post, int, error)
	ListGranted(ctx context.Context, userID uuid.UUID, capability models.Capability) ([]models.Post, error)
	Related(ctx context.Context, ownerID, excludeID uuid.UUID, limit int) ([]models.Post, error)
	AdminList(ctx context.Context, f models.PostAdminFilter) ([]models.Post, error)
	Create(ctx context.Context, p *models.Post, tagIDs []uuid.UUID) error
	Update(ctx context.Context, p *models.Post, tagIDs []uuid.UUID) error
	SetImage(ctx context.Context, id uuid.UUID, key *string) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	SetModeration(ctx context.Context, id uuid.UUID, status *models.PostStatus, isActive *bool) error
	IncrementViews(ctx context.Context, id uuid.UUID) (int64, error)
	ToggleBookmark(ctx context.Context, postID, userID uuid.UUID) (bool, error)
	ToggleLike(ctx context.Context, postID, userID uuid.UUID) (bool, error)
	IsBookmarked(ctx context.Context, postID, userID uuid.UUID) (bool, error)
	IsLiked(ctx context.Context, postID, userID uuid.UUID) (bool, error)
	LikeCount(ctx context.Context, postID uuid.UUID) (int, error)
}

type TagStore interface {
	List(ctx context.Context) ([]models.Tag, error)
	FindBySlugs(ctx context.Context, slugs []string) ([]models.Tag, error)
	FindBySlug(ctx context.Context, slug string) (*models.Tag, error)
	Create(ctx context.Context, t *models.Tag) error
	Rename(ctx context.Context, id uuid.UUID, name string) (*models.Tag, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Top(ctx context.Context, limit int) ([]models.Tag, error)
}

type CategoryStore interface {
	List(ctx context.Context) ([]models.Category, error)
	FindBySlug(ctx context.Context, slug string) (*models.Category, error)
	Create(ctx context.Context, c *models.Category) error
	Update(ctx context.Context, c *models.Category) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type CommentStore interface {
	Create(ctx context.Context, c *models.Comment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Comment, error)
	ListByPost(ctx context.Context, postID uuid.UUID, status *models.CommentStatus) ([]models.Comment, error)
	CountByPost(ctx context.Context, postID uuid.UUID, status models.CommentStatus) (int, error)
	AdminList(ctx context.Context, status *models.CommentStatus) ([]models.Comment, error)
	SetStatus(ctx context.Context, id uuid.UUID, status models.CommentStatus) error
}

type GrantStore interface {
	Has(ctx context.Context, userID uuid.UUID, capability models.Capability, objectID uuid.UUID) (bool, error)
	Grant(ctx context.Context, userID uuid.UUID, capability models.Capability, objectID uuid.UUID) error
	Revoke(ctx context.Context, userID uuid.UUID, capability models.Capability, objectID uuid.UUID) error
	ListForObject(ctx context.Context, capability models.Capability, objectID uuid.UUID) ([]models.Grant, error)
}

// AuthorStore resolves post owners.
type AuthorStore interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	TopAuthors(ctx context.Context, limit int) ([]models.AuthorStat, error)
}

// ImageStore keeps uploaded post images. *storage.Client implements it.
type ImageStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}
