package blog

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"quillpress/internal/models"
	"quillpress/internal/slug"
	"quillpress/internal/validate"
)

// The operations in this file are for staff only. Callers check that
// before invoking them.

// AdminPosts lists posts of any status and activity, with comment counts.
func (s *Service) AdminPosts(ctx context.Context, f models.PostAdminFilter) ([]models.Post, error) {
	posts, err := s.posts.AdminList(ctx, f)
	if err != nil {
		return nil, storeErr("admin list posts", err)
	}
	return posts, nil
}

// ModeratePost changes the status and/or activity of a post. Nil fields
// are left alone.
func (s *Service) ModeratePost(ctx context.Context, id uuid.UUID, status *models.PostStatus, isActive *bool) (*models.Post, error) {
	if status != nil && !status.Valid() {
		return nil, validate.Errors{"status": "Select one of: draft published."}
	}
	if err := s.posts.SetModeration(ctx, id, status, isActive); err != nil {
		return nil, storeErr("moderate post", err)
	}
	return s.reload(ctx, id)
}

// GrantPost lets the user change the post, in addition to anyone already
// holding the grant.
func (s *Service) GrantPost(ctx context.Context, postID, userID uuid.UUID) error {
	if _, err := s.reload(ctx, postID); err != nil {
		return err
	}
	u, err := s.authors.FindByID(ctx, userID)
	if err != nil {
		return storeErr("find user", err)
	}
	if u == nil {
		return ErrNotFound
	}
	return storeErr("grant post", s.grants.Grant(ctx, userID, models.CapChangePost, postID))
}

// RevokePost removes the user's right to change the post.
func (s *Service) RevokePost(ctx context.Context, postID, userID uuid.UUID) error {
	return storeErr("revoke post", s.grants.Revoke(ctx, userID, models.CapChangePost, postID))
}

// PostGrants lists who may change the post.
func (s *Service) PostGrants(ctx context.Context, postID uuid.UUID) ([]models.Grant, error) {
	grants, err := s.grants.ListForObject(ctx, models.CapChangePost, postID)
	if err != nil {
		return nil, storeErr("list grants", err)
	}
	return grants, nil
}

// AdminComments lists comments across posts, newest first. A nil status
// lists all of them.
func (s *Service) AdminComments(ctx context.Context, status *models.CommentStatus) ([]models.Comment, error) {
	comments, err := s.comments.AdminList(ctx, status)
	if err != nil {
		return nil, storeErr("admin list comments", err)
	}
	return comments, nil
}

// SetCommentStatus approves, rejects or re-queues a comment.
func (s *Service) SetCommentStatus(ctx context.Context, id uuid.UUID, status models.CommentStatus) (*models.Comment, error) {
	if !status.Valid() {
		return nil, validate.Errors{"status": "Select one of: pending approved not_approved."}
	}
	if err := s.comments.SetStatus(ctx, id, status); err != nil {
		return nil, storeErr("set comment status", err)
	}
	c, err := s.comments.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr("find comment", err)
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}

// CategoryInput creates or edits a category. Slug defaults to one derived
// from the title and cannot change afterwards.
type CategoryInput struct {
	Title       string `json:"title" validate:"notblank,max=200"`
	Slug        string `json:"slug" validate:"max=200"`
	Description string `json:"description"`
}

func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	errs := validate.Collect(in)
	catSlug := slug.Generate(in.Slug)
	if catSlug == "" {
		catSlug = slug.Generate(in.Title)
	}
	if catSlug == "" {
		errs.Add("slug", "Enter a valid slug consisting of letters, numbers, underscores or hyphens.")
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	c := &models.Category{
		Title:       strings.TrimSpace(in.Title),
		Slug:        catSlug,
		Description: in.Description,
	}
	if err := s.categories.Create(ctx, c); err != nil {
		return nil, storeErr("create category", err)
	}
	return c, nil
}

func (s *Service) UpdateCategory(ctx context.Context, catSlug string, in CategoryInput) (*models.Category, error) {
	c, err := s.findCategory(ctx, catSlug)
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	c.Title = strings.TrimSpace(in.Title)
	c.Description = in.Description
	if err := s.categories.Update(ctx, c); err != nil {
		return nil, storeErr("update category", err)
	}
	return c, nil
}

// DeleteCategory removes a category. Its posts stay, uncategorized.
func (s *Service) DeleteCategory(ctx context.Context, catSlug string) error {
	c, err := s.findCategory(ctx, catSlug)
	if err != nil {
		return err
	}
	return storeErr("delete category", s.categories.Delete(ctx, c.ID))
}

func (s *Service) findCategory(ctx context.Context, catSlug string) (*models.Category, error) {
	c, err := s.categories.FindBySlug(ctx, catSlug)
	if err != nil {
		return nil, storeErr("find category", err)
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}

// TagInput names a tag.
type TagInput struct {
	Name string `json:"name" validate:"notblank,max=100"`
}

// CreateTag stores a tag whose slug is derived from its name.
func (s *Service) CreateTag(ctx context.Context, in TagInput) (*models.Tag, error) {
	errs := validate.Collect(in)
	tagSlug := slug.Generate(in.Name)
	if tagSlug == "" && strings.TrimSpace(in.Name) != "" {
		errs.Add("name", "Name must contain at least one letter or digit.")
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	t := &models.Tag{Name: strings.TrimSpace(in.Name), Slug: tagSlug}
	if err := s.tags.Create(ctx, t); err != nil {
		return nil, storeErr("create tag", err)
	}
	return t, nil
}

// RenameTag changes the name of a tag. The slug keeps its original value.
func (s *Service) RenameTag(ctx context.Context, tagSlug string, in TagInput) (*models.Tag, error) {
	t, err := s.findTag(ctx, tagSlug)
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	renamed, err := s.tags.Rename(ctx, t.ID, strings.TrimSpace(in.Name))
	if err != nil {
		return nil, storeErr("rename tag", err)
	}
	return renamed, nil
}

func (s *Service) DeleteTag(ctx context.Context, tagSlug string) error {
	t, err := s.findTag(ctx, tagSlug)
	if err != nil {
		return err
	}
	return storeErr("delete tag", s.tags.Delete(ctx, t.ID))
}

func (s *Service) findTag(ctx context.Context, tagSlug string) (*models.Tag, error) {
	t, err := s.tags.FindBySlug(ctx, tagSlug)
	if err != nil {
		return nil, storeErr("find tag", err)
	}
	if t == nil {
		return nil, ErrNotFound
	}
	return t, nil
}
