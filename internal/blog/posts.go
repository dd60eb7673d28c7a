package blog

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"quillpress/internal/markdown"
	"quillpress/internal/models"
	"quillpress/internal/slug"
	"quillpress/internal/storage"
	"quillpress/internal/validate"
)

// MaxImageSize is the largest accepted post image, in bytes.
const MaxImageSize = 5 << 20

// PostInput is the author-editable part of a post. Category and Tags are
// slugs of existing records.
type PostInput struct {
	Title    string            `json:"title" validate:"notblank,max=200"`
	Content  string            `json:"content" validate:"notblank"`
	Status   models.PostStatus `json:"status" validate:"omitempty,oneof=draft published"`
	Category string            `json:"category"`
	Tags     []string          `json:"tags"`
}

// resolved is a validated PostInput with its references looked up.
type resolved struct {
	category *models.CategoryRef
	tagIDs   []uuid.UUID
}

func (s *Service) resolve(ctx context.Context, in *PostInput, errs validate.Errors) (*resolved, error) {
	in.Title = strings.TrimSpace(in.Title)
	out := &resolved{}

	if in.Category != "" {
		c, err := s.categories.FindBySlug(ctx, in.Category)
		if err != nil {
			return nil, storeErr("find category", err)
		}
		if c == nil {
			errs.Add("category", "Select a valid choice. That choice is not one of the available choices.")
		} else {
			out.category = &models.CategoryRef{ID: c.ID, Title: c.Title, Slug: c.Slug}
		}
	}

	slugs := dedupe(in.Tags)
	if len(slugs) > 0 {
		tags, err := s.tags.FindBySlugs(ctx, slugs)
		if err != nil {
			return nil, storeErr("find tags", err)
		}
		if len(tags) != len(slugs) {
			errs.Add("tags", "Select a valid choice. One of the tags is not available.")
		}
		for _, t := range tags {
			out.tagIDs = append(out.tagIDs, t.ID)
		}
	}
	return out, nil
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" || seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}

// CreatePost stores a new post owned by v. The slug comes from the title,
// and v receives the post.change grant in the same transaction.
func (s *Service) CreatePost(ctx context.Context, v *Viewer, in PostInput) (*models.Post, error) {
	if v == nil {
		return nil, ErrUnauthenticated
	}
	errs := validate.Collect(in)
	ref, err := s.resolve(ctx, &in, errs)
	if err != nil {
		return nil, err
	}
	postSlug := slug.Generate(in.Title)
	if postSlug == "" && in.Title != "" {
		errs.Add("title", "Title must contain at least one letter or digit.")
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = models.PostStatusDraft
	}
	p := &models.Post{
		Title:    in.Title,
		Slug:     postSlug,
		Content:  in.Content,
		Status:   status,
		OwnerID:  v.ID,
		Category: ref.category,
	}
	if err := s.posts.Create(ctx, p, ref.tagIDs); err != nil {
		return nil, storeErr("create post", err)
	}
	return s.reload(ctx, p.ID)
}

// UpdatePost saves new content for a post v may modify. The slug is kept.
func (s *Service) UpdatePost(ctx context.Context, v *Viewer, postSlug string, in PostInput) (*models.Post, error) {
	p, err := s.editable(ctx, v, postSlug)
	if err != nil {
		return nil, err
	}
	errs := validate.Collect(in)
	ref, err := s.resolve(ctx, &in, errs)
	if err != nil {
		return nil, err
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	p.Title = in.Title
	p.Content = in.Content
	// An omitted status leaves the post as it is.
	if in.Status != "" {
		p.Status = in.Status
	}
	p.Category = ref.category
	if err := s.posts.Update(ctx, p, ref.tagIDs); err != nil {
		return nil, storeErr("update post", err)
	}
	return s.reload(ctx, p.ID)
}

// DeletePost hides a post v may modify. The row is kept.
func (s *Service) DeletePost(ctx context.Context, v *Viewer, postSlug string) error {
	p, err := s.editable(ctx, v, postSlug)
	if err != nil {
		return err
	}
	return storeErr("delete post", s.posts.SoftDelete(ctx, p.ID))
}

// Image is an uploaded file.
type Image struct {
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadPostImage replaces the image of a post v may modify. The previous
// object is removed from storage once the new key is saved.
func (s *Service) UploadPostImage(ctx context.Context, v *Viewer, postSlug string, img Image) (*models.Post, error) {
	p, err := s.editable(ctx, v, postSlug)
	if err != nil {
		return nil, err
	}
	if s.images == nil {
		return nil, ErrNoStorage
	}
	errs := validate.Errors{}
	if !strings.HasPrefix(img.ContentType, "image/") {
		errs.Add("image", "Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}
	if img.Size <= 0 || img.Size > MaxImageSize {
		errs.Add("image", "The image must be between 1 byte and 5 MB.")
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	key := storage.PostImageKey(p.ID, img.ContentType)
	if err := s.images.Put(ctx, key, img.ContentType, img.Body, img.Size); err != nil {
		return nil, storeErr("upload image", err)
	}
	if err := s.posts.SetImage(ctx, p.ID, &key); err != nil {
		if derr := s.images.Delete(ctx, key); derr != nil {
			slog.Warn("orphaned post image", "key", key, "error", derr)
		}
		return nil, storeErr("save image key", err)
	}
	if p.Image != nil {
		if err := s.images.Delete(ctx, *p.Image); err != nil {
			slog.Warn("failed to delete previous post image", "key", *p.Image, "error", err)
		}
	}
	return s.reload(ctx, p.ID)
}

// ImageURL returns the public URL of a stored image key.
func (s *Service) ImageURL(key *string) string {
	if key == nil || s.images == nil {
		return ""
	}
	return s.images.URL(*key)
}

// editable loads an active post and checks that v may modify it.
func (s *Service) editable(ctx context.Context, v *Viewer, postSlug string) (*models.Post, error) {
	if v == nil {
		return nil, ErrUnauthenticated
	}
	p, err := s.posts.FindBySlug(ctx, postSlug)
	if err != nil {
		return nil, storeErr("find post", err)
	}
	if p == nil || !p.IsActive {
		return nil, ErrNotFound
	}
	ok, err := s.policy.CanModify(ctx, v, p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	return p, nil
}

func (s *Service) reload(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	p, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr("find post", err)
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

// visible loads a post by slug and applies CanView.
func (s *Service) visible(ctx context.Context, v *Viewer, postSlug string) (*models.Post, error) {
	p, err := s.posts.FindBySlug(ctx, postSlug)
	if err != nil {
		return nil, storeErr("find post", err)
	}
	if p == nil || !s.policy.CanView(v, p) {
		return nil, ErrNotFound
	}
	return p, nil
}

// ViewPost returns a post v can see and counts the view. Every successful
// call adds exactly one view.
func (s *Service) ViewPost(ctx context.Context, v *Viewer, postSlug string) (*models.Post, error) {
	p, err := s.visible(ctx, v, postSlug)
	if err != nil {
		return nil, err
	}
	views, err := s.posts.IncrementViews(ctx, p.ID)
	if err != nil {
		return nil, storeErr("increment views", err)
	}
	p.Views = views
	s.metrics.PostViewed()
	return p, nil
}

// PostDetail is a viewed post together with what the reader can do with it.
type PostDetail struct {
	*models.Post
	HTML         string        `json:"content_html"`
	ImageURL     string        `json:"image_url,omitempty"`
	Comments     int           `json:"comment_count"`
	LikeCount    int           `json:"like_count"`
	Bookmarkable bool          `json:"bookmarkable"`
	Bookmarked   bool          `json:"bookmarked"`
	Liked        bool          `json:"liked"`
	CanModify    bool          `json:"can_modify"`
	Related      []models.Post `json:"related"`
}

// Detail views a post and gathers everything the post page shows.
func (s *Service) Detail(ctx context.Context, v *Viewer, postSlug string) (*PostDetail, error) {
	p, err := s.ViewPost(ctx, v, postSlug)
	if err != nil {
		return nil, err
	}
	html, err := markdown.ToHTML(p.Content)
	if err != nil {
		return nil, storeErr("render content", err)
	}
	d := &PostDetail{
		Post:         p,
		HTML:         html,
		ImageURL:     s.ImageURL(p.Image),
		Bookmarkable: p.IsPublished(),
	}
	if d.Comments, err = s.comments.CountByPost(ctx, p.ID, models.CommentApproved); err != nil {
		return nil, storeErr("count comments", err)
	}
	if d.LikeCount, err = s.posts.LikeCount(ctx, p.ID); err != nil {
		return nil, storeErr("count likes", err)
	}
	if v != nil {
		if d.Bookmarked, err = s.posts.IsBookmarked(ctx, p.ID, v.ID); err != nil {
			return nil, storeErr("check bookmark", err)
		}
		if d.Liked, err = s.posts.IsLiked(ctx, p.ID, v.ID); err != nil {
			return nil, storeErr("check like", err)
		}
		if d.CanModify, err = s.policy.CanModify(ctx, v, p); err != nil {
			return nil, err
		}
	}
	if d.Related, err = s.Related(ctx, p); err != nil {
		return nil, err
	}
	return d, nil
}

// interactable loads a post that can be bookmarked or liked: active and
// published, whoever owns it.
func (s *Service) interactable(ctx context.Context, v *Viewer, postSlug string) (*models.Post, error) {
	if v == nil {
		return nil, ErrUnauthenticated
	}
	p, err := s.posts.FindBySlug(ctx, postSlug)
	if err != nil {
		return nil, storeErr("find post", err)
	}
	if p == nil || !p.IsPubliclyVisible() {
		return nil, ErrNotFound
	}
	return p, nil
}

// ToggleBookmark adds or removes v's bookmark and reports the new state.
func (s *Service) ToggleBookmark(ctx context.Context, v *Viewer, postSlug string) (bool, error) {
	p, err := s.interactable(ctx, v, postSlug)
	if err != nil {
		return false, err
	}
	on, err := s.posts.ToggleBookmark(ctx, p.ID, v.ID)
	return on, storeErr("toggle bookmark", err)
}

// ToggleLike adds or removes v's like and reports the new state.
func (s *Service) ToggleLike(ctx context.Context, v *Viewer, postSlug string) (bool, error) {
	p, err := s.interactable(ctx, v, postSlug)
	if err != nil {
		return false, err
	}
	on, err := s.posts.ToggleLike(ctx, p.ID, v.ID)
	return on, storeErr("toggle like", err)
}
