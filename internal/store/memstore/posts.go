package memstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"quillpress/internal/models"
	"quillpress/internal/store"
)

// PostStore is the in-memory counterpart of store.PostStore.
type PostStore struct{ d *DB }

func (s *PostStore) find(match func(*models.Post) bool) *models.Post {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, p := range s.d.posts {
		if match(p) {
			h := s.d.hydrate(p)
			return &h
		}
	}
	return nil
}

func (s *PostStore) FindBySlug(_ context.Context, slug string) (*models.Post, error) {
	return s.find(func(p *models.Post) bool { return p.Slug == slug }), nil
}

func (s *PostStore) FindByID(_ context.Context, id uuid.UUID) (*models.Post, error) {
	return s.find(func(p *models.Post) bool { return p.ID == id }), nil
}

// matches applies the same predicates as the SQL listing. Callers hold mu.
func (s *PostStore) matches(p *models.Post, f models.PostFilter) bool {
	if !visible(p) {
		return false
	}
	owner := s.d.users[p.OwnerID]
	if q := strings.TrimSpace(f.Query); q != "" {
		hit := containsFold(p.Title, q)
		if owner != nil {
			hit = hit || containsFold(owner.FirstName, q) || containsFold(owner.LastName, q)
		}
		for _, id := range s.d.postTags[p.ID] {
			if t, ok := s.d.tags[id]; ok && containsFold(t.Name, q) {
				hit = true
			}
		}
		if !hit {
			return false
		}
	}
	if f.CategorySlug != "" {
		if p.Category == nil {
			return false
		}
		c, ok := s.d.categories[p.Category.ID]
		if !ok || c.Slug != f.CategorySlug {
			return false
		}
	}
	if f.TagSlug != "" {
		found := false
		for _, id := range s.d.postTags[p.ID] {
			if t, ok := s.d.tags[id]; ok && t.Slug == f.TagSlug {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	if f.Username != "" && (owner == nil || owner.Username != f.Username) {
		return false
	}
	if f.BookmarkedBy != nil {
		if _, ok := s.d.bookmarks[pair{p.ID, *f.BookmarkedBy}]; !ok {
			return false
		}
	}
	return true
}

func (s *PostStore) List(_ context.Context, f models.PostFilter) ([]models.Post, int, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	posts := []models.Post{}
	for _, p := range s.d.posts {
		if s.matches(p, f) {
			posts = append(posts, s.d.hydrate(p))
		}
	}
	sortNewestFirst(posts)
	if f.OrderByViews {
		sortByViews(posts)
	}

	total := len(posts)
	if f.Limit > 0 {
		start := min(f.Offset, total)
		end := min(start+f.Limit, total)
		posts = posts[start:end]
	}
	return posts, total, nil
}

func sortByViews(posts []models.Post) {
	for i := 1; i < len(posts); i++ {
		for j := i; j > 0 && posts[j].Views > posts[j-1].Views; j-- {
			posts[j], posts[j-1] = posts[j-1], posts[j]
		}
	}
}

func (s *PostStore) collect(match func(*models.Post) bool) []models.Post {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	posts := []models.Post{}
	for _, p := range s.d.posts {
		if match(p) {
			posts = append(posts, s.d.hydrate(p))
		}
	}
	sortNewestFirst(posts)
	return posts
}

func (s *PostStore) ListGranted(_ context.Context, userID uuid.UUID, capability models.Capability) ([]models.Post, error) {
	return s.collect(func(p *models.Post) bool {
		_, ok := s.d.grants[grantKey{userID, capability, p.ID}]
		return p.IsActive && ok
	}), nil
}

func (s *PostStore) Related(_ context.Context, ownerID, excludeID uuid.UUID, limit int) ([]models.Post, error) {
	posts := s.collect(func(p *models.Post) bool {
		return visible(p) && p.OwnerID == ownerID && p.ID != excludeID
	})
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func (s *PostStore) AdminList(_ context.Context, f models.PostAdminFilter) ([]models.Post, error) {
	posts := s.collect(func(p *models.Post) bool {
		if f.Status != nil && p.Status != *f.Status {
			return false
		}
		if f.IsActive != nil && p.IsActive != *f.IsActive {
			return false
		}
		return true
	})
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for i := range posts {
		for _, c := range s.d.comments {
			if c.PostID == posts[i].ID {
				posts[i].CommentCount++
			}
		}
	}
	return posts, nil
}

// checkUnique enforces the title and slug constraints. Callers hold mu.
func (s *PostStore) checkUnique(p *models.Post) error {
	for _, other := range s.d.posts {
		if other.ID == p.ID {
			continue
		}
		if other.Slug == p.Slug {
			return duplicate("posts_slug_key")
		}
		if other.Title == p.Title {
			return duplicate("posts_title_key")
		}
	}
	return nil
}

func (s *PostStore) Create(_ context.Context, p *models.Post, tagIDs []uuid.UUID) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if err := s.checkUnique(p); err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	p.ID = uuid.New()
	p.Views = 0
	p.IsActive = true
	p.CreatedAt = s.d.now()
	p.UpdatedAt = p.CreatedAt
	stored := *p
	stored.Tags = nil
	s.d.posts[p.ID] = &stored
	s.d.postTags[p.ID] = append([]uuid.UUID(nil), tagIDs...)
	s.d.grants[grantKey{p.OwnerID, models.CapChangePost, p.ID}] = p.CreatedAt
	return nil
}

func (s *PostStore) Update(_ context.Context, p *models.Post, tagIDs []uuid.UUID) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	stored, ok := s.d.posts[p.ID]
	if !ok {
		return fmt.Errorf("update post: %w", store.ErrNotFound)
	}
	next := *stored
	next.Title = p.Title
	if err := s.checkUnique(&next); err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	stored.Title = p.Title
	stored.Content = p.Content
	stored.Status = p.Status
	stored.Category = p.Category
	stored.UpdatedAt = s.d.now()
	p.UpdatedAt = stored.UpdatedAt
	s.d.postTags[p.ID] = append([]uuid.UUID(nil), tagIDs...)
	return nil
}

func (s *PostStore) update(op string, id uuid.UUID, fn func(p *models.Post)) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	p, ok := s.d.posts[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}
	fn(p)
	p.UpdatedAt = s.d.now()
	return nil
}

func (s *PostStore) SetImage(_ context.Context, id uuid.UUID, key *string) error {
	return s.update("set post image", id, func(p *models.Post) { p.Image = key })
}

func (s *PostStore) SoftDelete(_ context.Context, id uuid.UUID) error {
	return s.update("soft delete post", id, func(p *models.Post) { p.IsActive = false })
}

func (s *PostStore) SetModeration(_ context.Context, id uuid.UUID, status *models.PostStatus, isActive *bool) error {
	return s.update("moderate post", id, func(p *models.Post) {
		if status != nil {
			p.Status = *status
		}
		if isActive != nil {
			p.IsActive = *isActive
		}
	})
}

func (s *PostStore) IncrementViews(_ context.Context, id uuid.UUID) (int64, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	p, ok := s.d.posts[id]
	if !ok {
		return 0, fmt.Errorf("increment views: %w", store.ErrNotFound)
	}
	p.Views++
	return p.Views, nil
}

func (s *PostStore) toggle(rel map[pair]time.Time, op string, postID, userID uuid.UUID) (bool, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if _, ok := s.d.posts[postID]; !ok {
		return false, fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}
	k := pair{postID, userID}
	if _, ok := rel[k]; ok {
		delete(rel, k)
		return false, nil
	}
	rel[k] = s.d.now()
	return true, nil
}

func (s *PostStore) ToggleBookmark(_ context.Context, postID, userID uuid.UUID) (bool, error) {
	return s.toggle(s.d.bookmarks, "toggle post_bookmarks", postID, userID)
}

func (s *PostStore) ToggleLike(_ context.Context, postID, userID uuid.UUID) (bool, error) {
	return s.toggle(s.d.likes, "toggle post_likes", postID, userID)
}

func (s *PostStore) IsBookmarked(_ context.Context, postID, userID uuid.UUID) (bool, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	_, ok := s.d.bookmarks[pair{postID, userID}]
	return ok, nil
}

func (s *PostStore) IsLiked(_ context.Context, postID, userID uuid.UUID) (bool, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	_, ok := s.d.likes[pair{postID, userID}]
	return ok, nil
}

func (s *PostStore) LikeCount(_ context.Context, postID uuid.UUID) (int, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	n := 0
	for k := range s.d.likes {
		if k.post == postID {
			n++
		}
	}
	return n, nil
}

func (s *PostStore) OwnerStats(_ context.Context, ownerID uuid.UUID) (published, drafts int, err error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, p := range s.d.posts {
		if p.OwnerID != ownerID || !p.IsActive {
			continue
		}
		if p.Status == models.PostStatusPublished {
			published++
		} else {
			drafts++
		}
	}
	return published, drafts, nil
}
