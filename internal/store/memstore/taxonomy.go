package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"quillpress/internal/models"
	"quillpress/internal/store"
)

// TagStore is the in-memory counterpart of store.TagStore.
type TagStore struct{ d *DB }

func sortTags(tags []models.Tag) {
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
}

func (s *TagStore) List(_ context.Context) ([]models.Tag, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	tags := []models.Tag{}
	for _, t := range s.d.tags {
		tags = append(tags, *t)
	}
	sortTags(tags)
	return tags, nil
}

func (s *TagStore) FindBySlugs(_ context.Context, slugs []string) ([]models.Tag, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	want := make(map[string]bool, len(slugs))
	for _, sl := range slugs {
		want[sl] = true
	}
	tags := []models.Tag{}
	for _, t := range s.d.tags {
		if want[t.Slug] {
			tags = append(tags, *t)
		}
	}
	sortTags(tags)
	return tags, nil
}

func (s *TagStore) FindBySlug(_ context.Context, slug string) (*models.Tag, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, t := range s.d.tags {
		if t.Slug == slug {
			out := *t
			return &out, nil
		}
	}
	return nil, nil
}

// checkUnique enforces the name and slug constraints. Callers hold mu.
func (s *TagStore) checkUnique(t *models.Tag) error {
	for _, other := range s.d.tags {
		if other.ID == t.ID {
			continue
		}
		if other.Name == t.Name {
			return duplicate("tags_name_key")
		}
		if other.Slug == t.Slug {
			return duplicate("tags_slug_key")
		}
	}
	return nil
}

func (s *TagStore) Create(_ context.Context, t *models.Tag) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if err := s.checkUnique(t); err != nil {
		return fmt.Errorf("create tag: %w", err)
	}
	t.ID = uuid.New()
	t.CreatedAt = s.d.now()
	t.UpdatedAt = t.CreatedAt
	stored := *t
	s.d.tags[t.ID] = &stored
	return nil
}

func (s *TagStore) Rename(_ context.Context, id uuid.UUID, name string) (*models.Tag, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	t, ok := s.d.tags[id]
	if !ok {
		return nil, fmt.Errorf("rename tag: %w", store.ErrNotFound)
	}
	next := *t
	next.Name = name
	if err := s.checkUnique(&next); err != nil {
		return nil, fmt.Errorf("rename tag: %w", err)
	}
	t.Name = name
	t.UpdatedAt = s.d.now()
	out := *t
	return &out, nil
}

func (s *TagStore) Delete(_ context.Context, id uuid.UUID) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if _, ok := s.d.tags[id]; !ok {
		return fmt.Errorf("delete tag: %w", store.ErrNotFound)
	}
	delete(s.d.tags, id)
	for postID, ids := range s.d.postTags {
		kept := ids[:0]
		for _, tid := range ids {
			if tid != id {
				kept = append(kept, tid)
			}
		}
		s.d.postTags[postID] = kept
	}
	return nil
}

func (s *TagStore) Top(_ context.Context, limit int) ([]models.Tag, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	counts := map[uuid.UUID]int{}
	for postID, ids := range s.d.postTags {
		p, ok := s.d.posts[postID]
		if !ok || !visible(p) {
			continue
		}
		for _, id := range ids {
			counts[id]++
		}
	}
	tags := []models.Tag{}
	for id, n := range counts {
		if t, ok := s.d.tags[id]; ok {
			out := *t
			out.PostCount = n
			tags = append(tags, out)
		}
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].PostCount != tags[j].PostCount {
			return tags[i].PostCount > tags[j].PostCount
		}
		return tags[i].Name < tags[j].Name
	})
	if len(tags) > limit {
		tags = tags[:limit]
	}
	return tags, nil
}

// CategoryStore is the in-memory counterpart of store.CategoryStore.
type CategoryStore struct{ d *DB }

func (s *CategoryStore) List(_ context.Context) ([]models.Category, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	items := []models.Category{}
	for _, c := range s.d.categories {
		out := *c
		out.PostCount = 0
		for _, p := range s.d.posts {
			if p.Category != nil && p.Category.ID == c.ID && visible(p) {
				out.PostCount++
			}
		}
		items = append(items, out)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Title < items[j].Title })
	return items, nil
}

func (s *CategoryStore) FindBySlug(_ context.Context, slug string) (*models.Category, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, c := range s.d.categories {
		if c.Slug == slug {
			out := *c
			return &out, nil
		}
	}
	return nil, nil
}

func (s *CategoryStore) Create(_ context.Context, c *models.Category) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, other := range s.d.categories {
		if other.Slug == c.Slug {
			return fmt.Errorf("create category: %w", duplicate("categories_slug_key"))
		}
	}
	c.ID = uuid.New()
	c.CreatedAt = s.d.now()
	c.UpdatedAt = c.CreatedAt
	stored := *c
	s.d.categories[c.ID] = &stored
	return nil
}

func (s *CategoryStore) Update(_ context.Context, c *models.Category) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	stored, ok := s.d.categories[c.ID]
	if !ok {
		return fmt.Errorf("update category: %w", store.ErrNotFound)
	}
	stored.Title = c.Title
	stored.Description = c.Description
	stored.UpdatedAt = s.d.now()
	c.Slug = stored.Slug
	c.CreatedAt = stored.CreatedAt
	c.UpdatedAt = stored.UpdatedAt
	return nil
}

func (s *CategoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if _, ok := s.d.categories[id]; !ok {
		return fmt.Errorf("delete category: %w", store.ErrNotFound)
	}
	delete(s.d.categories, id)
	for _, p := range s.d.posts {
		if p.Category != nil && p.Category.ID == id {
			p.Category = nil
		}
	}
	return nil
}
