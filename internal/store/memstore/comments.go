package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"quillpress/internal/models"
	"quillpress/internal/store"
)

// CommentStore is the in-memory counterpart of store.CommentStore.
type CommentStore struct{ d *DB }

func (s *CommentStore) Create(_ context.Context, c *models.Comment) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if _, ok := s.d.posts[c.PostID]; !ok {
		return fmt.Errorf("create comment: post %s missing", c.PostID)
	}
	c.ID = uuid.New()
	c.CreatedAt = s.d.now()
	c.UpdatedAt = c.CreatedAt
	stored := *c
	s.d.comments[c.ID] = &stored
	return nil
}

// hydrate returns a copy of c with the author filled in. Callers hold mu.
func (s *CommentStore) hydrate(c *models.Comment) models.Comment {
	out := *c
	out.Author = s.d.author(c.AuthorID)
	return out
}

func (s *CommentStore) FindByID(_ context.Context, id uuid.UUID) (*models.Comment, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	c, ok := s.d.comments[id]
	if !ok {
		return nil, nil
	}
	out := s.hydrate(c)
	return &out, nil
}

func (s *CommentStore) collect(match func(*models.Comment) bool) []models.Comment {
	out := []models.Comment{}
	for _, c := range s.d.comments {
		if match(c) {
			out = append(out, s.hydrate(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (s *CommentStore) ListByPost(_ context.Context, postID uuid.UUID, status *models.CommentStatus) ([]models.Comment, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	return s.collect(func(c *models.Comment) bool {
		return c.PostID == postID && (status == nil || c.Status == *status)
	}), nil
}

func (s *CommentStore) CountByPost(_ context.Context, postID uuid.UUID, status models.CommentStatus) (int, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	n := 0
	for _, c := range s.d.comments {
		if c.PostID == postID && c.Status == status {
			n++
		}
	}
	return n, nil
}

func (s *CommentStore) AdminList(_ context.Context, status *models.CommentStatus) ([]models.Comment, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	out := s.collect(func(c *models.Comment) bool {
		return status == nil || c.Status == *status
	})
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *CommentStore) SetStatus(_ context.Context, id uuid.UUID, status models.CommentStatus) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	c, ok := s.d.comments[id]
	if !ok {
		return fmt.Errorf("set comment status: %w", store.ErrNotFound)
	}
	c.Status = status
	c.UpdatedAt = s.d.now()
	return nil
}

// GrantStore is the in-memory counterpart of store.GrantStore.
type GrantStore struct{ d *DB }

func (s *GrantStore) Has(_ context.Context, userID uuid.UUID, capability models.Capability, objectID uuid.UUID) (bool, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	_, ok := s.d.grants[grantKey{userID, capability, objectID}]
	return ok, nil
}

func (s *GrantStore) Grant(_ context.Context, userID uuid.UUID, capability models.Capability, objectID uuid.UUID) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	k := grantKey{userID, capability, objectID}
	if _, ok := s.d.grants[k]; !ok {
		s.d.grants[k] = s.d.now()
	}
	return nil
}

func (s *GrantStore) Revoke(_ context.Context, userID uuid.UUID, capability models.Capability, objectID uuid.UUID) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	delete(s.d.grants, grantKey{userID, capability, objectID})
	return nil
}

func (s *GrantStore) ListForObject(_ context.Context, capability models.Capability, objectID uuid.UUID) ([]models.Grant, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	grants := []models.Grant{}
	for k, at := range s.d.grants {
		if k.capability == capability && k.object == objectID {
			grants = append(grants, models.Grant{UserID: k.user, Capability: k.capability, ObjectID: k.object, CreatedAt: at})
		}
	}
	sort.Slice(grants, func(i, j int) bool { return grants[i].CreatedAt.Before(grants[j].CreatedAt) })
	return grants, nil
}
