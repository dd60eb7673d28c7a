// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"quillpress/internal/models"
)

func TestPostStoreCreateGrantsOwner(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "owner")

	tag := &models.Tag{Name: "grant-" + uniq(), Slug: "grant-" + uniq()}
	if err := NewTagStore(db).Create(ctx, tag); err != nil {
		t.Fatalf("create tag: %v", err)
	}
	t.Cleanup(func() { db.Exec("DELETE FROM tags WHERE id = $1", tag.ID) })

	p := createTestPost(t, db, owner, "grant-post-"+uniq(), models.PostStatusDraft, tag.ID)

	if p.ID == uuid.Nil || !p.IsActive || p.Views != 0 {
		t.Fatalf("unexpected created post: %+v", p)
	}

	ok, err := NewGrantStore(db).Has(ctx, owner.ID, models.CapChangePost, p.ID)
	if err != nil {
		t.Fatalf("Has: %v", err)
	}
	if !ok {
		t.Error("owner should hold post.change on the new post")
	}

	got, err := NewPostStore(db).FindBySlug(ctx, p.Slug)
	if err != nil || got == nil {
		t.Fatalf("FindBySlug: %v, %v", got, err)
	}
	if len(got.Tags) != 1 || got.Tags[0].ID != tag.ID {
		t.Errorf("tags: got %+v, want [%s]", got.Tags, tag.Name)
	}
	if got.Owner.Username != owner.Username {
		t.Errorf("owner: got %q, want %q", got.Owner.Username, owner.Username)
	}
}

func TestPostStoreDuplicateSlugLeavesNothing(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "dupslug")
	s := NewPostStore(db)

	first := createTestPost(t, db, owner, "hello-world-"+uniq(), models.PostStatusPublished)

	second := &models.Post{
		Title: "another title " + uniq(), Slug: first.Slug, Content: "x",
		Status: models.PostStatusPublished, OwnerID: owner.ID,
	}
	err := s.Create(ctx, second, nil)
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	var n int
	db.QueryRow("SELECT COUNT(*) FROM posts WHERE owner_id = $1", owner.ID).Scan(&n)
	if n != 1 {
		t.Errorf("expected 1 post after failed insert, got %d", n)
	}
	db.QueryRow("SELECT COUNT(*) FROM object_grants WHERE user_id = $1", owner.ID).Scan(&n)
	if n != 1 {
		t.Errorf("expected 1 grant after failed insert, got %d", n)
	}
}

func TestPostStoreUpdateKeepsSlug(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "upd")
	s := NewPostStore(db)
	p := createTestPost(t, db, owner, "upd-"+uniq(), models.PostStatusDraft)
	slug := p.Slug

	p.Title = "A completely new title " + uniq()
	p.Status = models.PostStatusPublished
	if err := s.Update(ctx, p, nil); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, _ := s.FindByID(ctx, p.ID)
	if got.Slug != slug {
		t.Errorf("slug changed: got %q, want %q", got.Slug, slug)
	}
	if got.Title != p.Title || got.Status != models.PostStatusPublished {
		t.Errorf("update not persisted: %+v", got)
	}
}

func TestPostStoreConcurrentIncrementViews(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "views")
	s := NewPostStore(db)
	p := createTestPost(t, db, owner, "views-"+uniq(), models.PostStatusPublished)

	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.IncrementViews(ctx, p.ID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("IncrementViews: %v", err)
	}

	got, _ := s.FindByID(ctx, p.ID)
	if got.Views != n {
		t.Errorf("views: got %d, want %d", got.Views, n)
	}
}

func TestPostStoreToggleBookmark(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "bm")
	s := NewPostStore(db)
	p := createTestPost(t, db, owner, "bm-"+uniq(), models.PostStatusPublished)

	on, err := s.ToggleBookmark(ctx, p.ID, owner.ID)
	if err != nil || !on {
		t.Fatalf("first toggle: on=%v err=%v, want on", on, err)
	}
	on, err = s.ToggleBookmark(ctx, p.ID, owner.ID)
	if err != nil || on {
		t.Fatalf("second toggle: on=%v err=%v, want off", on, err)
	}
	if ok, _ := s.IsBookmarked(ctx, p.ID, owner.ID); ok {
		t.Error("bookmark should be gone after toggling twice")
	}

	if _, err := s.ToggleBookmark(ctx, uuid.New(), owner.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("toggle on missing post: expected ErrNotFound, got %v", err)
	}
}

func TestPostStoreListVisibilityAndSearch(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	s := NewPostStore(db)
	marker := uniq()

	owner := createTestUser(t, db, "search")
	db.Exec("UPDATE users SET first_name = $1 WHERE id = $2", "Zed"+marker, owner.ID)

	tag := &models.Tag{Name: "tag" + marker, Slug: "tag" + marker}
	NewTagStore(db).Create(ctx, tag)
	t.Cleanup(func() { db.Exec("DELETE FROM tags WHERE id = $1", tag.ID) })

	byTitle := createTestPost(t, db, owner, "title "+marker, models.PostStatusPublished)
	byTag := createTestPost(t, db, owner, "tagged-"+uniq(), models.PostStatusPublished, tag.ID)
	draft := createTestPost(t, db, owner, "draft "+marker, models.PostStatusDraft)
	deleted := createTestPost(t, db, owner, "deleted "+marker, models.PostStatusPublished)
	if err := s.SoftDelete(ctx, deleted.ID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}

	// Matches title and tag branches; draft and deleted are never returned.
	posts, total, err := s.List(ctx, models.PostFilter{Query: marker})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	ids := map[uuid.UUID]bool{}
	for _, p := range posts {
		if ids[p.ID] {
			t.Errorf("duplicate post %s in results", p.Slug)
		}
		ids[p.ID] = true
	}
	if !ids[byTitle.ID] || !ids[byTag.ID] {
		t.Errorf("expected title and tag matches, got %d posts", len(posts))
	}
	if ids[draft.ID] || ids[deleted.ID] {
		t.Error("draft or deleted post leaked into search results")
	}
	if total != len(posts) {
		t.Errorf("total: got %d, want %d", total, len(posts))
	}

	// Author first-name branch matches every visible post of the owner.
	posts, _, _ = s.List(ctx, models.PostFilter{Query: "zed" + marker})
	if len(posts) != 2 {
		t.Errorf("author search: got %d posts, want 2", len(posts))
	}

	// Newest first.
	if len(posts) == 2 && posts[0].CreatedAt.Before(posts[1].CreatedAt) {
		t.Error("expected newest-first ordering")
	}

	// Wildcards match literally.
	posts, _, _ = s.List(ctx, models.PostFilter{Query: marker + "%"})
	if len(posts) != 0 {
		t.Errorf("literal %% search: got %d posts, want 0", len(posts))
	}

	posts, _, _ = s.List(ctx, models.PostFilter{TagSlug: tag.Slug})
	if len(posts) != 1 || posts[0].ID != byTag.ID {
		t.Errorf("tag filter: got %d posts", len(posts))
	}
}

func TestPostStoreListGranted(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	s := NewPostStore(db)
	owner := createTestUser(t, db, "mine")
	coauthor := createTestUser(t, db, "coauthor")

	draft := createTestPost(t, db, owner, "mine-"+uniq(), models.PostStatusDraft)
	gone := createTestPost(t, db, owner, "mine-gone-"+uniq(), models.PostStatusPublished)
	s.SoftDelete(ctx, gone.ID)

	posts, err := s.ListGranted(ctx, owner.ID, models.CapChangePost)
	if err != nil {
		t.Fatalf("ListGranted: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != draft.ID {
		t.Errorf("owner posts: got %d, want only the active draft", len(posts))
	}

	if err := NewGrantStore(db).Grant(ctx, coauthor.ID, models.CapChangePost, draft.ID); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	posts, _ = s.ListGranted(ctx, coauthor.ID, models.CapChangePost)
	if len(posts) != 1 {
		t.Errorf("coauthor posts: got %d, want 1", len(posts))
	}
}
