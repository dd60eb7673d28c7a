package blog

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"quillpress/internal/metrics"
	"quillpress/internal/models"
	"quillpress/internal/store/memstore"
)

// fakeImages records objects in memory.
type fakeImages struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeImages) Put(_ context.Context, key, _ string, body io.Reader, _ int64) error {
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = b
	return nil
}

func (f *fakeImages) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeImages) URL(key string) string {
	return "https://cdn.test/" + key
}

func (f *fakeImages) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

type fixture struct {
	db      *memstore.DB
	svc     *Service
	images  *fakeImages
	metrics *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memstore.New()
	images := &fakeImages{objects: map[string][]byte{}}
	m := metrics.New()
	svc := New(Deps{
		Posts:      db.Posts(),
		Tags:       db.Tags(),
		Categories: db.Categories(),
		Comments:   db.Comments(),
		Grants:     db.Grants(),
		Authors:    db.Users(),
		Images:     images,
		Metrics:    m,
	})
	return &fixture{db: db, svc: svc, images: images, metrics: m}
}

// user creates an active user and returns a viewer for it.
func (f *fixture) user(t *testing.T, username, first, last string) *Viewer {
	t.Helper()
	u := &models.User{
		Email:     username + "@example.com",
		Username:  username,
		FirstName: first,
		LastName:  last,
		IsActive:  true,
	}
	require.NoError(t, f.db.Users().Create(context.Background(), u, "password123"))
	return &Viewer{ID: u.ID}
}

func (f *fixture) post(t *testing.T, v *Viewer, title string, status models.PostStatus, tags ...string) *models.Post {
	t.Helper()
	p, err := f.svc.CreatePost(context.Background(), v, PostInput{
		Title:   title,
		Content: "Content of " + title,
		Status:  status,
		Tags:    tags,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) tag(t *testing.T, name string) *models.Tag {
	t.Helper()
	tag, err := f.svc.CreateTag(context.Background(), TagInput{Name: name})
	require.NoError(t, err)
	return tag
}

func (f *fixture) category(t *testing.T, title string) *models.Category {
	t.Helper()
	c, err := f.svc.CreateCategory(context.Background(), CategoryInput{Title: title})
	require.NoError(t, err)
	return c
}

func pngImage(size int) Image {
	return Image{ContentType: "image/png", Size: int64(size), Body: bytes.NewReader(make([]byte, size))}
}

func ptr[T any](v T) *T { return &v }
