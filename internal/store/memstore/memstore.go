// Package memstore is an in-memory implementation of the store contracts.
// It mirrors the PostgreSQL stores closely enough for service and handler
// tests: the same visibility filter, unique constraints, orderings and
// not-found conventions. All state sits behind one mutex.
package memstore

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"quillpress/internal/models"
	"quillpress/internal/store"
)

type pair struct {
	post, user uuid.UUID
}

type grantKey struct {
	user       uuid.UUID
	capability models.Capability
	object     uuid.UUID
}

// DB holds every table. Use the accessor methods to get typed stores.
type DB struct {
	mu   sync.Mutex
	last time.Time

	users      map[uuid.UUID]*models.User
	posts      map[uuid.UUID]*models.Post
	postTags   map[uuid.UUID][]uuid.UUID
	bookmarks  map[pair]time.Time
	likes      map[pair]time.Time
	tags       map[uuid.UUID]*models.Tag
	categories map[uuid.UUID]*models.Category
	comments   map[uuid.UUID]*models.Comment
	grants     map[grantKey]time.Time
}

// New returns an empty database.
func New() *DB {
	return &DB{
		users:      map[uuid.UUID]*models.User{},
		posts:      map[uuid.UUID]*models.Post{},
		postTags:   map[uuid.UUID][]uuid.UUID{},
		bookmarks:  map[pair]time.Time{},
		likes:      map[pair]time.Time{},
		tags:       map[uuid.UUID]*models.Tag{},
		categories: map[uuid.UUID]*models.Category{},
		comments:   map[uuid.UUID]*models.Comment{},
		grants:     map[grantKey]time.Time{},
	}
}

func (d *DB) Users() *UserStore { return &UserStore{d} }
func (d *DB) Posts() *PostStore { return &PostStore{d} }
func (d *DB) Tags() *TagStore { return &TagStore{d} }
func (d *DB) Categories() *CategoryStore { return &CategoryStore{d} }
func (d *DB) Comments() *CommentStore { return &CommentStore{d} }
func (d *DB) Grants() *GrantStore { return &GrantStore{d} }

// now returns a strictly increasing timestamp so creation order is total.
// Callers hold d.mu.
func (d *DB) now() time.Time {
	t := time.Now().UTC()
	if !t.After(d.last) {
		t = d.last.Add(time.Microsecond)
	}
	d.last = t
	return t
}

func duplicate(constraint string) error {
	return &store.DuplicateError{Constraint: constraint}
}

func visible(p *models.Post) bool {
	return p.IsActive && p.Status == models.PostStatusPublished
}

func (d *DB) author(id uuid.UUID) models.Author {
	u, ok := d.users[id]
	if !ok {
		return models.Author{ID: id}
	}
	return models.Author{ID: u.ID, Username: u.Username, FirstName: u.FirstName, LastName: u.LastName}
}

// hydrate returns a copy of p with owner, category and tags filled in.
func (d *DB) hydrate(p *models.Post) models.Post {
	out := *p
	out.Owner = d.author(p.OwnerID)
	if p.Category != nil {
		if c, ok := d.categories[p.Category.ID]; ok {
			out.Category = &models.CategoryRef{ID: c.ID, Title: c.Title, Slug: c.Slug}
		} else {
			out.Category = nil
		}
	}
	out.Tags = []models.Tag{}
	for _, id := range d.postTags[p.ID] {
		if t, ok := d.tags[id]; ok {
			out.Tags = append(out.Tags, *t)
		}
	}
	sort.Slice(out.Tags, func(i, j int) bool { return out.Tags[i].Name < out.Tags[j].Name })
	return out
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func sortNewestFirst(posts []models.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return posts[i].ID.String() > posts[j].ID.String()
	})
}
