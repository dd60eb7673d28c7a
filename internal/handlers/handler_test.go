// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared infrastructure for handler tests. The
// services run on the in-memory store, sessions are recorded in memory.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"quillpress/internal/accounts"
	"quillpress/internal/blog"
	"quillpress/internal/mail"
	"quillpress/internal/middleware"
	"quillpress/internal/models"
	"quillpress/internal/session"
	"quillpress/internal/store/memstore"
	"quillpress/internal/token"
)

type outbox struct {
	mu   sync.Mutex
	msgs []mail.Message
}

func (o *outbox) Send(_ context.Context, msg mail.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, msg)
	return nil
}

func (o *outbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.msgs)
}

// fakeSessions implements Sessions without Valkey.
type fakeSessions struct {
	mu        sync.Mutex
	created   []*session.Data
	updated   []*session.Data
	destroyed int
	revoked   []uuid.UUID
}

func (f *fakeSessions) Create(_ context.Context, w http.ResponseWriter, data *session.Data) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, data)
	http.SetCookie(w, &http.Cookie{Name: session.CookieName, Value: "sid"})
	return "sid", nil
}

func (f *fakeSessions) Update(_ context.Context, _ *http.Request, data *session.Data) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, data)
	return nil
}

func (f *fakeSessions) Destroy(context.Context, http.ResponseWriter, *http.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed++
	return nil
}

func (f *fakeSessions) DestroyUser(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, userID)
	return nil
}

type fixture struct {
	db       *memstore.DB
	blog     *blog.Service
	accounts *accounts.Service
	sessions *fakeSessions
	mail     *outbox

	public *Public
	posts  *Posts
	acct   *Accounts
	admin  *Admin
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memstore.New()
	box := &outbox{}
	sessions := &fakeSessions{}
	b := blog.New(blog.Deps{
		Posts:      db.Posts(),
		Tags:       db.Tags(),
		Categories: db.Categories(),
		Comments:   db.Comments(),
		Grants:     db.Grants(),
		Authors:    db.Users(),
	})
	a := accounts.New(accounts.Deps{
		Users:    db.Users(),
		Posts:    db.Posts(),
		Sessions: sessions,
		Tokens:   token.NewIssuer("handler-test-secret-handler-test-secret", time.Hour),
		Mail:     box,
		BaseURL:  "http://blog.test",
	})
	return &fixture{
		db:       db,
		blog:     b,
		accounts: a,
		sessions: sessions,
		mail:     box,
		public:   NewPublic(b),
		posts:    NewPosts(b, nil),
		acct:     NewAccounts(a, sessions),
		admin:    NewAdmin(b, a, sessions, nil),
	}
}

// user creates an active account and returns its session payload.
func (f *fixture) user(t *testing.T, username string, staff bool) *session.Data {
	t.Helper()
	u := &models.User{
		Email:    username + "@example.com",
		Username: username,
		IsActive: true,
		IsStaff:  staff,
	}
	require.NoError(t, f.db.Users().Create(context.Background(), u, "password123"))
	return session.NewData(u)
}

func (f *fixture) post(t *testing.T, owner *session.Data, title string, status models.PostStatus) *models.Post {
	t.Helper()
	p, err := f.blog.CreatePost(context.Background(), &blog.Viewer{ID: owner.UserID}, blog.PostInput{
		Title:   title,
		Content: "Content of " + title,
		Status:  status,
	})
	require.NoError(t, err)
	return p
}

// serve routes a single request through a chi router holding only pattern,
// so URL parameters resolve as in production. sess may be nil.
func serve(h http.HandlerFunc, method, pattern, target string, body any, sess *session.Data) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Method(method, pattern, h)

	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set("Content-Type", "application/json")
	if sess != nil {
		req = req.WithContext(middleware.WithSession(req.Context(), sess))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

type errorResponse struct {
	Error    string            `json:"error"`
	Redirect string            `json:"redirect"`
	Fields   map[string]string `json:"fields"`
}
