// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quillpress/internal/accounts"
	"quillpress/internal/blog"
	"quillpress/internal/models"
)

func TestTwoFAEnrollment(t *testing.T) {
	f := newFixture(t)
	staff := f.user(t, "boss", true)

	w := serve(f.admin.TwoFASetup, http.MethodPost, "/api/admin/2fa/setup", "/api/admin/2fa/setup", nil, staff)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	setup := decode[accounts.TOTPSetup](t, w)
	require.NotEmpty(t, setup.Secret)
	assert.NotEmpty(t, setup.QRCode)

	w = serve(f.admin.TwoFAVerify, http.MethodPost, "/api/admin/2fa/verify", "/api/admin/2fa/verify",
		map[string]string{"code": "12"}, staff)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, f.sessions.updated)

	code, err := totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	w = serve(f.admin.TwoFAVerify, http.MethodPost, "/api/admin/2fa/verify", "/api/admin/2fa/verify",
		map[string]string{"code": code}, staff)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, f.sessions.updated, 1)
	assert.True(t, f.sessions.updated[0].TwoFADone)
	assert.True(t, f.sessions.updated[0].TOTPEnabled)

	w = serve(f.admin.TwoFASetup, http.MethodPost, "/api/admin/2fa/setup", "/api/admin/2fa/setup", nil, staff)
	assert.Equal(t, http.StatusConflict, w.Code, "setup is closed once enabled")
}

func TestAdminPostsFilterAndModerate(t *testing.T) {
	f := newFixture(t)
	staff := f.user(t, "boss", true)
	alice := f.user(t, "alice", false)
	draft := f.post(t, alice, "Draft One", models.PostStatusDraft)
	f.post(t, alice, "Live One", models.PostStatusPublished)

	w := serve(f.admin.Posts, http.MethodGet, "/api/admin/posts", "/api/admin/posts?status=draft", nil, staff)
	require.Equal(t, http.StatusOK, w.Code)
	listed := decode[struct {
		Posts []models.Post `json:"posts"`
	}](t, w)
	require.Len(t, listed.Posts, 1)
	assert.Equal(t, draft.ID, listed.Posts[0].ID)

	w = serve(f.admin.Posts, http.MethodGet, "/api/admin/posts", "/api/admin/posts?is_active=maybe", nil, staff)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(f.admin.ModeratePost, http.MethodPatch, "/api/admin/posts/{id}", "/api/admin/posts/"+draft.ID.String(),
		map[string]any{"status": "published"}, staff)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.PostStatusPublished, decode[models.Post](t, w).Status)

	w = serve(f.admin.ModeratePost, http.MethodPatch, "/api/admin/posts/{id}", "/api/admin/posts/not-a-uuid",
		map[string]any{"is_active": false}, staff)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminGrantLetsUserEdit(t *testing.T) {
	f := newFixture(t)
	staff := f.user(t, "boss", true)
	alice := f.user(t, "alice", false)
	bob := f.user(t, "bob", false)
	p := f.post(t, alice, "Shared", models.PostStatusPublished)
	grantsURL := "/api/admin/posts/" + p.ID.String() + "/grants"

	w := serve(f.admin.GrantPost, http.MethodPost, "/api/admin/posts/{id}/grants", grantsURL,
		map[string]any{"user_id": bob.UserID}, staff)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = serve(f.posts.Update, http.MethodPut, "/api/posts/{slug}", "/api/posts/"+p.Slug,
		map[string]any{"title": "Shared", "content": "Bob was here"}, bob)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = serve(f.admin.PostGrants, http.MethodGet, "/api/admin/posts/{id}/grants", grantsURL, nil, staff)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[struct {
		Grants []models.Grant `json:"grants"`
	}](t, w).Grants, 2)

	w = serve(f.admin.RevokePost, http.MethodDelete, "/api/admin/posts/{id}/grants/{userID}",
		grantsURL+"/"+bob.UserID.String(), nil, staff)
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(f.posts.Update, http.MethodPut, "/api/posts/{slug}", "/api/posts/"+p.Slug,
		map[string]any{"title": "Shared", "content": "Again"}, bob)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminModerateComment(t *testing.T) {
	f := newFixture(t)
	staff := f.user(t, "boss", true)
	alice := f.user(t, "alice", false)
	p := f.post(t, alice, "Commented", models.PostStatusPublished)
	c, err := f.blog.AddComment(context.Background(), &blog.Viewer{ID: alice.UserID}, p.Slug, blog.CommentInput{Content: "hi"})
	require.NoError(t, err)

	w := serve(f.admin.Comments, http.MethodGet, "/api/admin/comments", "/api/admin/comments?status=pending", nil, staff)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[struct {
		Comments []models.Comment `json:"comments"`
	}](t, w).Comments, 1)

	target := "/api/admin/comments/" + c.ID.String()
	w = serve(f.admin.ModerateComment, http.MethodPatch, "/api/admin/comments/{id}", target,
		map[string]string{"status": "bogus"}, staff)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(f.admin.ModerateComment, http.MethodPatch, "/api/admin/comments/{id}", target,
		map[string]string{"status": "approved"}, staff)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.CommentApproved, decode[models.Comment](t, w).Status)
}

func TestAdminTaxonomyCRUD(t *testing.T) {
	f := newFixture(t)
	staff := f.user(t, "boss", true)

	w := serve(f.admin.CreateCategory, http.MethodPost, "/api/admin/categories", "/api/admin/categories",
		map[string]string{"title": "Travel Notes"}, staff)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "travel-notes", decode[models.Category](t, w).Slug)

	w = serve(f.admin.CreateCategory, http.MethodPost, "/api/admin/categories", "/api/admin/categories",
		map[string]string{"title": "Travel Notes"}, staff)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[errorResponse](t, w).Fields, "slug")

	w = serve(f.admin.UpdateCategory, http.MethodPut, "/api/admin/categories/{slug}", "/api/admin/categories/travel-notes",
		map[string]string{"title": "Journeys"}, staff)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Journeys", decode[models.Category](t, w).Title)

	w = serve(f.admin.DeleteCategory, http.MethodDelete, "/api/admin/categories/{slug}", "/api/admin/categories/travel-notes", nil, staff)
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(f.admin.CreateTag, http.MethodPost, "/api/admin/tags", "/api/admin/tags",
		map[string]string{"name": "Go Lang"}, staff)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "go-lang", decode[models.Tag](t, w).Slug)

	w = serve(f.admin.RenameTag, http.MethodPut, "/api/admin/tags/{slug}", "/api/admin/tags/go-lang",
		map[string]string{"name": "Golang"}, staff)
	require.Equal(t, http.StatusOK, w.Code)
	tag := decode[models.Tag](t, w)
	assert.Equal(t, "Golang", tag.Name)
	assert.Equal(t, "go-lang", tag.Slug)

	w = serve(f.admin.DeleteTag, http.MethodDelete, "/api/admin/tags/{slug}", "/api/admin/tags/missing", nil, staff)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminUserFlags(t *testing.T) {
	f := newFixture(t)
	staff := f.user(t, "boss", true)
	alice := f.user(t, "alice", false)

	w := serve(f.admin.UpdateUser, http.MethodPatch, "/api/admin/users/{id}", "/api/admin/users/"+staff.UserID.String(),
		map[string]any{"is_staff": false}, staff)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = serve(f.admin.UpdateUser, http.MethodPatch, "/api/admin/users/{id}", "/api/admin/users/"+alice.UserID.String(),
		map[string]any{"is_active": false}, staff)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.False(t, decode[models.User](t, w).IsActive)
	assert.Equal(t, []uuid.UUID{alice.UserID}, f.sessions.revoked, "deactivation ends the user's sessions")

	w = serve(f.acct.Login, http.MethodPost, "/api/accounts/login", "/api/accounts/login",
		map[string]string{"email": "alice@example.com", "password": "password123"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "deactivated users cannot log in")

	w = serve(f.admin.Users, http.MethodGet, "/api/admin/users", "/api/admin/users", nil, staff)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[struct {
		Users []models.User `json:"users"`
	}](t, w).Users, 2)

	w = serve(f.admin.ResetUser2FA, http.MethodPost, "/api/admin/users/{id}/reset-2fa",
		"/api/admin/users/"+alice.UserID.String()+"/reset-2fa", nil, staff)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []uuid.UUID{alice.UserID, alice.UserID}, f.sessions.revoked)
}

func TestAdminDemotionEndsSessions(t *testing.T) {
	f := newFixture(t)
	staff := f.user(t, "boss", true)
	carol := f.user(t, "carol", true)

	w := serve(f.admin.UpdateUser, http.MethodPatch, "/api/admin/users/{id}", "/api/admin/users/"+carol.UserID.String(),
		map[string]any{"is_staff": false}, staff)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.False(t, decode[models.User](t, w).IsStaff)
	assert.Equal(t, []uuid.UUID{carol.UserID}, f.sessions.revoked)

	u, err := f.db.Users().FindByID(context.Background(), carol.UserID)
	require.NoError(t, err)
	assert.False(t, u.IsStaff)
}
