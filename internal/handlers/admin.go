// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"quillpress/internal/accounts"
	"quillpress/internal/blog"
	"quillpress/internal/cache"
	"quillpress/internal/middleware"
	"quillpress/internal/models"
)

// Admin groups the staff back-office handlers. The router only mounts them
// behind RequireStaff, and everything except the 2FA pair behind Require2FA.
type Admin struct {
	blog     *blog.Service
	accounts *accounts.Service
	sessions Sessions
	cache    *cache.ResponseCache
}

// NewAdmin creates a new Admin handler group. rc may be nil.
func NewAdmin(b *blog.Service, a *accounts.Service, sessions Sessions, rc *cache.ResponseCache) *Admin {
	return &Admin{blog: b, accounts: a, sessions: sessions, cache: rc}
}

// --- Two-factor authentication ---

// TwoFASetup generates a TOTP secret and its QR code.
func (a *Admin) TwoFASetup(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	setup, err := a.accounts.SetupTOTP(r.Context(), sess.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, setup)
}

type codeRequest struct {
	Code string `json:"code"`
}

// TwoFAVerify checks a TOTP code and marks the session as 2FA-complete.
// The first valid code also finishes enrollment.
func (a *Admin) TwoFAVerify(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	var in codeRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := a.accounts.VerifyTOTP(r.Context(), sess.UserID, in.Code); err != nil {
		writeServiceError(w, r, err)
		return
	}

	updated := *sess
	updated.TOTPEnabled = true
	updated.TwoFADone = true
	if err := a.sessions.Update(r.Context(), r, &updated); err != nil {
		slog.Error("failed to update session after 2FA", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	slog.Info("2FA verified", "user_id", sess.UserID)
	writeMessage(w, http.StatusOK, "Two-factor authentication verified.")
}

// --- Posts ---

// Posts lists every post, filtered by ?status= and ?is_active=.
func (a *Admin) Posts(w http.ResponseWriter, r *http.Request) {
	var f models.PostAdminFilter
	q := r.URL.Query()
	if v := q.Get("status"); v != "" {
		status := models.PostStatus(v)
		if !status.Valid() {
			writeFields(w, map[string]string{"status": "Select one of: draft published."})
			return
		}
		f.Status = &status
	}
	if v := q.Get("is_active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			writeFields(w, map[string]string{"is_active": "Enter true or false."})
			return
		}
		f.IsActive = &active
	}

	posts, err := a.blog.AdminPosts(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if posts == nil {
		posts = []models.Post{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

type moderatePostRequest struct {
	Status   *models.PostStatus `json:"status"`
	IsActive *bool              `json:"is_active"`
}

// ModeratePost changes the status and activity of a post.
func (a *Admin) ModeratePost(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var in moderatePostRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	post, err := a.blog.ModeratePost(r.Context(), id, in.Status, in.IsActive)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	a.cache.InvalidateAll(r.Context())
	writeJSON(w, http.StatusOK, post)
}

func (a *Admin) PostGrants(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	grants, err := a.blog.PostGrants(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if grants == nil {
		grants = []models.Grant{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"grants": grants})
}

type grantRequest struct {
	UserID uuid.UUID `json:"user_id"`
}

// GrantPost lets another user change the post.
func (a *Admin) GrantPost(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var in grantRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := a.blog.GrantPost(r.Context(), id, in.UserID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Permission granted.")
}

func (a *Admin) RevokePost(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	userID, ok := idParam(w, r, "userID")
	if !ok {
		return
	}
	if err := a.blog.RevokePost(r.Context(), id, userID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Permission revoked.")
}

// --- Comments ---

func (a *Admin) Comments(w http.ResponseWriter, r *http.Request) {
	var status *models.CommentStatus
	if v := r.URL.Query().Get("status"); v != "" {
		s := models.CommentStatus(v)
		if !s.Valid() {
			writeFields(w, map[string]string{"status": "Select one of: pending approved not_approved."})
			return
		}
		status = &s
	}
	comments, err := a.blog.AdminComments(r.Context(), status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"comments": comments})
}

type commentStatusRequest struct {
	Status models.CommentStatus `json:"status"`
}

// ModerateComment approves, rejects or re-queues a comment.
func (a *Admin) ModerateComment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var in commentStatusRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := a.blog.SetCommentStatus(r.Context(), id, in.Status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// --- Categories and tags ---

func (a *Admin) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var in blog.CategoryInput
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := a.blog.CreateCategory(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	a.cache.InvalidateAll(r.Context())
	writeJSON(w, http.StatusCreated, c)
}

func (a *Admin) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var in blog.CategoryInput
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := a.blog.UpdateCategory(r.Context(), chi.URLParam(r, "slug"), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	a.cache.InvalidateAll(r.Context())
	writeJSON(w, http.StatusOK, c)
}

func (a *Admin) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := a.blog.DeleteCategory(r.Context(), chi.URLParam(r, "slug")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	a.cache.InvalidateAll(r.Context())
	writeMessage(w, http.StatusOK, "Category deleted.")
}

func (a *Admin) CreateTag(w http.ResponseWriter, r *http.Request) {
	var in blog.TagInput
	if !decodeJSON(w, r, &in) {
		return
	}
	t, err := a.blog.CreateTag(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	a.cache.InvalidateAll(r.Context())
	writeJSON(w, http.StatusCreated, t)
}

// RenameTag changes the tag's name. Its slug stays.
func (a *Admin) RenameTag(w http.ResponseWriter, r *http.Request) {
	var in blog.TagInput
	if !decodeJSON(w, r, &in) {
		return
	}
	t, err := a.blog.RenameTag(r.Context(), chi.URLParam(r, "slug"), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	a.cache.InvalidateAll(r.Context())
	writeJSON(w, http.StatusOK, t)
}

func (a *Admin) DeleteTag(w http.ResponseWriter, r *http.Request) {
	if err := a.blog.DeleteTag(r.Context(), chi.URLParam(r, "slug")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	a.cache.InvalidateAll(r.Context())
	writeMessage(w, http.StatusOK, "Tag deleted.")
}

// --- Users ---

func (a *Admin) Users(w http.ResponseWriter, r *http.Request) {
	users, err := a.accounts.Users(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

// UpdateUser sets is_active and is_staff. Staff cannot change their own.
func (a *Admin) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var in accounts.UserFlags
	if !decodeJSON(w, r, &in) {
		return
	}
	sess := middleware.SessionFromCtx(r.Context())
	u, err := a.accounts.SetUserFlags(r.Context(), sess.UserID, id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// ResetUser2FA clears a user's TOTP so they enroll again.
func (a *Admin) ResetUser2FA(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := a.accounts.ResetUserTOTP(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Two-factor authentication has been reset.")
}
