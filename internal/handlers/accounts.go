package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"quillpress/internal/accounts"
	"quillpress/internal/middleware"
	"quillpress/internal/session"
)

// Sessions is the part of session.Store the handlers write through.
type Sessions interface {
	Create(ctx context.Context, w http.ResponseWriter, data *session.Data) (string, error)
	Update(ctx context.Context, r *http.Request, data *session.Data) error
	Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// Accounts groups registration, login and profile handlers.
type Accounts struct {
	accounts *accounts.Service
	sessions Sessions
}

// NewAccounts creates a new Accounts handler group.
func NewAccounts(a *accounts.Service, sessions Sessions) *Accounts {
	return &Accounts{accounts: a, sessions: sessions}
}

// CSRFToken hands the double-submit token to API clients.
func (a *Accounts) CSRFToken(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"csrf_token": middleware.CSRFTokenFromCtx(r.Context())})
}

// Register creates an inactive account and mails the verification link.
func (a *Accounts) Register(w http.ResponseWriter, r *http.Request) {
	var in accounts.RegisterInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if _, err := a.accounts.Register(r.Context(), in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeMessage(w, http.StatusCreated, "Please confirm your email address to complete the registration.")
}

type tokenRequest struct {
	Token string `json:"token"`
}

func (a *Accounts) Verify(w http.ResponseWriter, r *http.Request) {
	var in tokenRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	if _, err := a.accounts.VerifyAccount(r.Context(), in.Token); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Your account has been activated. You can now log in.")
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login checks credentials and starts a session. Staff still have to pass
// 2FA before the admin routes open.
func (a *Accounts) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	u, err := a.accounts.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	// Drop any session the browser already holds before issuing a new ID.
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Warn("failed to destroy previous session", "error", err)
	}
	data := session.NewData(u)
	if _, err := a.sessions.Create(r.Context(), w, data); err != nil {
		writeServiceError(w, r, err)
		return
	}

	slog.Info("user logged in", "user_id", u.ID)
	resp := map[string]any{"message": "Welcome back, " + u.Username + ".", "user": u}
	if u.IsStaff {
		if u.TOTPEnabled {
			resp["two_factor"] = middleware.TwoFAVerify
		} else {
			resp["two_factor"] = middleware.TwoFASetup
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *Accounts) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Error("failed to destroy session", "error", err)
	}
	writeMessage(w, http.StatusOK, "You have been logged out.")
}

type resetRequest struct {
	Email string `json:"email"`
}

// RequestPasswordReset answers the same way whether or not the account
// exists.
func (a *Accounts) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var in resetRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := a.accounts.RequestPasswordReset(r.Context(), in.Email); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "If an account with that email exists, a password reset link has been sent.")
}

func (a *Accounts) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var in accounts.ResetPasswordInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := a.accounts.ResetPassword(r.Context(), in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Your password has been set. You can now log in.")
}

func (a *Accounts) ChangePassword(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		writeServiceError(w, r, accounts.ErrUnauthenticated)
		return
	}
	var in accounts.ChangePasswordInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := a.accounts.ChangePassword(r.Context(), sess.UserID, in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Your password was successfully updated.")
}

// Dashboard returns the profile with post and bookmark counts.
func (a *Accounts) Dashboard(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		writeServiceError(w, r, accounts.ErrUnauthenticated)
		return
	}
	d, err := a.accounts.Dashboard(r.Context(), sess.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// UploadImage replaces the profile picture from the multipart field "image".
func (a *Accounts) UploadImage(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		writeServiceError(w, r, accounts.ErrUnauthenticated)
		return
	}
	img, done, ok := readImage(w, r)
	if !ok {
		return
	}
	defer done()

	u, err := a.accounts.UploadImage(r.Context(), sess.UserID, img)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": u, "image_url": a.accounts.ImageURL(u)})
}

// UpdateProfile edits the profile and keeps the session's copy of the
// email and username in step.
func (a *Accounts) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		writeServiceError(w, r, accounts.ErrUnauthenticated)
		return
	}
	var in accounts.ProfileInput
	if !decodeJSON(w, r, &in) {
		return
	}
	u, err := a.accounts.UpdateProfile(r.Context(), sess.UserID, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	updated := *sess
	updated.Email = u.Email
	updated.Username = u.Username
	if err := a.sessions.Update(r.Context(), r, &updated); err != nil {
		slog.Warn("failed to refresh session after profile update", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Your profile has been updated.", "user": u})
}
