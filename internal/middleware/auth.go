// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"quillpress/internal/models"
	"quillpress/internal/session"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const (
	// SessionKey is the context key for the session data.
	SessionKey contextKey = "session"
)

// Landing pages named in the redirect field of auth failures.
const (
	LoginPath     = "/api/accounts/login"
	DashboardPath = "/api/accounts/dashboard"
	TwoFASetup    = "/api/admin/2fa/setup"
	TwoFAVerify   = "/api/admin/2fa/verify"
)

// SessionGetter loads the session for a request. *session.Store implements it.
type SessionGetter interface {
	Get(ctx context.Context, r *http.Request) (*session.Data, error)
}

// UserLookup loads the account behind a session. *store.UserStore
// implements it; a missing user is (nil, nil).
type UserLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// LoadSession puts the request's session, if any, in the context. It never
// rejects a request; lookup errors are logged and treated as anonymous.
//
// When users is set, the account is re-read on every request. Sessions of
// deleted or deactivated accounts are ignored, and the staff flag and 2FA
// state are refreshed, so admin changes apply without a new login.
func LoadSession(store SessionGetter, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, err := store.Get(r.Context(), r)
			if err != nil {
				slog.Warn("session load failed", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if data != nil && users != nil {
				data = refreshSession(r.Context(), users, data)
			}
			if data != nil {
				r = r.WithContext(WithSession(r.Context(), data))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// refreshSession returns data updated from the stored account, or nil when
// the account can no longer use a session.
func refreshSession(ctx context.Context, users UserLookup, data *session.Data) *session.Data {
	u, err := users.FindByID(ctx, data.UserID)
	if err != nil {
		slog.Warn("session user lookup failed", "user_id", data.UserID, "error", err)
		return nil
	}
	if u == nil || !u.IsActive {
		return nil
	}
	fresh := *data
	fresh.IsStaff = u.IsStaff
	if !u.TOTPEnabled {
		fresh.TOTPEnabled = false
		fresh.TwoFADone = false
	}
	return &fresh
}

// WithSession returns ctx carrying data.
func WithSession(ctx context.Context, data *session.Data) context.Context {
	return context.WithValue(ctx, SessionKey, data)
}

// RequireAuth answers 401 when no session is loaded.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionFromCtx(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, "Authentication required", LoginPath)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireStaff answers 403 unless the session belongs to a staff user.
// Must be applied after RequireAuth.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := SessionFromCtx(r.Context())
		if sess == nil || !sess.IsStaff {
			writeError(w, http.StatusForbidden, "Forbidden", DashboardPath)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Require2FA answers 403 until the session has passed TOTP verification,
// pointing at enrollment or verification. Must be applied after RequireAuth.
func Require2FA(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := SessionFromCtx(r.Context())
		if sess != nil && !sess.TwoFADone {
			redirect := TwoFAVerify
			if !sess.TOTPEnabled {
				redirect = TwoFASetup
			}
			writeError(w, http.StatusForbidden, "Two-factor authentication required", redirect)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SessionFromCtx returns the loaded session, or nil for anonymous requests.
func SessionFromCtx(ctx context.Context) *session.Data {
	data, _ := ctx.Value(SessionKey).(*session.Data)
	return data
}
