// Package router sets up all HTTP routes and middleware chains for the
// QuillPress API. It organizes routes into public, authenticated, account
// and staff groups with appropriate middleware stacks.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"quillpress/internal/cache"
	"quillpress/internal/handlers"
	"quillpress/internal/metrics"
	"quillpress/internal/middleware"
)

// SessionStore loads and writes sessions. *session.Store implements it.
type SessionStore interface {
	middleware.SessionGetter
	handlers.Sessions
}

// Deps holds everything New wires. Cache, Metrics and AuthLimiter may be
// nil, which disables the corresponding feature. Users, when set, lets
// every request re-check the session owner's account flags.
type Deps struct {
	Sessions      SessionStore
	Users         middleware.UserLookup
	Public        *handlers.Public
	Posts         *handlers.Posts
	Accounts      *handlers.Accounts
	Admin         *handlers.Admin
	Cache         *cache.ResponseCache
	Metrics       *metrics.Metrics
	AuthLimiter   *middleware.RateLimiter
	SecureCookies bool
	TrustProxy    bool // honour X-Forwarded-For and X-Real-IP
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	if d.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Metrics(d.Metrics))

	// Health and metrics: no session, no CSRF.
	r.Get("/health", healthHandler)
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.LoadSession(d.Sessions, d.Users))
		r.Use(middleware.NewCSRF(d.SecureCookies))

		// Public listings. Anonymous responses are shared through the cache.
		r.Group(func(r chi.Router) {
			r.Use(d.Cache.Middleware)
			r.Get("/index", d.Public.Index)
			r.Get("/posts", d.Public.Posts)
			r.Get("/posts/search", d.Public.Search)
			r.Get("/categories", d.Public.Categories)
			r.Get("/categories/{slug}/posts", d.Public.CategoryPosts)
			r.Get("/tags", d.Public.Tags)
			r.Get("/tags/{slug}/posts", d.Public.TagPosts)
			r.Get("/authors/{username}/posts", d.Public.AuthorPosts)
		})

		// Post pages count views and depend on the viewer, so never cached.
		r.Get("/posts/{slug}", d.Public.Post)
		r.Get("/posts/{slug}/comments", d.Public.Comments)

		// Reader and author actions.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Post("/posts", d.Posts.Create)
			r.Put("/posts/{slug}", d.Posts.Update)
			r.Delete("/posts/{slug}", d.Posts.Delete)
			r.Put("/posts/{slug}/image", d.Posts.UploadImage)
			r.Post("/posts/{slug}/comments", d.Posts.Comment)
			r.Post("/posts/{slug}/bookmark", d.Posts.Bookmark)
			r.Post("/posts/{slug}/like", d.Posts.Like)
			r.Get("/bookmarks", d.Posts.Bookmarks)
			r.Get("/my-posts", d.Posts.MyPosts)
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/csrf", d.Accounts.CSRFToken)
			r.Post("/logout", d.Accounts.Logout)

			// Credential and token endpoints are rate limited per IP.
			r.Group(func(r chi.Router) {
				if d.AuthLimiter != nil {
					r.Use(d.AuthLimiter.Middleware)
				}
				r.Post("/register", d.Accounts.Register)
				r.Post("/verify", d.Accounts.Verify)
				r.Post("/login", d.Accounts.Login)
				r.Post("/password-reset", d.Accounts.RequestPasswordReset)
				r.Post("/password-reset/confirm", d.Accounts.ResetPassword)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Post("/password", d.Accounts.ChangePassword)
				r.Get("/dashboard", d.Accounts.Dashboard)
				r.Put("/dashboard", d.Accounts.UpdateProfile)
				r.Put("/dashboard/image", d.Accounts.UploadImage)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Use(middleware.RequireStaff)

			// 2FA: requires staff but NOT completed 2FA.
			r.Group(func(r chi.Router) {
				if d.AuthLimiter != nil {
					r.Use(d.AuthLimiter.Middleware)
				}
				r.Post("/2fa/setup", d.Admin.TwoFASetup)
				r.Post("/2fa/verify", d.Admin.TwoFAVerify)
			})

			// Staff back office, 2FA verified.
			r.Group(func(r chi.Router) {
				r.Use(middleware.Require2FA)

				r.Route("/posts", func(r chi.Router) {
					r.Get("/", d.Admin.Posts)
					r.Patch("/{id}", d.Admin.ModeratePost)
					r.Get("/{id}/grants", d.Admin.PostGrants)
					r.Post("/{id}/grants", d.Admin.GrantPost)
					r.Delete("/{id}/grants/{userID}", d.Admin.RevokePost)
				})

				r.Route("/comments", func(r chi.Router) {
					r.Get("/", d.Admin.Comments)
					r.Patch("/{id}", d.Admin.ModerateComment)
				})

				r.Route("/categories", func(r chi.Router) {
					r.Post("/", d.Admin.CreateCategory)
					r.Put("/{slug}", d.Admin.UpdateCategory)
					r.Delete("/{slug}", d.Admin.DeleteCategory)
				})

				r.Route("/tags", func(r chi.Router) {
					r.Post("/", d.Admin.CreateTag)
					r.Put("/{slug}", d.Admin.RenameTag)
					r.Delete("/{slug}", d.Admin.DeleteTag)
				})

				r.Route("/users", func(r chi.Router) {
					r.Get("/", d.Admin.Users)
					r.Patch("/{id}", d.Admin.UpdateUser)
					r.Post("/{id}/reset-2fa", d.Admin.ResetUser2FA)
				})
			})
		})
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
