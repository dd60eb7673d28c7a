// Package main is the entry point for the QuillPress blog server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quillpress/internal/accounts"
	"quillpress/internal/blog"
	"quillpress/internal/cache"
	"quillpress/internal/config"
	"quillpress/internal/database"
	"quillpress/internal/handlers"
	"quillpress/internal/mail"
	"quillpress/internal/metrics"
	"quillpress/internal/middleware"
	"quillpress/internal/router"
	"quillpress/internal/session"
	"quillpress/internal/storage"
	"quillpress/internal/store"
	"quillpress/internal/token"
)

func main() {
	// Load configuration first so the logger format can follow the env.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured logger: text in development, JSON everywhere else.
	var handler slog.Handler
	if cfg.IsDev() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
	)

	m := metrics.New()

	// Connect to PostgreSQL.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	m.WatchDB(db, cfg.DBName)

	// Run pending migrations.
	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Valkey (sessions + response cache).
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	// In non-development environments, mark cookies as Secure (HTTPS-only).
	secureCookies := !cfg.IsDev()
	sessionStore := session.NewStore(valkeyClient, secureCookies)

	// Signed-in responses depend on the viewer, so only anonymous GETs are cached.
	responseCache := cache.New(valkeyClient, cfg.CacheTTL, m, session.HasCookie)

	// Connect to S3-compatible object storage (optional; image uploads
	// answer 503 without it).
	var images blog.ImageStore
	storageClient, err := storage.New(
		cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey,
		cfg.S3BucketPublic, cfg.S3PublicURL,
	)
	if err != nil {
		slog.Error("failed to initialize S3 storage", "error", err)
		os.Exit(1)
	}
	if storageClient != nil {
		images = storageClient
		slog.Info("s3 storage connected", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3BucketPublic)
	} else {
		slog.Warn("s3 storage not configured, image uploads disabled")
	}

	// Outgoing mail goes through a worker queue so requests never wait on SMTP.
	var sender mail.Sender = mail.LogSender{}
	if cfg.SMTPAddr() != "" {
		smtpSender, err := mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom)
		if err != nil {
			slog.Error("failed to configure smtp", "error", err)
			os.Exit(1)
		}
		sender = smtpSender
		slog.Info("smtp configured", "addr", cfg.SMTPAddr())
	} else {
		slog.Warn("smtp not configured, mail will be logged instead of sent")
	}
	mailQueue := mail.NewQueue(sender, mail.QueueOptions{Workers: cfg.MailWorkers, Metrics: m})

	// Initialize data stores.
	userStore := store.NewUserStore(db)
	postStore := store.NewPostStore(db)

	blogService := blog.New(blog.Deps{
		Posts:      postStore,
		Tags:       store.NewTagStore(db),
		Categories: store.NewCategoryStore(db),
		Comments:   store.NewCommentStore(db),
		Grants:     store.NewGrantStore(db),
		Authors:    userStore,
		Images:     images,
		Metrics:    m,
	})
	accountService := accounts.New(accounts.Deps{
		Users:    userStore,
		Posts:    postStore,
		Sessions: sessionStore,
		Avatars:  images,
		Tokens:   token.NewIssuer(cfg.TokenSecret, cfg.TokenTTL),
		Mail:     mailQueue,
		BaseURL:  cfg.BaseURL,
		Metrics:  m,
	})

	authLimiter := middleware.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst)
	defer authLimiter.Stop()

	// Set up the Chi router with all middleware and routes.
	r := router.New(router.Deps{
		Sessions:      sessionStore,
		Users:         userStore,
		Public:        handlers.NewPublic(blogService),
		Posts:         handlers.NewPosts(blogService, responseCache),
		Accounts:      handlers.NewAccounts(accountService, sessionStore),
		Admin:         handlers.NewAdmin(blogService, accountService, sessionStore, responseCache),
		Cache:         responseCache,
		Metrics:       m,
		AuthLimiter:   authLimiter,
		SecureCookies: secureCookies,
		TrustProxy:    cfg.TrustProxy,
	})

	// Create the HTTP server with sensible timeouts. Image uploads of up
	// to 5 MB need a longer read window than plain JSON.
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	// Give active requests up to 30 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	// Requests are done; deliver whatever mail they queued.
	if err := mailQueue.Close(ctx); err != nil {
		slog.Error("mail queue did not drain", "error", err)
	}

	slog.Info("server stopped gracefully")
}
