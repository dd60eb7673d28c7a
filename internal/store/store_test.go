// store_test.go provides a shared test database helper for all store
// integration tests. Tests are skipped if PostgreSQL is not available.
package store

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"quillpress/internal/database"
	"quillpress/internal/models"
)

// testDSN returns the PostgreSQL connection string for testing.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "quillpress")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "quillpress")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test database and runs migrations.
// If the database is unavailable, the test is skipped.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("pgx", testDSN())
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// uniq returns a short random suffix so parallel runs do not collide.
func uniq() string {
	return uuid.NewString()[:8]
}

// createTestUser inserts an active user and removes it (and everything it
// owns, by cascade) when the test finishes.
func createTestUser(t *testing.T, db *sql.DB, prefix string) *models.User {
	t.Helper()
	id := prefix + "-" + uniq()
	u := &models.User{
		Email:     id + "@store-test.local",
		Username:  id,
		FirstName: "Test",
		LastName:  prefix,
		IsActive:  true,
	}
	if err := NewUserStore(db).Create(context.Background(), u, "testpass123"); err != nil {
		t.Fatalf("create test user: %v", err)
	}
	t.Cleanup(func() { db.Exec("DELETE FROM users WHERE id = $1", u.ID) })
	return u
}

// createTestPost inserts a post owned by owner.
func createTestPost(t *testing.T, db *sql.DB, owner *models.User, title string, status models.PostStatus, tagIDs ...uuid.UUID) *models.Post {
	t.Helper()
	p := &models.Post{
		Title:   title,
		Slug:    title,
		Content: "content of " + title,
		Status:  status,
		OwnerID: owner.ID,
	}
	if err := NewPostStore(db).Create(context.Background(), p, tagIDs); err != nil {
		t.Fatalf("create test post: %v", err)
	}
	return p
}
