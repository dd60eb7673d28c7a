package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"quillpress/internal/models"
)

// TagStore manages tags.
type TagStore struct {
	db *sql.DB
}

// NewTagStore returns a new TagStore.
func NewTagStore(db *sql.DB) *TagStore {
	return &TagStore{db: db}
}

const tagColumns = `id, name, slug, created_at, updated_at`

func scanTag(scanner interface{ Scan(...any) error }) (*models.Tag, error) {
	var t models.Tag
	if err := scanner.Scan(&t.ID, &t.Name, &t.Slug, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *TagStore) list(ctx context.Context, op, query string, args ...any) ([]models.Tag, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	tags := []models.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, *t)
	}
	return tags, rows.Err()
}

// List returns all tags ordered by name.
func (s *TagStore) List(ctx context.Context) ([]models.Tag, error) {
	return s.list(ctx, "list tags", `SELECT `+tagColumns+` FROM tags ORDER BY name`)
}

// FindBySlugs returns the tags whose slug is in slugs. Unknown slugs are
// skipped; callers compare lengths to detect them.
func (s *TagStore) FindBySlugs(ctx context.Context, slugs []string) ([]models.Tag, error) {
	if len(slugs) == 0 {
		return []models.Tag{}, nil
	}
	return s.list(ctx, "find tags by slug",
		`SELECT `+tagColumns+` FROM tags WHERE slug = ANY($1) ORDER BY name`, slugs)
}

// FindBySlug returns a tag by slug. Returns nil if not found.
func (s *TagStore) FindBySlug(ctx context.Context, slug string) (*models.Tag, error) {
	t, err := scanTag(s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE slug = $1`, slug))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find tag: %w", err)
	}
	return t, nil
}

// Create inserts a tag. Callers derive the slug from the name.
func (s *TagStore) Create(ctx context.Context, t *models.Tag) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO tags (name, slug) VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`, t.Name, t.Slug).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create tag: %w", asDuplicate(err))
	}
	return nil
}

// Rename changes the tag name. The slug keeps its original value.
func (s *TagStore) Rename(ctx context.Context, id uuid.UUID, name string) (*models.Tag, error) {
	t, err := scanTag(s.db.QueryRowContext(ctx, `
		UPDATE tags SET name = $1, updated_at = NOW() WHERE id = $2
		RETURNING `+tagColumns, name, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("rename tag: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("rename tag: %w", asDuplicate(err))
	}
	return t, nil
}

// Delete removes a tag and its post links.
func (s *TagStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete tag: %w", ErrNotFound)
	}
	return nil
}

// Top returns the tags with the most visible posts.
func (s *TagStore) Top(ctx context.Context, limit int) ([]models.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.slug, t.created_at, t.updated_at, COUNT(p.id) AS post_count
		FROM tags t
		JOIN post_tags pt ON pt.tag_id = t.id
		JOIN posts p ON p.id = pt.post_id AND `+visiblePostPredicate+`
		GROUP BY t.id
		ORDER BY post_count DESC, t.name
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("top tags: %w", err)
	}
	defer rows.Close()

	tags := []models.Tag{}
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.CreatedAt, &t.UpdatedAt, &t.PostCount); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}
