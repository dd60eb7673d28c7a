package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"quillpress/internal/models"
)

// CommentStore manages comments.
type CommentStore struct {
	db *sql.DB
}

// NewCommentStore returns a new CommentStore.
func NewCommentStore(db *sql.DB) *CommentStore {
	return &CommentStore{db: db}
}

const commentSelect = `
	SELECT cm.id, cm.content, cm.status, cm.post_id, cm.author_id,
	       u.username, u.first_name, u.last_name,
	       cm.parent_id, cm.created_at, cm.updated_at
	FROM comments cm
	JOIN users u ON u.id = cm.author_id`

func scanComment(scanner interface{ Scan(...any) error }) (*models.Comment, error) {
	var c models.Comment
	err := scanner.Scan(
		&c.ID, &c.Content, &c.Status, &c.PostID, &c.AuthorID,
		&c.Author.Username, &c.Author.FirstName, &c.Author.LastName,
		&c.ParentID, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Author.ID = c.AuthorID
	return &c, nil
}

// Create inserts a comment. The ID and timestamps are filled in on c.
func (s *CommentStore) Create(ctx context.Context, c *models.Comment) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO comments (content, status, post_id, author_id, parent_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, c.Content, string(c.Status), c.PostID, c.AuthorID, c.ParentID,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// FindByID returns a comment by ID. Returns nil if not found.
func (s *CommentStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	c, err := scanComment(s.db.QueryRowContext(ctx, commentSelect+` WHERE cm.id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find comment: %w", err)
	}
	return c, nil
}

func (s *CommentStore) list(ctx context.Context, op, query string, args ...any) ([]models.Comment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, *c)
	}
	return comments, rows.Err()
}

// ListByPost returns the comments of a post in creation order. A nil status
// returns every comment.
func (s *CommentStore) ListByPost(ctx context.Context, postID uuid.UUID, status *models.CommentStatus) ([]models.Comment, error) {
	return s.list(ctx, "list comments", commentSelect+`
		WHERE cm.post_id = $1 AND ($2::varchar IS NULL OR cm.status = $2)
		ORDER BY cm.created_at ASC, cm.id ASC
	`, postID, statusArg(status))
}

// CountByPost counts the comments of a post with the given status.
func (s *CommentStore) CountByPost(ctx context.Context, postID uuid.UUID, status models.CommentStatus) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM comments WHERE post_id = $1 AND status = $2`, postID, string(status),
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return n, nil
}

// AdminList returns comments across all posts, newest first. A nil status
// returns every comment.
func (s *CommentStore) AdminList(ctx context.Context, status *models.CommentStatus) ([]models.Comment, error) {
	return s.list(ctx, "admin list comments", commentSelect+`
		WHERE ($1::varchar IS NULL OR cm.status = $1)
		ORDER BY cm.created_at DESC
	`, statusArg(status))
}

// SetStatus changes the moderation state of a comment.
func (s *CommentStore) SetStatus(ctx context.Context, id uuid.UUID, status models.CommentStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE comments SET status = $1, updated_at = NOW() WHERE id = $2`, string(status), id)
	if err != nil {
		return fmt.Errorf("set comment status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set comment status: %w", ErrNotFound)
	}
	return nil
}

func statusArg(status *models.CommentStatus) any {
	if status == nil {
		return nil
	}
	return string(*status)
}
