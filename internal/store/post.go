// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"quillpress/internal/models"
)

// visiblePostPredicate is the single filter every public listing applies.
// It expects the posts table aliased as p.
const visiblePostPredicate = `p.is_active AND p.status = 'published'`

const postFrom = `
	FROM posts p
	JOIN users u ON u.id = p.owner_id
	LEFT JOIN categories c ON c.id = p.category_id`

const postSelect = `
	SELECT p.id, p.title, p.slug, p.content, p.image, p.views, p.status, p.is_active,
	       p.owner_id, u.username, u.first_name, u.last_name,
	       c.id, c.title, c.slug,
	       p.created_at, p.updated_at` + postFrom

// PostStore handles posts and their tag, bookmark and like relations.
type PostStore struct {
	db *sql.DB
}

// NewPostStore creates a new PostStore.
func NewPostStore(db *sql.DB) *PostStore {
	return &PostStore{db: db}
}

// scanPost scans a postSelect row, followed by any extra destinations.
func scanPost(scanner interface{ Scan(...any) error }, extra ...any) (*models.Post, error) {
	var (
		p        models.Post
		catID    *uuid.UUID
		catTitle *string
		catSlug  *string
	)
	dest := []any{
		&p.ID, &p.Title, &p.Slug, &p.Content, &p.Image, &p.Views, &p.Status, &p.IsActive,
		&p.OwnerID, &p.Owner.Username, &p.Owner.FirstName, &p.Owner.LastName,
		&catID, &catTitle, &catSlug,
		&p.CreatedAt, &p.UpdatedAt,
	}
	if err := scanner.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	p.Owner.ID = p.OwnerID
	if catID != nil {
		p.Category = &models.CategoryRef{ID: *catID}
		if catTitle != nil {
			p.Category.Title = *catTitle
		}
		if catSlug != nil {
			p.Category.Slug = *catSlug
		}
	}
	p.Tags = []models.Tag{}
	return &p, nil
}

// findOne loads a single post with its tags. Returns nil if not found.
func (s *PostStore) findOne(ctx context.Context, op, where string, arg any) (*models.Post, error) {
	p, err := scanPost(s.db.QueryRowContext(ctx, postSelect+` WHERE `+where, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	posts := []models.Post{*p}
	if err := s.attachTags(ctx, posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// FindBySlug returns the post with the given slug regardless of status or
// active flag. Visibility is the caller's decision. Returns nil if not found.
func (s *PostStore) FindBySlug(ctx context.Context, slug string) (*models.Post, error) {
	return s.findOne(ctx, "find post by slug", "p.slug = $1", slug)
}

// FindByID returns the post with the given ID. Returns nil if not found.
func (s *PostStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	return s.findOne(ctx, "find post by id", "p.id = $1", id)
}

// escapeLike escapes the LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// filterWhere builds the WHERE clause for a public listing. Every branch
// starts from visiblePostPredicate.
func filterWhere(f models.PostFilter) (string, []any) {
	conds := []string{visiblePostPredicate}
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q := strings.TrimSpace(f.Query); q != "" {
		ph := arg("%" + escapeLike(q) + "%")
		conds = append(conds, fmt.Sprintf(`(
			p.title ILIKE %[1]s
			OR u.first_name ILIKE %[1]s
			OR u.last_name ILIKE %[1]s
			OR EXISTS (
				SELECT 1 FROM post_tags pt JOIN tags t ON t.id = pt.tag_id
				WHERE pt.post_id = p.id AND t.name ILIKE %[1]s
			))`, ph))
	}
	if f.CategorySlug != "" {
		conds = append(conds, "c.slug = "+arg(f.CategorySlug))
	}
	if f.TagSlug != "" {
		conds = append(conds, `EXISTS (
			SELECT 1 FROM post_tags pt JOIN tags t ON t.id = pt.tag_id
			WHERE pt.post_id = p.id AND t.slug = `+arg(f.TagSlug)+`)`)
	}
	if f.Username != "" {
		conds = append(conds, "u.username = "+arg(f.Username))
	}
	if f.BookmarkedBy != nil {
		conds = append(conds, `EXISTS (
			SELECT 1 FROM post_bookmarks b
			WHERE b.post_id = p.id AND b.user_id = `+arg(*f.BookmarkedBy)+`)`)
	}
	return strings.Join(conds, " AND "), args
}

// List returns one page of visible posts matching f, and the total number
// of matches. Results are newest first unless f.OrderByViews is set.
func (s *PostStore) List(ctx context.Context, f models.PostFilter) ([]models.Post, int, error) {
	where, args := filterWhere(f)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*)`+postFrom+` WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	order := "p.created_at DESC, p.id DESC"
	if f.OrderByViews {
		order = "p.views DESC, p.created_at DESC"
	}
	query := postSelect + ` WHERE ` + where + ` ORDER BY ` + order
	if f.Limit > 0 {
		args = append(args, f.Limit, f.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	posts, err := s.query(ctx, "list posts", query, args...)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// ListGranted returns the active posts, of any status, on which the user
// holds capability. Newest first.
func (s *PostStore) ListGranted(ctx context.Context, userID uuid.UUID, capability models.Capability) ([]models.Post, error) {
	return s.query(ctx, "list granted posts", postSelect+`
		WHERE p.is_active AND EXISTS (
			SELECT 1 FROM object_grants g
			WHERE g.object_id = p.id AND g.user_id = $1 AND g.capability = $2
		)
		ORDER BY p.created_at DESC, p.id DESC
	`, userID, string(capability))
}

// Related returns up to limit visible posts by the same owner, excluding one post.
func (s *PostStore) Related(ctx context.Context, ownerID, excludeID uuid.UUID, limit int) ([]models.Post, error) {
	return s.query(ctx, "related posts", postSelect+`
		WHERE `+visiblePostPredicate+` AND p.owner_id = $1 AND p.id <> $2
		ORDER BY p.created_at DESC
		LIMIT $3
	`, ownerID, excludeID, limit)
}

// AdminList returns every post matching filter with its total comment count.
func (s *PostStore) AdminList(ctx context.Context, filter models.PostAdminFilter) ([]models.Post, error) {
	var status *string
	if filter.Status != nil {
		v := string(*filter.Status)
		status = &v
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.title, p.slug, p.content, p.image, p.views, p.status, p.is_active,
		       p.owner_id, u.username, u.first_name, u.last_name,
		       c.id, c.title, c.slug,
		       p.created_at, p.updated_at,
		       (SELECT COUNT(*) FROM comments cm WHERE cm.post_id = p.id)`+postFrom+`
		WHERE ($1::varchar IS NULL OR p.status = $1) AND ($2::boolean IS NULL OR p.is_active = $2)
		ORDER BY p.created_at DESC
	`, status, filter.IsActive)
	if err != nil {
		return nil, fmt.Errorf("admin list posts: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		var count int
		p, err := scanPost(rows, &count)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		p.CommentCount = count
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return posts, s.attachTags(ctx, posts)
}

// query runs a postSelect query and attaches tags to the results.
func (s *PostStore) query(ctx context.Context, op, query string, args ...any) ([]models.Post, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return posts, s.attachTags(ctx, posts)
}

// attachTags loads the tags of every post in one query.
func (s *PostStore) attachTags(ctx context.Context, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]string, len(posts))
	index := make(map[uuid.UUID]int, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID.String()
		index[posts[i].ID] = i
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT pt.post_id, t.id, t.name, t.slug, t.created_at, t.updated_at
		FROM post_tags pt
		JOIN tags t ON t.id = pt.tag_id
		WHERE pt.post_id = ANY($1::uuid[])
		ORDER BY t.name
	`, ids)
	if err != nil {
		return fmt.Errorf("load post tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var postID uuid.UUID
		var t models.Tag
		if err := rows.Scan(&postID, &t.ID, &t.Name, &t.Slug, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return fmt.Errorf("scan post tag: %w", err)
		}
		if i, ok := index[postID]; ok {
			posts[i].Tags = append(posts[i].Tags, t)
		}
	}
	return rows.Err()
}

func categoryID(p *models.Post) any {
	if p.Category == nil {
		return nil
	}
	return p.Category.ID
}

// insertTags links tagIDs to a post inside tx.
func insertTags(ctx context.Context, tx *sql.Tx, postID uuid.UUID, tagIDs []uuid.UUID) error {
	for _, tagID := range tagIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO post_tags (post_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			postID, tagID,
		); err != nil {
			return fmt.Errorf("link tag: %w", err)
		}
	}
	return nil
}

// Create inserts p, links its tags and grants the owner post.change on it,
// all in one transaction. The ID, views and timestamps are filled in on p.
func (s *PostStore) Create(ctx context.Context, p *models.Post, tagIDs []uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create post begin: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO posts (title, slug, content, image, status, is_active, owner_id, category_id)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6, $7)
		RETURNING id, views, is_active, created_at, updated_at
	`, p.Title, p.Slug, p.Content, p.Image, string(p.Status), p.OwnerID, categoryID(p),
	).Scan(&p.ID, &p.Views, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create post: %w", asDuplicate(err))
	}

	if err := insertTags(ctx, tx, p.ID, tagIDs); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO object_grants (user_id, capability, object_id) VALUES ($1, $2, $3)
	`, p.OwnerID, string(models.CapChangePost), p.ID); err != nil {
		return fmt.Errorf("grant post owner: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create post commit: %w", err)
	}
	return nil
}

// Update saves title, content, status, category and the tag set of p.
// The slug is never written.
func (s *PostStore) Update(ctx context.Context, p *models.Post, tagIDs []uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update post begin: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		UPDATE posts SET title = $1, content = $2, status = $3, category_id = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at
	`, p.Title, p.Content, string(p.Status), categoryID(p), p.ID).Scan(&p.UpdatedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("update post: %w", ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update post: %w", asDuplicate(err))
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM post_tags WHERE post_id = $1`, p.ID); err != nil {
		return fmt.Errorf("clear post tags: %w", err)
	}
	if err := insertTags(ctx, tx, p.ID, tagIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update post commit: %w", err)
	}
	return nil
}

func (s *PostStore) exec(ctx context.Context, op, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// SetImage stores the object key of the post image. Nil clears it.
func (s *PostStore) SetImage(ctx context.Context, id uuid.UUID, key *string) error {
	return s.exec(ctx, "set post image",
		`UPDATE posts SET image = $1, updated_at = NOW() WHERE id = $2`, key, id)
}

// SoftDelete marks a post inactive. The row and its relations are kept.
func (s *PostStore) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return s.exec(ctx, "soft delete post",
		`UPDATE posts SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
}

// SetModeration updates status and/or is_active from the back-office.
// Nil leaves a field unchanged.
func (s *PostStore) SetModeration(ctx context.Context, id uuid.UUID, status *models.PostStatus, isActive *bool) error {
	var st *string
	if status != nil {
		v := string(*status)
		st = &v
	}
	return s.exec(ctx, "moderate post", `
		UPDATE posts SET status = COALESCE($1, status), is_active = COALESCE($2, is_active),
		       updated_at = NOW()
		WHERE id = $3
	`, st, isActive, id)
}

// IncrementViews atomically adds one view and returns the new count.
func (s *PostStore) IncrementViews(ctx context.Context, id uuid.UUID) (int64, error) {
	var views int64
	err := s.db.QueryRowContext(ctx,
		`UPDATE posts SET views = views + 1 WHERE id = $1 RETURNING views`, id,
	).Scan(&views)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("increment views: %w", ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("increment views: %w", err)
	}
	return views, nil
}

// ToggleBookmark adds the bookmark if absent and removes it if present.
// Returns true when the post is bookmarked afterwards.
func (s *PostStore) ToggleBookmark(ctx context.Context, postID, userID uuid.UUID) (bool, error) {
	return s.toggle(ctx, "post_bookmarks", postID, userID)
}

// ToggleLike adds the like if absent and removes it if present.
func (s *PostStore) ToggleLike(ctx context.Context, postID, userID uuid.UUID) (bool, error) {
	return s.toggle(ctx, "post_likes", postID, userID)
}

// toggle serializes toggles on one post by locking its row, then deletes
// the relation or inserts it when nothing was deleted.
func (s *PostStore) toggle(ctx context.Context, table string, postID, userID uuid.UUID) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("toggle %s begin: %w", table, err)
	}
	defer tx.Rollback()

	var locked uuid.UUID
	err = tx.QueryRowContext(ctx, `SELECT id FROM posts WHERE id = $1 FOR UPDATE`, postID).Scan(&locked)
	if err == sql.ErrNoRows {
		return false, fmt.Errorf("toggle %s: %w", table, ErrNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("toggle %s lock: %w", table, err)
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM `+table+` WHERE post_id = $1 AND user_id = $2`, postID, userID)
	if err != nil {
		return false, fmt.Errorf("toggle %s delete: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("toggle %s delete: %w", table, err)
	}

	on := n == 0
	if on {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO `+table+` (post_id, user_id) VALUES ($1, $2)`, postID, userID,
		); err != nil {
			return false, fmt.Errorf("toggle %s insert: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("toggle %s commit: %w", table, err)
	}
	return on, nil
}

func (s *PostStore) exists(ctx context.Context, op, table string, postID, userID uuid.UUID) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+table+` WHERE post_id = $1 AND user_id = $2)`, postID, userID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return ok, nil
}

// IsBookmarked reports whether the user bookmarked the post.
func (s *PostStore) IsBookmarked(ctx context.Context, postID, userID uuid.UUID) (bool, error) {
	return s.exists(ctx, "is bookmarked", "post_bookmarks", postID, userID)
}

// IsLiked reports whether the user liked the post.
func (s *PostStore) IsLiked(ctx context.Context, postID, userID uuid.UUID) (bool, error) {
	return s.exists(ctx, "is liked", "post_likes", postID, userID)
}

// LikeCount returns the number of likes on a post.
func (s *PostStore) LikeCount(ctx context.Context, postID uuid.UUID) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM post_likes WHERE post_id = $1`, postID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("like count: %w", err)
	}
	return n, nil
}

// OwnerStats counts the active posts a user owns, split by status.
func (s *PostStore) OwnerStats(ctx context.Context, ownerID uuid.UUID) (published, drafts int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE status = 'published'),
		       COUNT(*) FILTER (WHERE status = 'draft')
		FROM posts WHERE owner_id = $1 AND is_active
	`, ownerID).Scan(&published, &drafts)
	if err != nil {
		return 0, 0, fmt.Errorf("owner stats: %w", err)
	}
	return published, drafts, nil
}
