package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quillpress/internal/models"
)

// These tests pin the SQL the stores send without a live database.

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func TestIncrementViewsIsSingleAtomicUpdate(t *testing.T) {
	db, mock := newMock(t)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE posts SET views = views + 1 WHERE id = $1 RETURNING views`)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"views"}).AddRow(int64(8)))

	views, err := NewPostStore(db).IncrementViews(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(8), views)
}

func TestIncrementViewsMissingPost(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE posts SET views = views + 1`)).
		WillReturnRows(sqlmock.NewRows([]string{"views"}))

	_, err := NewPostStore(db).IncrementViews(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestToggleBookmarkLocksThenInserts(t *testing.T) {
	db, mock := newMock(t)
	postID, userID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM posts WHERE id = $1 FOR UPDATE`)).
		WithArgs(postID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(postID.String()))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM post_bookmarks WHERE post_id = $1 AND user_id = $2`)).
		WithArgs(postID, userID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO post_bookmarks (post_id, user_id) VALUES ($1, $2)`)).
		WithArgs(postID, userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	on, err := NewPostStore(db).ToggleBookmark(context.Background(), postID, userID)
	require.NoError(t, err)
	assert.True(t, on)
}

func TestToggleLikeRemovesExisting(t *testing.T) {
	db, mock := newMock(t)
	postID, userID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(postID.String()))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM post_likes`)).
		WithArgs(postID, userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	on, err := NewPostStore(db).ToggleLike(context.Background(), postID, userID)
	require.NoError(t, err)
	assert.False(t, on)
}

func TestToggleMissingPostRollsBack(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := NewPostStore(db).ToggleBookmark(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreatePostWritesGrantInSameTransaction(t *testing.T) {
	db, mock := newMock(t)
	owner, tagID, postID := uuid.New(), uuid.New(), uuid.New()
	now := time.Now().UTC().Truncate(time.Second)
	p := &models.Post{
		Title: "Hello World", Slug: "hello-world", Content: "body",
		Status: models.PostStatusPublished, OwnerID: owner,
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO posts`)).
		WithArgs("Hello World", "hello-world", "body", nil, "published", owner, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "views", "is_active", "created_at", "updated_at"}).
			AddRow(postID.String(), int64(0), true, now, now))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO post_tags`)).
		WithArgs(postID, tagID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO object_grants`)).
		WithArgs(owner, "post.change", postID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := NewPostStore(db).Create(context.Background(), p, []uuid.UUID{tagID})
	require.NoError(t, err)
	assert.Equal(t, postID, p.ID)
	assert.True(t, p.IsActive)
	assert.Equal(t, now, p.CreatedAt)
}

func TestCreatePostUniqueViolationRollsBack(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO posts`)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "posts_slug_key"})
	mock.ExpectRollback()

	err := NewPostStore(db).Create(context.Background(), &models.Post{
		Title: "Hello World", Slug: "hello-world", Status: models.PostStatusDraft, OwnerID: uuid.New(),
	}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicate))
	field, ok := DuplicateField(err)
	assert.True(t, ok)
	assert.Equal(t, "slug", field)
}

func TestGrantHasQuery(t *testing.T) {
	db, mock := newMock(t)
	user, obj := uuid.New(), uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM object_grants WHERE user_id = $1 AND capability = $2 AND object_id = $3`)).
		WithArgs(user, "post.change", obj).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := NewGrantStore(db).Has(context.Background(), user, models.CapChangePost, obj)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSetCommentStatusMissing(t *testing.T) {
	db, mock := newMock(t)
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE comments SET status = $1`)).
		WithArgs("approved", id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewCommentStore(db).SetStatus(context.Background(), id, models.CommentApproved)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchEscapesLikeWildcards(t *testing.T) {
	db, mock := newMock(t)
	want := `%100\%\_%`

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*)`)).
		WithArgs(want).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`p\.title ILIKE \$1`).
		WithArgs(want).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	posts, total, err := NewPostStore(db).List(context.Background(), models.PostFilter{Query: " 100%_ "})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, posts)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%\_`, escapeLike("100%_"))
	assert.Equal(t, `a\\b`, escapeLike(`a\b`))
	assert.Equal(t, "plain", escapeLike("plain"))
}
