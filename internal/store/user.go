// Package store provides database access methods for all QuillPress
// entities. Each store struct wraps a *sql.DB and exposes typed query methods.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"quillpress/internal/models"
)

// UserStore handles all user-related database operations.
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a new UserStore with the given database connection.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `id, email, username, first_name, last_name, bio, image, password_hash,
	is_active, is_staff, totp_secret, totp_enabled, date_joined, last_login, updated_at`

func scanUser(scanner interface{ Scan(...any) error }) (*models.User, error) {
	u := &models.User{}
	err := scanner.Scan(
		&u.ID, &u.Email, &u.Username, &u.FirstName, &u.LastName, &u.Bio, &u.Image, &u.PasswordHash,
		&u.IsActive, &u.IsStaff, &u.TOTPSecret, &u.TOTPEnabled, &u.DateJoined, &u.LastLogin, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// findOne runs a single-row user query. Returns nil if not found.
func (s *UserStore) findOne(ctx context.Context, op, where string, arg any) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// FindByEmail retrieves a user by email, case-insensitively. Returns nil if not found.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, "find user by email", "lower(email) = lower($1)", email)
}

// FindByID retrieves a user by their UUID. Returns nil if not found.
func (s *UserStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.findOne(ctx, "find user by id", "id = $1", id)
}

// FindByUsername retrieves a user by username. Returns nil if not found.
func (s *UserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findOne(ctx, "find user by username", "username = $1", username)
}

// List returns all users ordered by join date.
func (s *UserStore) List(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY date_joined ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// Create inserts a new user with a bcrypt-hashed password. The ID and
// timestamps are filled in on u.
func (s *UserStore) Create(ctx context.Context, u *models.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO users (email, username, first_name, last_name, bio, password_hash, is_active, is_staff)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, date_joined, updated_at
	`, u.Email, u.Username, u.FirstName, u.LastName, u.Bio, u.PasswordHash, u.IsActive, u.IsStaff,
	).Scan(&u.ID, &u.DateJoined, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", asDuplicate(err))
	}
	return nil
}

// exec runs a single-row update and reports ErrNotFound when no row matched.
func (s *UserStore) exec(ctx context.Context, op, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, asDuplicate(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// Activate marks a user active after email verification.
func (s *UserStore) Activate(ctx context.Context, id uuid.UUID) error {
	return s.exec(ctx, "activate user",
		`UPDATE users SET is_active = TRUE, updated_at = NOW() WHERE id = $1`, id)
}

// SetPassword replaces the user's password hash.
func (s *UserStore) SetPassword(ctx context.Context, id uuid.UUID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.exec(ctx, "set password",
		`UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`, string(hash), id)
}

// TouchLastLogin records a successful login.
func (s *UserStore) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	return s.exec(ctx, "touch last login",
		`UPDATE users SET last_login = NOW() WHERE id = $1`, id)
}

// UpdateProfile saves the editable profile fields of u.
func (s *UserStore) UpdateProfile(ctx context.Context, u *models.User) error {
	return s.exec(ctx, "update profile", `
		UPDATE users SET email = $1, username = $2, first_name = $3, last_name = $4, bio = $5,
		       updated_at = NOW()
		WHERE id = $6
	`, u.Email, u.Username, u.FirstName, u.LastName, u.Bio, u.ID)
}

// SetImage stores the object key of the profile picture. Nil clears it.
func (s *UserStore) SetImage(ctx context.Context, id uuid.UUID, key *string) error {
	return s.exec(ctx, "set user image",
		`UPDATE users SET image = $1, updated_at = NOW() WHERE id = $2`, key, id)
}

// SetFlags updates is_active and/or is_staff. Nil leaves a flag unchanged.
func (s *UserStore) SetFlags(ctx context.Context, id uuid.UUID, isActive, isStaff *bool) error {
	return s.exec(ctx, "set user flags", `
		UPDATE users SET is_active = COALESCE($1, is_active), is_staff = COALESCE($2, is_staff),
		       updated_at = NOW()
		WHERE id = $3
	`, isActive, isStaff, id)
}

// SetTOTPSecret saves the TOTP secret for a user (during 2FA setup).
func (s *UserStore) SetTOTPSecret(ctx context.Context, id uuid.UUID, secret string) error {
	return s.exec(ctx, "set totp secret",
		`UPDATE users SET totp_secret = $1, updated_at = NOW() WHERE id = $2`, secret, id)
}

// EnableTOTP marks 2FA as active for a user (after successful code verification).
func (s *UserStore) EnableTOTP(ctx context.Context, id uuid.UUID) error {
	return s.exec(ctx, "enable totp",
		`UPDATE users SET totp_enabled = TRUE, updated_at = NOW() WHERE id = $1`, id)
}

// ResetTOTP clears the TOTP secret and disables 2FA for a user.
// The user will be forced to set up 2FA again on their next login.
func (s *UserStore) ResetTOTP(ctx context.Context, id uuid.UUID) error {
	return s.exec(ctx, "reset totp",
		`UPDATE users SET totp_secret = NULL, totp_enabled = FALSE, updated_at = NOW() WHERE id = $1`, id)
}

// CheckPassword verifies a plaintext password against the user's stored hash.
func (s *UserStore) CheckPassword(user *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

// TopAuthors returns users ranked by their number of published, active posts.
func (s *UserStore) TopAuthors(ctx context.Context, limit int) ([]models.AuthorStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.first_name, u.last_name, COUNT(p.id) AS post_count
		FROM users u
		JOIN posts p ON p.owner_id = u.id AND `+visiblePostPredicate+`
		GROUP BY u.id
		ORDER BY post_count DESC, u.username
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("top authors: %w", err)
	}
	defer rows.Close()

	var out []models.AuthorStat
	for rows.Next() {
		var a models.AuthorStat
		if err := rows.Scan(&a.ID, &a.Username, &a.FirstName, &a.LastName, &a.PostCount); err != nil {
			return nil, fmt.Errorf("scan author: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
