// Package accounts implements registration, login, email verification,
// password management, profiles and staff two-factor authentication.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"quillpress/internal/blog"
	"quillpress/internal/mail"
	"quillpress/internal/metrics"
	"quillpress/internal/models"
	"quillpress/internal/store"
	"quillpress/internal/token"
	"quillpress/internal/validate"
)

var (
	ErrNotFound        = errors.New("user not found")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("authentication required")

	// ErrInvalidCredentials covers unknown emails, wrong passwords and
	// inactive accounts alike.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidToken is returned for any verification or reset link that
	// cannot be used. It never says whether the account exists.
	ErrInvalidToken = errors.New("the link is invalid or has expired")

	ErrInvalidCode  = errors.New("invalid code")
	ErrTOTPEnabled  = errors.New("two-factor authentication is already set up")
	ErrTOTPNotSetUp = errors.New("two-factor authentication is not set up")
)

// UserStore is the persistence the service needs. Lookups return (nil, nil)
// when nothing matches; writes wrap store.ErrNotFound.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Create(ctx context.Context, u *models.User, password string) error
	Activate(ctx context.Context, id uuid.UUID) error
	SetPassword(ctx context.Context, id uuid.UUID, password string) error
	TouchLastLogin(ctx context.Context, id uuid.UUID) error
	UpdateProfile(ctx context.Context, u *models.User) error
	SetImage(ctx context.Context, id uuid.UUID, key *string) error
	SetFlags(ctx context.Context, id uuid.UUID, isActive, isStaff *bool) error
	SetTOTPSecret(ctx context.Context, id uuid.UUID, secret string) error
	EnableTOTP(ctx context.Context, id uuid.UUID) error
	ResetTOTP(ctx context.Context, id uuid.UUID) error
	CheckPassword(u *models.User, password string) bool
}

// PostStats feeds the dashboard counters.
type PostStats interface {
	OwnerStats(ctx context.Context, ownerID uuid.UUID) (published, drafts int, err error)
	List(ctx context.Context, f models.PostFilter) ([]models.Post, int, error)
}

// SessionRevoker ends every session of a user. *session.Store implements it.
type SessionRevoker interface {
	DestroyUser(ctx context.Context, userID uuid.UUID) error
}

// Deps bundles the collaborators of a Service. Sessions, Avatars and
// Metrics may be nil.
type Deps struct {
	Users    UserStore
	Posts    PostStats
	Sessions SessionRevoker
	Avatars  blog.ImageStore
	Tokens   *token.Issuer
	Mail     mail.Sender
	BaseURL  string // prefix of the links in outgoing mail
	Issuer   string // TOTP issuer shown in authenticator apps
	Metrics  *metrics.Metrics
}

type Service struct {
	users    UserStore
	posts    PostStats
	sessions SessionRevoker
	avatars  blog.ImageStore
	tokens   *token.Issuer
	mail     mail.Sender
	baseURL  string
	issuer   string
	metrics  *metrics.Metrics
}

func New(d Deps) *Service {
	issuer := d.Issuer
	if issuer == "" {
		issuer = "QuillPress"
	}
	return &Service{
		users:    d.Users,
		posts:    d.Posts,
		sessions: d.Sessions,
		avatars:  d.Avatars,
		tokens:   d.Tokens,
		mail:     d.Mail,
		baseURL:  strings.TrimRight(d.BaseURL, "/"),
		issuer:   issuer,
		metrics:  d.Metrics,
	}
}

// normalizeEmail lower-cases and trims an address so lookups and the unique
// constraint agree.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// duplicateMessages are the field errors for taken unique values.
var duplicateMessages = map[string]string{
	"email":    "A user with that email already exists.",
	"username": "A user with that username already exists.",
}

// storeErr converts store errors into service errors. Unique violations
// become field errors.
func storeErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	}
	if field, ok := store.DuplicateField(err); ok {
		msg, known := duplicateMessages[field]
		if !known {
			msg = "This value is already taken."
		}
		return validate.Errors{field: msg}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// user loads an existing user or returns ErrNotFound.
func (s *Service) user(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if u == nil {
		return nil, ErrNotFound
	}
	return u, nil
}

// link builds an absolute URL for path with the token as a query parameter.
func (s *Service) link(path, tok string) string {
	return s.baseURL + path + "?token=" + url.QueryEscape(tok)
}

// send hands msg to the mail sender. Delivery failures are logged, never
// returned, so a flaky relay cannot undo a registration.
func (s *Service) send(ctx context.Context, msg mail.Message) {
	if s.mail == nil {
		slog.Warn("no mail sender configured", "to", msg.To, "subject", msg.Subject)
		return
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		slog.Error("enqueue mail failed", "to", msg.To, "subject", msg.Subject, "error", err)
	}
}

// revokeSessions logs a user out everywhere after a change to their access.
// A failure is logged only: the account change already happened, and
// sessions re-read the account on every request anyway.
func (s *Service) revokeSessions(ctx context.Context, userID uuid.UUID, reason string) {
	if s.sessions == nil {
		return
	}
	if err := s.sessions.DestroyUser(ctx, userID); err != nil {
		slog.Error("revoke sessions failed", "user_id", userID, "reason", reason, "error", err)
	}
}
