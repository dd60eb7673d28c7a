// Package session provides Valkey-backed HTTP sessions. The browser holds a
// random ID in a cookie; the payload lives in Valkey as JSON and expires on
// its own.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"quillpress/internal/models"
)

const (
	CookieName = "qp_session"

	// DefaultTTL is how long an idle session lives. Get and Update slide it.
	DefaultTTL = 14 * 24 * time.Hour

	keyPrefix = "session:"

	// userPrefix keys the set of session IDs held by one user.
	userPrefix = "user_sessions:"

	// idLength is the byte length of the random session ID (32 bytes = 64 hex chars).
	idLength = 32
)

// Data is the session payload. TOTPEnabled tells a staff session whether
// 2FA means enrolling or verifying.
type Data struct {
	UserID      uuid.UUID `json:"user_id"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	IsStaff     bool      `json:"is_staff"`
	TOTPEnabled bool      `json:"totp_enabled"`
	TwoFADone   bool      `json:"two_fa_done"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewData builds the payload for a freshly logged-in user. 2FA always
// starts incomplete.
func NewData(u *models.User) *Data {
	return &Data{
		UserID:      u.ID,
		Email:       u.Email,
		Username:    u.Username,
		IsStaff:     u.IsStaff,
		TOTPEnabled: u.TOTPEnabled,
	}
}

// Store manages session lifecycle in Valkey.
type Store struct {
	client redis.Cmdable
	ttl    time.Duration
	secure bool
}

// NewStore creates a session store. secure marks the cookie Secure, which
// production deployments behind TLS want.
func NewStore(client redis.Cmdable, secure bool) *Store {
	return &Store{
		client: client,
		ttl:    DefaultTTL,
		secure: secure,
	}
}

// Create stores data under a new ID and sets the cookie. Returns the ID.
func (s *Store) Create(ctx context.Context, w http.ResponseWriter, data *Data) (string, error) {
	id, err := generateID()
	if err != nil {
		return "", fmt.Errorf("session create: %w", err)
	}

	data.CreatedAt = time.Now()
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("session marshal: %w", err)
	}
	index := userPrefix + data.UserID.String()
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, keyPrefix+id, payload, s.ttl)
		pipe.SAdd(ctx, index, id)
		pipe.Expire(ctx, index, s.ttl)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("session store: %w", err)
	}

	http.SetCookie(w, s.cookie(id, int(s.ttl.Seconds())))
	return id, nil
}

// Get returns the session named by the request cookie, or nil when there
// is no cookie or the session has expired.
func (s *Store) Get(ctx context.Context, r *http.Request) (*Data, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, nil
	}

	payload, err := s.client.GetEx(ctx, keyPrefix+cookie.Value, s.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}

	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("session unmarshal: %w", err)
	}
	return &data, nil
}

// Update replaces the payload without changing the ID. Resets the TTL.
func (s *Store) Update(ctx context.Context, r *http.Request, data *Data) error {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return fmt.Errorf("session update: no cookie")
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("session marshal: %w", err)
	}
	// XX keeps a destroyed session from being resurrected.
	ok, err := s.client.SetXX(ctx, keyPrefix+cookie.Value, payload, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("session update: %w", err)
	}
	if !ok {
		return fmt.Errorf("session update: session expired")
	}
	return nil
}

// Destroy removes the session and expires the cookie.
func (s *Store) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil
	}

	http.SetCookie(w, s.cookie("", -1))
	key := keyPrefix + cookie.Value
	payload, err := s.client.GetDel(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("session destroy: %w", err)
	}
	var data Data
	if json.Unmarshal(payload, &data) == nil {
		if err := s.client.SRem(ctx, userPrefix+data.UserID.String(), cookie.Value).Err(); err != nil {
			return fmt.Errorf("session destroy index: %w", err)
		}
	}
	return nil
}

// DestroyUser removes every session of a user, wherever they are logged in.
// Sessions created before the index existed expire on their own.
func (s *Store) DestroyUser(ctx context.Context, userID uuid.UUID) error {
	index := userPrefix + userID.String()
	ids, err := s.client.SMembers(ctx, index).Result()
	if err != nil {
		return fmt.Errorf("session list user %s: %w", userID, err)
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, keyPrefix+id)
	}
	keys = append(keys, index)
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("session destroy user %s: %w", userID, err)
	}
	return nil
}

// HasCookie reports whether the request carries a session cookie, valid
// or not. It needs no Valkey round trip.
func HasCookie(r *http.Request) bool {
	c, err := r.Cookie(CookieName)
	return err == nil && c.Value != ""
}

func (s *Store) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}

// generateID creates a cryptographically random session identifier.
func generateID() (string, error) {
	b := make([]byte, idLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
