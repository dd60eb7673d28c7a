// Package token issues the signed one-time links sent by email: account
// verification and password reset.
//
// A token is an HS256 JWT carrying the user id, a purpose and a fingerprint
// of the account state. Any change to that state (activation, a new
// password, a new login) invalidates outstanding tokens, so each token
// works at most once without any server-side bookkeeping.
package token

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"quillpress/internal/models"
)

const issuer = "quillpress"

// Purpose separates tokens so a reset link cannot verify an account.
type Purpose string

const (
	Verify Purpose = "verify"
	Reset  Purpose = "reset"
)

// ErrInvalid covers every way a token can fail. Callers show one generic
// message for all of them.
var ErrInvalid = errors.New("token: invalid or expired")

type claims struct {
	Purpose     Purpose `json:"pur"`
	Fingerprint string  `json:"fp"`
	jwt.RegisteredClaims
}

// Claims is a parsed, signature-checked token.
type Claims struct {
	UserID      uuid.UUID
	fingerprint string
}

// Matches reports whether u is still in the state the token was issued for.
func (c *Claims) Matches(u *models.User) bool {
	if u == nil || u.ID != c.UserID {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.fingerprint), []byte(Fingerprint(u))) == 1
}

// Issuer signs and parses tokens with one secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer returns an Issuer whose tokens expire after ttl.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Fingerprint hashes the parts of u that change when a token is used.
func Fingerprint(u *models.User) string {
	lastLogin := ""
	if u.LastLogin != nil {
		lastLogin = strconv.FormatInt(u.LastLogin.UnixMicro(), 10)
	}
	sum := sha256.Sum256([]byte(u.PasswordHash + "|" + strconv.FormatBool(u.IsActive) + "|" + lastLogin))
	return hex.EncodeToString(sum[:])
}

// Issue returns a signed token for u.
func (i *Issuer) Issue(p Purpose, u *models.User) (string, error) {
	now := i.now()
	c := claims{
		Purpose:     p,
		Fingerprint: Fingerprint(u),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse checks the signature, expiry and purpose of raw.
func (i *Issuer) Parse(p Purpose, raw string) (*Claims, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, ErrInvalid
	}
	if c.Purpose != p {
		return nil, ErrInvalid
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return nil, ErrInvalid
	}
	return &Claims{UserID: id, fingerprint: c.Fingerprint}, nil
}
