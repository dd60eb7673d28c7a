package accounts

import (
	"context"
	"errors"
	"fmt"

	"quillpress/internal/mail"
	"quillpress/internal/models"
	"quillpress/internal/token"
	"quillpress/internal/validate"
)

type RegisterInput struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Username  string `json:"username" validate:"required,max=150,username"`
	FirstName string `json:"first_name" validate:"notblank,max=150"`
	LastName  string `json:"last_name" validate:"notblank,max=150"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	Password2 string `json:"password2" validate:"required,eqfield=Password"`
}

// Register creates an inactive account and mails a verification link.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	u := &models.User{
		Email:     in.Email,
		Username:  in.Username,
		FirstName: in.FirstName,
		LastName:  in.LastName,
	}
	if err := s.users.Create(ctx, u, in.Password); err != nil {
		return nil, storeErr("register", err)
	}
	s.metrics.Registered()

	tok, err := s.tokens.Issue(token.Verify, u)
	if err != nil {
		return nil, err
	}
	s.send(ctx, mail.Message{
		To:      u.Email,
		Subject: "Account Verification",
		Body: fmt.Sprintf("Hi %s,\n\nPlease confirm your email address to activate your account:\n\n%s\n",
			u.FullName(), s.link("/accounts/verify", tok)),
	})
	return u, nil
}

// VerifyAccount activates the account a verification token was issued for.
// Activation changes the user's fingerprint, so the token works once.
func (s *Service) VerifyAccount(ctx context.Context, raw string) (*models.User, error) {
	u, err := s.consume(ctx, token.Verify, raw)
	if err != nil {
		return nil, err
	}
	if err := s.users.Activate(ctx, u.ID); err != nil {
		return nil, storeErr("activate", err)
	}
	u.IsActive = true
	return u, nil
}

// consume resolves raw to the user it was issued for, provided the user is
// still in the state the token captured.
func (s *Service) consume(ctx context.Context, p token.Purpose, raw string) (*models.User, error) {
	claims, err := s.tokens.Parse(p, raw)
	if err != nil {
		return nil, ErrInvalidToken
	}
	u, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if u == nil || !claims.Matches(u) {
		return nil, ErrInvalidToken
	}
	return u, nil
}

// Login checks credentials and records the login. Unknown emails, wrong
// passwords and inactive accounts all return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("login lookup: %w", err)
	}
	if u == nil || !u.IsActive || !s.users.CheckPassword(u, password) {
		return nil, ErrInvalidCredentials
	}
	if err := s.users.TouchLastLogin(ctx, u.ID); err != nil {
		return nil, storeErr("touch last login", err)
	}
	return u, nil
}

// RequestPasswordReset mails a reset link when email belongs to an active
// account. The caller sees the same result either way.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return fmt.Errorf("reset lookup: %w", err)
	}
	if u == nil || !u.IsActive {
		return nil
	}
	tok, err := s.tokens.Issue(token.Reset, u)
	if err != nil {
		return err
	}
	s.send(ctx, mail.Message{
		To:      u.Email,
		Subject: "Password reset",
		Body: fmt.Sprintf("Hi %s,\n\nYou asked to reset your password. Follow this link to choose a new one:\n\n%s\n\n"+
			"If you did not ask for this, you can ignore this email.\n",
			u.FullName(), s.link("/accounts/password-reset/confirm", tok)),
	})
	return nil
}

type ResetPasswordInput struct {
	Token     string `json:"token" validate:"required"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	Password2 string `json:"password2" validate:"required,eqfield=Password"`
}

// ResetPassword sets a new password using a reset token. The new hash
// changes the fingerprint, so the token works once.
func (s *Service) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	if err := validate.Struct(in); err != nil {
		var verrs validate.Errors
		if errors.As(err, &verrs) && len(verrs) == 1 && verrs["token"] != "" {
			return ErrInvalidToken
		}
		return err
	}
	u, err := s.consume(ctx, token.Reset, in.Token)
	if err != nil {
		return err
	}
	if err := s.users.SetPassword(ctx, u.ID, in.Password); err != nil {
		return storeErr("reset password", err)
	}
	s.revokeSessions(ctx, u.ID, "password reset")
	return nil
}
