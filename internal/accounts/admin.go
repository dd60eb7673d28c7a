package accounts

import (
	"context"

	"github.com/google/uuid"

	"quillpress/internal/models"
)

func (s *Service) Users(ctx context.Context) ([]models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, storeErr("list users", err)
	}
	return users, nil
}

// UserFlags is a partial update; nil fields are left alone.
type UserFlags struct {
	IsActive *bool `json:"is_active"`
	IsStaff  *bool `json:"is_staff"`
}

// SetUserFlags changes is_active and is_staff. Staff cannot change their own
// flags, so the last administrator cannot lock themselves out.
func (s *Service) SetUserFlags(ctx context.Context, actorID, userID uuid.UUID, f UserFlags) (*models.User, error) {
	if actorID == userID {
		return nil, ErrForbidden
	}
	if err := s.users.SetFlags(ctx, userID, f.IsActive, f.IsStaff); err != nil {
		return nil, storeErr("set user flags", err)
	}
	if f.IsActive != nil || f.IsStaff != nil {
		s.revokeSessions(ctx, userID, "flags changed")
	}
	return s.user(ctx, userID)
}

// ResetUserTOTP clears a user's 2FA and logs them out, so they enroll again
// at next login.
func (s *Service) ResetUserTOTP(ctx context.Context, userID uuid.UUID) error {
	if err := s.users.ResetTOTP(ctx, userID); err != nil {
		return storeErr("reset totp", err)
	}
	s.revokeSessions(ctx, userID, "2fa reset")
	return nil
}

// User returns one account.
func (s *Service) User(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.user(ctx, userID)
}
