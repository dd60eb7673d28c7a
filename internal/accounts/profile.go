package accounts

import (
	"context"

	"github.com/google/uuid"

	"quillpress/internal/models"
	"quillpress/internal/validate"
)

type ChangePasswordInput struct {
	OldPassword  string `json:"old_password" validate:"required"`
	NewPassword  string `json:"new_password" validate:"required,min=8,max=128"`
	NewPassword2 string `json:"new_password2" validate:"required,eqfield=NewPassword"`
}

func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, in ChangePasswordInput) error {
	u, err := s.user(ctx, userID)
	if err != nil {
		return err
	}
	errs := validate.Collect(in)
	if in.OldPassword != "" && !s.users.CheckPassword(u, in.OldPassword) {
		errs.Add("old_password", "Your old password was entered incorrectly. Please enter it again.")
	}
	if err := errs.Err(); err != nil {
		return err
	}
	return storeErr("change password", s.users.SetPassword(ctx, u.ID, in.NewPassword))
}

type ProfileInput struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Username  string `json:"username" validate:"required,max=150,username"`
	FirstName string `json:"first_name" validate:"notblank,max=150"`
	LastName  string `json:"last_name" validate:"notblank,max=150"`
	Bio       string `json:"bio" validate:"max=5000"`
}

func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, in ProfileInput) (*models.User, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.Email, u.Username = in.Email, in.Username
	u.FirstName, u.LastName, u.Bio = in.FirstName, in.LastName, in.Bio
	if err := s.users.UpdateProfile(ctx, u); err != nil {
		return nil, storeErr("update profile", err)
	}
	return s.user(ctx, userID)
}

// Dashboard is the signed-in user's landing page.
type Dashboard struct {
	User           *models.User `json:"user"`
	ImageURL       string       `json:"image_url"`
	PublishedPosts int          `json:"published_posts"`
	DraftPosts     int          `json:"draft_posts"`
	Bookmarks      int          `json:"bookmarks"`
}

func (s *Service) Dashboard(ctx context.Context, userID uuid.UUID) (*Dashboard, error) {
	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	published, drafts, err := s.posts.OwnerStats(ctx, userID)
	if err != nil {
		return nil, storeErr("owner stats", err)
	}
	_, bookmarks, err := s.posts.List(ctx, models.PostFilter{BookmarkedBy: &userID, Limit: 1})
	if err != nil {
		return nil, storeErr("count bookmarks", err)
	}
	return &Dashboard{
		User:           u,
		ImageURL:       s.ImageURL(u),
		PublishedPosts: published,
		DraftPosts:     drafts,
		Bookmarks:      bookmarks,
	}, nil
}
