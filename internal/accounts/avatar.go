package accounts

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"quillpress/internal/blog"
	"quillpress/internal/models"
	"quillpress/internal/storage"
	"quillpress/internal/validate"
)

// UploadImage replaces the profile picture of a user. The previous object is
// removed from storage once the new key is saved.
func (s *Service) UploadImage(ctx context.Context, userID uuid.UUID, img blog.Image) (*models.User, error) {
	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.avatars == nil {
		return nil, blog.ErrNoStorage
	}
	errs := validate.Errors{}
	if !strings.HasPrefix(img.ContentType, "image/") {
		errs.Add("image", "Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}
	if img.Size <= 0 || img.Size > blog.MaxImageSize {
		errs.Add("image", "The image must be between 1 byte and 5 MB.")
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	key := storage.UserImageKey(u.ID, img.ContentType)
	if err := s.avatars.Put(ctx, key, img.ContentType, img.Body, img.Size); err != nil {
		return nil, storeErr("upload profile image", err)
	}
	if err := s.users.SetImage(ctx, u.ID, &key); err != nil {
		if derr := s.avatars.Delete(ctx, key); derr != nil {
			slog.Warn("orphaned profile image", "key", key, "error", derr)
		}
		return nil, storeErr("save profile image key", err)
	}
	if u.Image != nil {
		if err := s.avatars.Delete(ctx, *u.Image); err != nil {
			slog.Warn("failed to delete previous profile image", "key", *u.Image, "error", err)
		}
	}
	return s.user(ctx, userID)
}

// ImageURL returns the public URL of a profile picture, or "" if u has none.
func (s *Service) ImageURL(u *models.User) string {
	if u == nil || u.Image == nil || s.avatars == nil {
		return ""
	}
	return s.avatars.URL(*u.Image)
}
