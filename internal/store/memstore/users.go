package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"quillpress/internal/models"
	"quillpress/internal/store"
)

// UserStore is the in-memory counterpart of store.UserStore.
type UserStore struct{ d *DB }

func (s *UserStore) find(match func(*models.User) bool) *models.User {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, u := range s.d.users {
		if match(u) {
			c := *u
			return &c
		}
	}
	return nil
}

func (s *UserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return s.find(func(u *models.User) bool { return strings.EqualFold(u.Email, email) }), nil
}

func (s *UserStore) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	return s.find(func(u *models.User) bool { return u.ID == id }), nil
}

func (s *UserStore) FindByUsername(_ context.Context, username string) (*models.User, error) {
	return s.find(func(u *models.User) bool { return u.Username == username }), nil
}

func (s *UserStore) List(_ context.Context) ([]models.User, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	out := make([]models.User, 0, len(s.d.users))
	for _, u := range s.d.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateJoined.Before(out[j].DateJoined) })
	return out, nil
}

// checkUnique enforces the email and username constraints. Callers hold mu.
func (s *UserStore) checkUnique(u *models.User) error {
	for _, other := range s.d.users {
		if other.ID == u.ID {
			continue
		}
		if other.Email == u.Email {
			return duplicate("users_email_key")
		}
		if other.Username == u.Username {
			return duplicate("users_username_key")
		}
	}
	return nil
}

func (s *UserStore) Create(_ context.Context, u *models.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if err := s.checkUnique(u); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	u.ID = uuid.New()
	u.PasswordHash = string(hash)
	u.DateJoined = s.d.now()
	u.UpdatedAt = u.DateJoined
	c := *u
	s.d.users[u.ID] = &c
	return nil
}

// update applies fn to the stored user. Returns store.ErrNotFound if absent.
func (s *UserStore) update(op string, id uuid.UUID, fn func(u *models.User) error) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	u, ok := s.d.users[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}
	if err := fn(u); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	u.UpdatedAt = s.d.now()
	return nil
}

func (s *UserStore) Activate(_ context.Context, id uuid.UUID) error {
	return s.update("activate user", id, func(u *models.User) error {
		u.IsActive = true
		return nil
	})
}

func (s *UserStore) SetPassword(_ context.Context, id uuid.UUID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.update("set password", id, func(u *models.User) error {
		u.PasswordHash = string(hash)
		return nil
	})
}

func (s *UserStore) TouchLastLogin(_ context.Context, id uuid.UUID) error {
	return s.update("touch last login", id, func(u *models.User) error {
		t := s.d.now()
		u.LastLogin = &t
		return nil
	})
}

func (s *UserStore) UpdateProfile(_ context.Context, in *models.User) error {
	return s.update("update profile", in.ID, func(u *models.User) error {
		next := *u
		next.Email, next.Username = in.Email, in.Username
		if err := s.checkUnique(&next); err != nil {
			return err
		}
		u.Email, u.Username = in.Email, in.Username
		u.FirstName, u.LastName, u.Bio = in.FirstName, in.LastName, in.Bio
		return nil
	})
}

func (s *UserStore) SetImage(_ context.Context, id uuid.UUID, key *string) error {
	return s.update("set user image", id, func(u *models.User) error {
		u.Image = key
		return nil
	})
}

func (s *UserStore) SetFlags(_ context.Context, id uuid.UUID, isActive, isStaff *bool) error {
	return s.update("set user flags", id, func(u *models.User) error {
		if isActive != nil {
			u.IsActive = *isActive
		}
		if isStaff != nil {
			u.IsStaff = *isStaff
		}
		return nil
	})
}

func (s *UserStore) SetTOTPSecret(_ context.Context, id uuid.UUID, secret string) error {
	return s.update("set totp secret", id, func(u *models.User) error {
		u.TOTPSecret = &secret
		return nil
	})
}

func (s *UserStore) EnableTOTP(_ context.Context, id uuid.UUID) error {
	return s.update("enable totp", id, func(u *models.User) error {
		u.TOTPEnabled = true
		return nil
	})
}

func (s *UserStore) ResetTOTP(_ context.Context, id uuid.UUID) error {
	return s.update("reset totp", id, func(u *models.User) error {
		u.TOTPSecret = nil
		u.TOTPEnabled = false
		return nil
	})
}

func (s *UserStore) CheckPassword(user *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

func (s *UserStore) TopAuthors(_ context.Context, limit int) ([]models.AuthorStat, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	counts := map[uuid.UUID]int{}
	for _, p := range s.d.posts {
		if visible(p) {
			counts[p.OwnerID]++
		}
	}
	out := make([]models.AuthorStat, 0, len(counts))
	for id, n := range counts {
		out = append(out, models.AuthorStat{Author: s.d.author(id), PostCount: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PostCount != out[j].PostCount {
			return out[i].PostCount > out[j].PostCount
		}
		return out[i].Username < out[j].Username
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
