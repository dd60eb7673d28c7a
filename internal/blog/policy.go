package blog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"quillpress/internal/models"
)

// Viewer is the user a request acts for. A nil *Viewer is anonymous.
type Viewer struct {
	ID uuid.UUID
}

// Policy decides who can see and change posts.
type Policy struct {
	grants GrantStore
}

// NewPolicy returns a Policy that checks modify rights against grants.
func NewPolicy(grants GrantStore) Policy {
	return Policy{grants: grants}
}

// CanView reports whether v may see post. Inactive posts are hidden from
// everyone and drafts from everyone but their owner.
func (p Policy) CanView(v *Viewer, post *models.Post) bool {
	if !post.IsActive {
		return false
	}
	if post.Status == models.PostStatusDraft && (v == nil || v.ID != post.OwnerID) {
		return false
	}
	return true
}

// CanModify reports whether v holds the post.change grant on post. Owners
// get the grant when the post is created; staff can grant it to others.
func (p Policy) CanModify(ctx context.Context, v *Viewer, post *models.Post) (bool, error) {
	if v == nil || !post.IsActive {
		return false, nil
	}
	ok, err := p.grants.Has(ctx, v.ID, models.CapChangePost, post.ID)
	if err != nil {
		return false, fmt.Errorf("check post grant: %w", err)
	}
	return ok, nil
}
