package blog

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"quillpress/internal/models"
	"quillpress/internal/validate"
)

// CommentInput is a new comment. ParentID makes it a reply.
type CommentInput struct {
	Content  string     `json:"content" validate:"notblank,max=5000"`
	ParentID *uuid.UUID `json:"parent_id"`
}

// AddComment stores a pending comment by v on a post v can see. A parent
// must be a comment of the same post.
func (s *Service) AddComment(ctx context.Context, v *Viewer, postSlug string, in CommentInput) (*models.Comment, error) {
	if v == nil {
		return nil, ErrUnauthenticated
	}
	p, err := s.visible(ctx, v, postSlug)
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if in.ParentID != nil {
		parent, err := s.comments.FindByID(ctx, *in.ParentID)
		if err != nil {
			return nil, storeErr("find parent comment", err)
		}
		if parent == nil || parent.PostID != p.ID {
			return nil, ErrInvalidParent
		}
	}

	c := &models.Comment{
		Content:  strings.TrimSpace(in.Content),
		Status:   models.CommentPending,
		PostID:   p.ID,
		AuthorID: v.ID,
		ParentID: in.ParentID,
	}
	if err := s.comments.Create(ctx, c); err != nil {
		return nil, storeErr("create comment", err)
	}
	s.metrics.CommentCreated()

	created, err := s.comments.FindByID(ctx, c.ID)
	if err != nil {
		return nil, storeErr("find comment", err)
	}
	if created == nil {
		return nil, ErrNotFound
	}
	return created, nil
}

// CommentNode is a comment with its approved replies.
type CommentNode struct {
	models.Comment
	Depth   int            `json:"depth"`
	Replies []*CommentNode `json:"replies"`
}

// ListComments returns the approved comments of a post v can see, as a tree.
func (s *Service) ListComments(ctx context.Context, v *Viewer, postSlug string) ([]*CommentNode, error) {
	p, err := s.visible(ctx, v, postSlug)
	if err != nil {
		return nil, err
	}
	approved := models.CommentApproved
	comments, err := s.comments.ListByPost(ctx, p.ID, &approved)
	if err != nil {
		return nil, storeErr("list comments", err)
	}
	return BuildCommentTree(comments), nil
}

// BuildCommentTree arranges comments into a forest. Siblings are ordered by
// creation time, then id. A comment whose parent is not in the input is
// dropped together with its replies, so hiding a comment hides its thread.
func BuildCommentTree(comments []models.Comment) []*CommentNode {
	nodes := make(map[uuid.UUID]*CommentNode, len(comments))
	for _, c := range comments {
		nodes[c.ID] = &CommentNode{Comment: c, Replies: []*CommentNode{}}
	}

	roots := []*CommentNode{}
	for _, c := range comments {
		n := nodes[c.ID]
		if c.ParentID == nil {
			roots = append(roots, n)
			continue
		}
		if parent, ok := nodes[*c.ParentID]; ok {
			parent.Replies = append(parent.Replies, n)
		}
	}

	var walk func(level []*CommentNode, depth int)
	walk = func(level []*CommentNode, depth int) {
		sortSiblings(level)
		for _, n := range level {
			n.Depth = depth
			walk(n.Replies, depth+1)
		}
	}
	walk(roots, 0)
	return roots
}

func sortSiblings(level []*CommentNode) {
	sort.SliceStable(level, func(i, j int) bool {
		a, b := level[i], level[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}

// Flatten lists a comment forest depth-first, parents before replies.
func Flatten(roots []*CommentNode) []*CommentNode {
	var out []*CommentNode
	var walk func(level []*CommentNode)
	walk = func(level []*CommentNode) {
		for _, n := range level {
			out = append(out, n)
			walk(n.Replies)
		}
	}
	walk(roots)
	return out
}
