package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"quillpress/internal/blog"
	"quillpress/internal/models"
)

// Public serves the read-only blog endpoints. Drafts are visible here only
// to their owner, so handlers pass the viewer through.
type Public struct {
	blog *blog.Service
}

// NewPublic creates a new Public handler group.
func NewPublic(b *blog.Service) *Public {
	return &Public{blog: b}
}

type indexResponse struct {
	*blog.Index
	TopTags    []models.Tag        `json:"top_tags"`
	TopAuthors []models.AuthorStat `json:"top_authors"`
}

// Index serves the landing page listings.
func (p *Public) Index(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	idx, err := p.blog.Index(ctx)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	resp := indexResponse{Index: idx}
	if resp.TopTags, err = p.blog.TopTags(ctx); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if resp.TopAuthors, err = p.blog.TopAuthors(ctx); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Posts lists visible posts newest first.
func (p *Public) Posts(w http.ResponseWriter, r *http.Request) {
	page, err := p.blog.ListPosts(r.Context(), pageParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Search matches ?q= against titles, author names and tag names.
func (p *Public) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	page, err := p.blog.Search(r.Context(), q, pageParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Query string `json:"query"`
		*models.PostPage
	}{q, page})
}

// Post serves a post page and counts the view.
func (p *Public) Post(w http.ResponseWriter, r *http.Request) {
	d, err := p.blog.Detail(r.Context(), viewer(r), chi.URLParam(r, "slug"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Comments serves the approved comment tree of a post.
func (p *Public) Comments(w http.ResponseWriter, r *http.Request) {
	tree, err := p.blog.ListComments(r.Context(), viewer(r), chi.URLParam(r, "slug"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if tree == nil {
		tree = []*blog.CommentNode{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"comments": tree})
}

func (p *Public) Categories(w http.ResponseWriter, r *http.Request) {
	items, err := p.blog.Categories(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": items})
}

func (p *Public) CategoryPosts(w http.ResponseWriter, r *http.Request) {
	c, page, err := p.blog.CategoryPosts(r.Context(), chi.URLParam(r, "slug"), pageParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Category *models.Category `json:"category"`
		*models.PostPage
	}{c, page})
}

func (p *Public) Tags(w http.ResponseWriter, r *http.Request) {
	items, err := p.blog.Tags(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": items})
}

func (p *Public) TagPosts(w http.ResponseWriter, r *http.Request) {
	t, page, err := p.blog.TagPosts(r.Context(), chi.URLParam(r, "slug"), pageParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Tag *models.Tag `json:"tag"`
		*models.PostPage
	}{t, page})
}

// AuthorPosts lists the visible posts of one user.
func (p *Public) AuthorPosts(w http.ResponseWriter, r *http.Request) {
	a, page, err := p.blog.AuthorPosts(r.Context(), chi.URLParam(r, "username"), pageParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Author *models.Author `json:"author"`
		*models.PostPage
	}{a, page})
}
