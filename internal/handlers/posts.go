// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"quillpress/internal/blog"
	"quillpress/internal/cache"
	"quillpress/internal/models"
)

// multipartOverhead is the room left in an upload body for the form
// boundaries and headers around the image itself.
const multipartOverhead = 64 << 10

// Posts serves the endpoints of logged-in readers and authors. Writes that
// change public listings flush the response cache.
type Posts struct {
	blog  *blog.Service
	cache *cache.ResponseCache
}

// NewPosts creates a new Posts handler group. rc may be nil.
func NewPosts(b *blog.Service, rc *cache.ResponseCache) *Posts {
	return &Posts{blog: b, cache: rc}
}

// Create stores a new post owned by the session user.
func (p *Posts) Create(w http.ResponseWriter, r *http.Request) {
	var in blog.PostInput
	if !decodeJSON(w, r, &in) {
		return
	}
	post, err := p.blog.CreatePost(r.Context(), viewer(r), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	p.cache.InvalidateAll(r.Context())
	writeJSON(w, http.StatusCreated, post)
}

// Update edits a post the session user may modify. The slug never changes.
func (p *Posts) Update(w http.ResponseWriter, r *http.Request) {
	var in blog.PostInput
	if !decodeJSON(w, r, &in) {
		return
	}
	post, err := p.blog.UpdatePost(r.Context(), viewer(r), chi.URLParam(r, "slug"), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	p.cache.InvalidateAll(r.Context())
	writeJSON(w, http.StatusOK, post)
}

// Delete soft-deletes a post.
func (p *Posts) Delete(w http.ResponseWriter, r *http.Request) {
	if err := p.blog.DeletePost(r.Context(), viewer(r), chi.URLParam(r, "slug")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	p.cache.InvalidateAll(r.Context())
	writeMessage(w, http.StatusOK, "Post deleted.")
}

// UploadImage replaces the image of a post from the multipart field
// "image".
func (p *Posts) UploadImage(w http.ResponseWriter, r *http.Request) {
	img, done, ok := readImage(w, r)
	if !ok {
		return
	}
	defer done()

	post, err := p.blog.UploadPostImage(r.Context(), viewer(r), chi.URLParam(r, "slug"), img)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	p.cache.InvalidateAll(r.Context())
	writeJSON(w, http.StatusOK, struct {
		*models.Post
		ImageURL string `json:"image_url"`
	}{post, p.blog.ImageURL(post.Image)})
}

// readImage parses the multipart field "image" of r. The content type is
// sniffed, never taken from the client. On failure the response is already
// written; otherwise done releases the parsed form.
func readImage(w http.ResponseWriter, r *http.Request) (img blog.Image, done func(), ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, blog.MaxImageSize+multipartOverhead)
	if err := r.ParseMultipartForm(blog.MaxImageSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large. Maximum size is 5 MB.")
			return img, nil, false
		}
		writeFields(w, map[string]string{"image": "No file was submitted."})
		return img, nil, false
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		r.MultipartForm.RemoveAll()
		writeFields(w, map[string]string{"image": "No file was submitted."})
		return img, nil, false
	}
	done = func() {
		file.Close()
		r.MultipartForm.RemoveAll()
	}

	sniff := make([]byte, 512)
	n, err := io.ReadFull(file, sniff)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		done()
		writeServiceError(w, r, err)
		return img, nil, false
	}
	img = blog.Image{
		ContentType: http.DetectContentType(sniff[:n]),
		Size:        header.Size,
		Body:        io.MultiReader(bytes.NewReader(sniff[:n]), file),
	}
	return img, done, true
}

// Comment adds a pending comment or reply. It shows up once staff approve it.
func (p *Posts) Comment(w http.ResponseWriter, r *http.Request) {
	var in blog.CommentInput
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := p.blog.AddComment(r.Context(), viewer(r), chi.URLParam(r, "slug"), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"comment": c,
		"message": "Your comment is awaiting moderation.",
	})
}

func (p *Posts) Bookmark(w http.ResponseWriter, r *http.Request) {
	on, err := p.blog.ToggleBookmark(r.Context(), viewer(r), chi.URLParam(r, "slug"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"bookmarked": on})
}

func (p *Posts) Like(w http.ResponseWriter, r *http.Request) {
	on, err := p.blog.ToggleLike(r.Context(), viewer(r), chi.URLParam(r, "slug"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"liked": on})
}

// Bookmarks lists the visible posts the session user bookmarked.
func (p *Posts) Bookmarks(w http.ResponseWriter, r *http.Request) {
	page, err := p.blog.Bookmarks(r.Context(), viewer(r), pageParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// MyPosts lists the session user's own posts, drafts included.
func (p *Posts) MyPosts(w http.ResponseWriter, r *http.Request) {
	page, err := p.blog.MyPosts(r.Context(), viewer(r), pageParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
