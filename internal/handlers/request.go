package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"quillpress/internal/blog"
	"quillpress/internal/middleware"
)

// maxJSONBody caps every JSON request body.
const maxJSONBody = 1 << 20

// decodeJSON reads the request body into dst. On failure it writes a 400
// and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large.")
		case errors.Is(err, io.EOF):
			writeError(w, http.StatusBadRequest, "Request body is empty.")
		default:
			writeError(w, http.StatusBadRequest, "Malformed JSON body.")
		}
		return false
	}
	return true
}

// pageParam reads ?page=. Missing or unparsable values mean page 1, as the
// paginator treats them.
func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// idParam parses a UUID route parameter. On failure it writes a 404, since
// no object can have a malformed id.
func idParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusNotFound, "Not Found")
		return uuid.Nil, false
	}
	return id, true
}

// viewer returns the logged-in user of the request, or nil.
func viewer(r *http.Request) *blog.Viewer {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		return nil
	}
	return &blog.Viewer{ID: sess.UserID}
}
