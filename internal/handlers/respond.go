// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers implements the JSON HTTP API. Handlers decode requests,
// call the blog and accounts services and map their errors to statuses in
// one place.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"quillpress/internal/accounts"
	"quillpress/internal/blog"
	"quillpress/internal/middleware"
	"quillpress/internal/validate"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error    string            `json:"error"`
	Redirect string            `json:"redirect,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response failed", "error", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func writeFields(w http.ResponseWriter, fields map[string]string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: "Validation failed", Fields: fields})
}

// writeServiceError maps service errors to responses. Anything unknown is
// logged and answered with a bare 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verrs validate.Errors
		dup   *blog.DuplicateError
	)
	switch {
	case errors.As(err, &verrs):
		writeFields(w, verrs)
	case errors.As(err, &dup):
		writeFields(w, map[string]string{dup.Field: "An object with this " + dup.Field + " already exists."})
	case errors.Is(err, blog.ErrInvalidParent):
		writeFields(w, map[string]string{"parent_id": "Select a comment on this post."})

	case errors.Is(err, blog.ErrNotFound), errors.Is(err, accounts.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not Found")
	case errors.Is(err, blog.ErrForbidden), errors.Is(err, accounts.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorBody{Error: "Forbidden", Redirect: middleware.DashboardPath})
	case errors.Is(err, blog.ErrUnauthenticated), errors.Is(err, accounts.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Authentication required", Redirect: middleware.LoginPath})

	case errors.Is(err, accounts.ErrInvalidCredentials):
		writeError(w, http.StatusBadRequest, "Invalid email or password.")
	case errors.Is(err, accounts.ErrInvalidToken):
		writeError(w, http.StatusBadRequest, "The link is invalid or has expired.")
	case errors.Is(err, accounts.ErrInvalidCode):
		writeError(w, http.StatusBadRequest, "Invalid code. Please try again.")
	case errors.Is(err, accounts.ErrTOTPNotSetUp):
		writeJSON(w, http.StatusConflict, errorBody{Error: "Two-factor authentication is not set up.", Redirect: middleware.TwoFASetup})
	case errors.Is(err, accounts.ErrTOTPEnabled):
		writeJSON(w, http.StatusConflict, errorBody{Error: "Two-factor authentication is already enabled.", Redirect: middleware.TwoFAVerify})
	case errors.Is(err, blog.ErrNoStorage):
		writeError(w, http.StatusServiceUnavailable, "Image storage is not configured.")

	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}
