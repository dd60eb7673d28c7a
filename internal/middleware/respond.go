package middleware

import (
	"encoding/json"
	"net/http"
)

// writeError sends the JSON error body used across the API. redirect may be
// empty.
func writeError(w http.ResponseWriter, status int, msg, redirect string) {
	body := map[string]string{"error": msg}
	if redirect != "" {
		body["redirect"] = redirect
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
