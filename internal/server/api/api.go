// Package api provides the HTTP API handlers for field placement, tracking,
// pitch history and pitch hooks.
package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

const timeLayout = time.RFC3339Nano

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func methodNotAllowed(w http.ResponseWriter) {
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}

// subpath returns the request path below prefix without leading slashes.
func subpath(r *http.Request, prefix string) string {
	return strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, prefix), "/")
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
