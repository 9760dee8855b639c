package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

type contextKey string

const contextRequestKey contextKey = "request"

// ErrorResponse is the body of JSON error replies.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// wantsHTML treats a request as a browser one when it accepts text/html
// or comes from a plain form post.
func wantsHTML(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "text/html") {
		return true
	}
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/form-data")
}

func currentURI(r *http.Request) string {
	u := *r.URL
	return u.RequestURI()
}

// safeReturn keeps return targets on this site.
func safeReturn(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return fallback
	}
	return target
}

func formInt(r *http.Request, key string) int {
	v, err := strconv.Atoi(strings.TrimSpace(r.FormValue(key)))
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func withRequest(ctx context.Context, rs *requestState) context.Context {
	return context.WithValue(ctx, contextRequestKey, rs)
}

func requestFrom(ctx context.Context) *requestState {
	rs, _ := ctx.Value(contextRequestKey).(*requestState)
	return rs
}
