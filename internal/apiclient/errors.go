package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	// ErrNetwork matches transport failures: the request never produced a
	// response.
	ErrNetwork = errors.New("network error")
	// ErrValidation matches 400 responses.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthenticated matches 401 responses that did not end a session.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden matches 403 responses.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound matches 404 responses.
	ErrNotFound = errors.New("not found")
	// ErrSessionExpired is returned after the stored tokens were rejected
	// and cleared.
	ErrSessionExpired = errors.New("session expired")
)

// APIError is a non-2xx response. Detail carries the "detail" or "error"
// message of the body; Fields carries field-keyed messages as sent.
type APIError struct {
	StatusCode int
	Detail     string
	Fields     map[string][]string
}

func (e *APIError) Error() string {
	msg := e.Detail
	if msg == "" && len(e.Fields) > 0 {
		msg = fieldLines(e.Fields)
	}
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, msg)
}

// Is maps status codes onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.StatusCode == http.StatusBadRequest
	case ErrUnauthenticated:
		return e.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// NetworkError wraps a transport failure.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// parseAPIError decodes a DRF error body: {"detail": ...}, {"error": ...},
// {"field": ["msg", ...]}, a bare list of messages, or anything else.
func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		apiErr.Detail = strings.TrimSpace(string(body))
		if len(apiErr.Detail) > 200 || strings.HasPrefix(apiErr.Detail, "<") {
			apiErr.Detail = ""
		}
		return apiErr
	}

	switch v := raw.(type) {
	case map[string]any:
		for key, value := range v {
			msgs := messages(value)
			if len(msgs) == 0 {
				continue
			}
			switch key {
			case "detail", "error", "message":
				if apiErr.Detail == "" {
					apiErr.Detail = strings.Join(msgs, " ")
				}
			default:
				if apiErr.Fields == nil {
					apiErr.Fields = map[string][]string{}
				}
				apiErr.Fields[key] = msgs
			}
		}
	case []any:
		apiErr.Detail = strings.Join(messages(v), " ")
	case string:
		apiErr.Detail = v
	}
	return apiErr
}

func messages(value any) []string {
	switch v := value.(type) {
	case string:
		return []string{v}
	case []any:
		var out []string
		for _, item := range v {
			out = append(out, messages(item)...)
		}
		return out
	case map[string]any:
		var out []string
		for _, key := range sortedKeys(v) {
			for _, m := range messages(v[key]) {
				out = append(out, key+": "+m)
			}
		}
		return out
	case nil:
		return nil
	default:
		return []string{fmt.Sprint(v)}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func fieldLines(fields map[string][]string) string {
	lines := make([]string, 0, len(fields))
	for _, key := range sortedKeys(fields) {
		lines = append(lines, key+": "+strings.Join(fields[key], ", "))
	}
	return strings.Join(lines, "\n")
}

// Message turns err into the single string shown to a user: the server's
// detail followed by one "field: msg, msg" line per field. Errors without
// a server message, including network errors, yield fallback.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var msg interface{ Message() string }
	if errors.As(err, &msg) {
		if m := msg.Message(); m != "" {
			return m
		}
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return fallback
	}
	var parts []string
	if apiErr.Detail != "" {
		parts = append(parts, apiErr.Detail)
	}
	if len(apiErr.Fields) > 0 {
		parts = append(parts, fieldLines(apiErr.Fields))
	}
	if len(parts) == 0 {
		return fallback
	}
	return strings.Join(parts, "\n")
}
