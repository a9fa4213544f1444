package api

import (
	"net/http"
	"time"
)

// Error is the typed failure for any non-success remote outcome. The
// client converts every transport error and non-2xx response into one of
// these; callers never see an unstructured rejection.
type Error struct {
	// StatusCode is the HTTP status of the response, or 0 if the request
	// never produced one (transport failure).
	StatusCode int

	// Message is human-readable: composed from the HTTP status plus the
	// server's message/detail when the error body parsed, otherwise the
	// raw status line plus body text.
	Message string

	// RetryAfter is the server-suggested wait before retrying.
	// Zero means the server sent no hint.
	RetryAfter time.Duration

	// UpstreamStatus is the status the collaborator saw from its own
	// upstream, when reported. Zero means absent.
	UpstreamStatus int
}

func (e *Error) Error() string {
	return e.Message
}

// status is the most specific status known: the upstream's when
// reported, otherwise the response's own.
func (e *Error) status() int {
	if e.UpstreamStatus != 0 {
		return e.UpstreamStatus
	}
	return e.StatusCode
}

// RateLimited reports whether the request was rejected with 429, either
// by the upstream or by the backend itself. Rate-limited failures are
// never auto-retried.
func (e *Error) RateLimited() bool {
	return e.status() == http.StatusTooManyRequests
}

// UpstreamUnavailable reports a 502/503 outcome. On submit this means
// edits are preserved and a retry is safe.
func (e *Error) UpstreamUnavailable() bool {
	s := e.status()
	return s == http.StatusBadGateway || s == http.StatusServiceUnavailable
}

// errorBody is the best-effort structured error shape servers return on
// non-2xx responses. All fields are optional.
type errorBody struct {
	Message        string `json:"message"`
	Detail         string `json:"detail"`
	RetryAfterMs   int64  `json:"retry_after_ms"`
	UpstreamStatus int    `json:"upstream_status"`
}
