package testutil

import (
	"net/http"
	"time"

	"clubreg/pkg/requestcontext"
)

// WithCaller marks the request as coming from an authenticated service,
// as the service-token middleware would.
func WithCaller(req *http.Request, service string) *http.Request {
	return req.WithContext(requestcontext.WithCaller(req.Context(), service))
}

// WithRequestTime pins the request-scoped clock.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
