// Package testutil provides common helpers for handler and integration
// tests.
package testutil

import (
	"net/http"
	"time"

	id "clearledger/pkg/domain"
	"clearledger/pkg/requestcontext"
)

// WithActor stamps the request context with an authenticated account, the
// same way the auth middleware would after validating a bearer token.
func WithActor(req *http.Request, account id.AccountID) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), account))
}

// WithPinnedTime fixes the request's "now" so handler output is
// deterministic.
func WithPinnedTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
