// Package oauth holds the pieces shared by the two platform OAuth flows:
// the short-lived state token store, the credentials returned by an
// exchange or refresh, and the signed session artifact handed to the
// front end after login.
package oauth

import (
	"errors"
	"time"
)

var (
	// ErrInvalidState is returned when a state token is unknown, expired,
	// or has already been used. The user must restart the flow.
	ErrInvalidState = errors.New("invalid or expired state")

	// ErrExchangeFailed is returned when the remote authorization server
	// rejects an authorization code exchange.
	ErrExchangeFailed = errors.New("authorization code exchange failed")

	// ErrRefreshFailed is returned when the remote authorization server
	// rejects a refresh token. The usual cause is a rotated-out token.
	ErrRefreshFailed = errors.New("token refresh failed")
)

// A Credential is the result of an authorization code exchange or a
// refresh. Refresh tokens rotate: the RefreshToken here supersedes
// whatever the caller previously held, and must be persisted even when a
// later step fails.
type Credential struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}
