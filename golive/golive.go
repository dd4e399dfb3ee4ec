// Package golive orchestrates the go-live announcement pipeline: webhook
// ingestion, token refresh, channel lookup, template rendering and fan-out
// to every connected platform.
package golive

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/codingvibe/go-live-api/internal/httpx"
	"github.com/codingvibe/go-live-api/media"
	"github.com/codingvibe/go-live-api/models"
	"github.com/codingvibe/go-live-api/oauth"
	"github.com/codingvibe/go-live-api/twitch"
	"github.com/codingvibe/go-live-api/twitter"
)

// A Poster publishes an announcement to a secondary platform on behalf of
// a connection, returning the rotated refresh token. The rotated token is
// meaningful even on error and must be persisted when non-empty.
type Poster interface {
	Post(ctx context.Context, refreshToken, text string, image *models.Image) (rotated string, err error)
}

// Env carries everything the request handlers need.
type Env struct {
	*models.Env
	Sessions  *oauth.Sessions
	Twitch    *twitch.Client
	Twitter   *twitter.Client
	Posters   map[models.Platform]Poster
	Validator *media.Validator

	// EventSubSecret signs inbound webhook messages.
	EventSubSecret string
	// EventSubCallbackURL is where Twitch delivers webhook messages.
	EventSubCallbackURL string
	// GoLiveTextLimit bounds the stored announcement template.
	GoLiveTextLimit int
}

// Authenticate verifies the session token attached to the request and
// returns the user it identifies.
func (e *Env) Authenticate(r *http.Request) (*models.User, error) {
	token := sessionToken(r)
	if token == "" {
		return nil, httpx.Error(http.StatusUnauthorized, fmt.Errorf("no session token"))
	}
	login, err := e.Sessions.Verify(token)
	if err != nil {
		return nil, httpx.Error(http.StatusUnauthorized, err)
	}
	user, err := models.NewUsers(e.DB).Find(login)
	if err != nil {
		return nil, httpx.Error(http.StatusUnauthorized, err)
	}
	return user, nil
}

func sessionToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if cookie, err := r.Cookie("token"); err == nil {
		return cookie.Value
	}
	return ""
}
