// Package api implements the login flows and account endpoints.
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/codingvibe/go-live-api/golive"
	"github.com/codingvibe/go-live-api/internal/httpx"
	"github.com/codingvibe/go-live-api/internal/to"
	"github.com/codingvibe/go-live-api/models"
	"github.com/codingvibe/go-live-api/oauth"
	"gorm.io/gorm"
)

// TwitchLogin redirects the user into the Twitch authorization flow.
func TwitchLogin(env *golive.Env, w http.ResponseWriter, r *http.Request) error {
	uri, err := env.Twitch.LoginURL()
	if err != nil {
		return err
	}
	return httpx.Redirect(w, uri)
}

// TwitterLogin redirects the user into the Twitter authorization flow.
func TwitterLogin(env *golive.Env, w http.ResponseWriter, r *http.Request) error {
	uri, err := env.Twitter.LoginURL()
	if err != nil {
		return err
	}
	return httpx.Redirect(w, uri)
}

type callbackParams struct {
	Code             string `schema:"code"`
	State            string `schema:"state"`
	Error            string `schema:"error"`
	ErrorDescription string `schema:"error_description"`
}

// TwitchLoginCallback completes the Twitch login: it exchanges the
// authorization code, provisions the user on first login, makes sure a
// go-live subscription exists for them, and issues a session.
func TwitchLoginCallback(env *golive.Env, w http.ResponseWriter, r *http.Request) error {
	var params callbackParams
	if err := httpx.Params(r, &params); err != nil {
		return err
	}
	if params.Error != "" {
		// the user declined on the authorization page
		env.Log().Info("twitch login declined", "error", params.Error, "description", params.ErrorDescription)
		w.WriteHeader(http.StatusNoContent)
		return nil
	}
	if params.State == "" {
		return httpx.Error(http.StatusUnauthorized, fmt.Errorf("missing state"))
	}

	cred, err := env.Twitch.CompleteLogin(r.Context(), params.State, params.Code)
	switch {
	case errors.Is(err, oauth.ErrInvalidState):
		return httpx.Error(http.StatusUnauthorized, err)
	case errors.Is(err, oauth.ErrExchangeFailed):
		return httpx.Error(http.StatusBadGateway, err)
	case err != nil:
		return err
	}

	info, err := env.Twitch.User(r.Context(), cred.AccessToken)
	if err != nil {
		return httpx.Error(http.StatusBadGateway, err)
	}

	users := models.NewUsers(env.DB)
	user, err := users.Find(info.Login)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if user, err = users.Create(info.Login, cred.RefreshToken); err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		err = users.UpdateConnections(user.TwitchID,
			user.Connections.Set(models.PlatformTwitch, cred.RefreshToken))
		if err != nil {
			return err
		}
	}

	err = env.Twitch.EnsureGoLiveSubscription(r.Context(), info.ID, env.EventSubCallbackURL, env.EventSubSecret)
	if err != nil {
		// the login still succeeds; a later login will retry
		env.Log().Error("ensure go-live subscription", "user", info.Login, "error", err.Error())
	}

	token, err := env.Sessions.Issue(user.TwitchID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return to.JSON(w, map[string]string{
		"twitchName": user.TwitchID,
		"token":      token,
	})
}

// TwitterLoginCallback completes the Twitter connection for an already
// logged in user.
func TwitterLoginCallback(env *golive.Env, w http.ResponseWriter, r *http.Request) error {
	user, err := env.Authenticate(r)
	if err != nil {
		return err
	}
	var params callbackParams
	if err := httpx.Params(r, &params); err != nil {
		return err
	}
	if params.Error != "" {
		env.Log().Info("twitter connect declined", "error", params.Error, "description", params.ErrorDescription)
		w.WriteHeader(http.StatusNoContent)
		return nil
	}
	if params.State == "" {
		return httpx.Error(http.StatusUnauthorized, fmt.Errorf("missing state"))
	}

	cred, err := env.Twitter.CompleteLogin(r.Context(), params.State, params.Code)
	switch {
	case errors.Is(err, oauth.ErrInvalidState):
		return httpx.Error(http.StatusUnauthorized, err)
	case errors.Is(err, oauth.ErrExchangeFailed):
		return httpx.Error(http.StatusBadGateway, err)
	case err != nil:
		return err
	}

	users := models.NewUsers(env.DB)
	err = users.UpdateConnections(user.TwitchID,
		user.Connections.Set(models.PlatformTwitter, cred.RefreshToken))
	if err != nil {
		return err
	}
	return to.JSON(w, map[string]string{
		"platform": string(models.PlatformTwitter),
	})
}

// LoggedIn reports who the session belongs to.
func LoggedIn(env *golive.Env, w http.ResponseWriter, r *http.Request) error {
	user, err := env.Authenticate(r)
	if err != nil {
		return err
	}
	return to.JSON(w, map[string]string{
		"twitchName": user.TwitchID,
	})
}
