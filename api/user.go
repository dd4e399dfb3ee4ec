package api

import (
	"fmt"
	"net/http"

	"github.com/codingvibe/go-live-api/golive"
	"github.com/codingvibe/go-live-api/internal/algorithms"
	"github.com/codingvibe/go-live-api/internal/httpx"
	"github.com/codingvibe/go-live-api/internal/to"
	"github.com/codingvibe/go-live-api/models"
)

// ConnectionsIndex lists the platforms the user has connected, not
// counting twitch itself. Refresh tokens never leave the server.
func ConnectionsIndex(env *golive.Env, w http.ResponseWriter, r *http.Request) error {
	user, err := env.Authenticate(r)
	if err != nil {
		return err
	}
	secondary := algorithms.Filter(user.Connections, func(c models.Connection) bool {
		return c.Type != models.PlatformTwitch
	})
	return to.JSON(w, algorithms.Map(secondary, func(c models.Connection) string {
		return string(c.Type)
	}))
}

// ConnectionsDestroy disconnects one platform.
func ConnectionsDestroy(env *golive.Env, w http.ResponseWriter, r *http.Request) error {
	user, err := env.Authenticate(r)
	if err != nil {
		return err
	}
	var params struct {
		Platform string `schema:"platform"`
	}
	if err := httpx.Params(r, &params); err != nil {
		return err
	}
	if params.Platform == "" {
		return httpx.Error(http.StatusBadRequest, fmt.Errorf("platform is required"))
	}
	if models.Platform(params.Platform) == models.PlatformTwitch {
		return httpx.Error(http.StatusBadRequest, fmt.Errorf("cannot disconnect twitch"))
	}
	err = models.NewUsers(env.DB).UpdateConnections(user.TwitchID,
		user.Connections.Remove(models.Platform(params.Platform)))
	if err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// GoLiveTextShow returns the user's announcement template.
func GoLiveTextShow(env *golive.Env, w http.ResponseWriter, r *http.Request) error {
	user, err := env.Authenticate(r)
	if err != nil {
		return err
	}
	if user.GoLiveText == "" {
		return httpx.Error(http.StatusNotFound, fmt.Errorf("no go-live text set"))
	}
	return to.JSON(w, map[string]string{
		"goLiveText": user.GoLiveText,
	})
}

// GoLiveTextUpdate replaces the user's announcement template.
func GoLiveTextUpdate(env *golive.Env, w http.ResponseWriter, r *http.Request) error {
	user, err := env.Authenticate(r)
	if err != nil {
		return err
	}
	var params struct {
		GoLiveText string `json:"goLiveText" schema:"goLiveText"`
	}
	if err := httpx.Params(r, &params); err != nil {
		return err
	}
	if params.GoLiveText == "" {
		return httpx.Error(http.StatusBadRequest, fmt.Errorf("goLiveText is required"))
	}
	if len(params.GoLiveText) > env.GoLiveTextLimit {
		return httpx.Error(http.StatusBadRequest,
			fmt.Errorf("goLiveText exceeds %d characters", env.GoLiveTextLimit))
	}
	if err := models.NewUsers(env.DB).SetGoLiveText(user.TwitchID, params.GoLiveText); err != nil {
		return err
	}
	return to.JSON(w, map[string]string{
		"goLiveText": params.GoLiveText,
	})
}
