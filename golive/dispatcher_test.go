package golive

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/codingvibe/go-live-api/models"
	"github.com/codingvibe/go-live-api/oauth"
	"github.com/codingvibe/go-live-api/twitch"
	"github.com/go-json-experiment/json"
	"github.com/stretchr/testify/require"
)

type postCall struct {
	refreshToken string
	text         string
	image        *models.Image
}

type stubPoster struct {
	rotated string
	err     error
	calls   []postCall
}

func (p *stubPoster) Post(ctx context.Context, refreshToken, text string, image *models.Image) (string, error) {
	p.calls = append(p.calls, postCall{refreshToken, text, image})
	return p.rotated, p.err
}

// fakeTwitch serves the token and channel endpoints Dispatch depends on.
func fakeTwitch(t *testing.T, channelTitle string) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("grant_type") != "refresh_token" {
			http.Error(w, "unexpected grant", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.MarshalFull(w, map[string]any{
			"access_token":  "user-access",
			"refresh_token": "twitch-rotated",
			"expires_in":    3600,
		})
	})
	mux.HandleFunc("/helix/channels", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.MarshalFull(w, map[string]any{
			"data": []map[string]any{{
				"broadcaster_login": r.URL.Query().Get("broadcaster_id"),
				"title":             channelTitle,
			}},
		})
	})
	return mux
}

func connectTwitter(t *testing.T, env *Env, user *models.User, refreshToken string) {
	t.Helper()
	conns := user.Connections.Set(models.PlatformTwitter, refreshToken)
	require.NoError(t, models.NewUsers(env.DB).UpdateConnections(user.TwitchID, conns))
}

func TestDispatch(t *testing.T) {
	require := require.New(t)
	env := testEnv(t, fakeTwitch(t, "Cool Stream"))

	user := mockUser(t, env.DB, "disp_user")
	connectTwitter(t, env, user, "twitter-refresh")
	images := []models.Image{{URL: "https://img.example/a.png", AltText: "a cat"}}
	require.NoError(models.NewImages(env.DB).Add(user.TwitchID, images))

	poster := &stubPoster{rotated: "twitter-rotated"}
	env.Posters[models.PlatformTwitter] = poster

	err := env.Dispatch(context.Background(), &twitch.StreamOnlineEvent{
		BroadcasterUserID:    "123",
		BroadcasterUserLogin: "disp_user",
	})
	require.NoError(err)

	require.Len(poster.calls, 1)
	call := poster.calls[0]
	require.Equal("twitter-refresh", call.refreshToken)
	require.Equal("Cool Stream https://twitch.tv/disp_user", call.text)
	require.NotNil(call.image)
	require.Equal("https://img.example/a.png", call.image.URL)

	// both rotated tokens must be persisted
	fresh, err := models.NewUsers(env.DB).Find(user.TwitchID)
	require.NoError(err)
	conn, ok := fresh.Connections.Get(models.PlatformTwitch)
	require.True(ok)
	require.Equal("twitch-rotated", conn.RefreshToken)
	conn, ok = fresh.Connections.Get(models.PlatformTwitter)
	require.True(ok)
	require.Equal("twitter-rotated", conn.RefreshToken)
}

func TestDispatchNoImages(t *testing.T) {
	require := require.New(t)
	env := testEnv(t, fakeTwitch(t, "No Pics"))

	user := mockUser(t, env.DB, "disp_noimage")
	connectTwitter(t, env, user, "twitter-refresh")
	poster := &stubPoster{rotated: "twitter-rotated"}
	env.Posters[models.PlatformTwitter] = poster

	err := env.Dispatch(context.Background(), &twitch.StreamOnlineEvent{
		BroadcasterUserID:    "124",
		BroadcasterUserLogin: "disp_noimage",
	})
	require.NoError(err)
	require.Len(poster.calls, 1)
	require.Nil(poster.calls[0].image)
}

func TestDispatchPostFailurePersistsRotatedToken(t *testing.T) {
	require := require.New(t)
	env := testEnv(t, fakeTwitch(t, "Fails Anyway"))

	user := mockUser(t, env.DB, "disp_fail")
	connectTwitter(t, env, user, "twitter-refresh")
	poster := &stubPoster{rotated: "twitter-rotated", err: errors.New("tweet rejected")}
	env.Posters[models.PlatformTwitter] = poster

	err := env.Dispatch(context.Background(), &twitch.StreamOnlineEvent{
		BroadcasterUserID:    "125",
		BroadcasterUserLogin: "disp_fail",
	})
	require.NoError(err)

	fresh, err := models.NewUsers(env.DB).Find(user.TwitchID)
	require.NoError(err)
	conn, _ := fresh.Connections.Get(models.PlatformTwitter)
	require.Equal("twitter-rotated", conn.RefreshToken)
}

func TestDispatchRefreshFailure(t *testing.T) {
	require := require.New(t)
	env := testEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid refresh token", http.StatusBadRequest)
	}))

	user := mockUser(t, env.DB, "disp_refresh")
	err := env.Dispatch(context.Background(), &twitch.StreamOnlineEvent{
		BroadcasterUserID:    "126",
		BroadcasterUserLogin: "disp_refresh",
	})
	require.ErrorIs(err, oauth.ErrRefreshFailed)

	// stored token untouched
	fresh, err := models.NewUsers(env.DB).Find(user.TwitchID)
	require.NoError(err)
	conn, _ := fresh.Connections.Get(models.PlatformTwitch)
	require.Equal("refresh-disp_refresh", conn.RefreshToken)
}

func TestDispatchConnectionWithoutPoster(t *testing.T) {
	require := require.New(t)
	env := testEnv(t, fakeTwitch(t, "Nowhere To Post"))

	user := mockUser(t, env.DB, "disp_skip")
	connectTwitter(t, env, user, "twitter-refresh")

	err := env.Dispatch(context.Background(), &twitch.StreamOnlineEvent{
		BroadcasterUserID:    "127",
		BroadcasterUserLogin: "disp_skip",
	})
	require.NoError(err)

	// twitch refresh still happened and was persisted
	fresh, err := models.NewUsers(env.DB).Find(user.TwitchID)
	require.NoError(err)
	conn, _ := fresh.Connections.Get(models.PlatformTwitch)
	require.Equal("twitch-rotated", conn.RefreshToken)
}
