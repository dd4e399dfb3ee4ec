package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/codingvibe/go-live-api/api"
	"github.com/codingvibe/go-live-api/golive"
	"github.com/codingvibe/go-live-api/images"
	"github.com/codingvibe/go-live-api/internal/httpx"
	"github.com/codingvibe/go-live-api/media"
	"github.com/codingvibe/go-live-api/models"
	"github.com/codingvibe/go-live-api/oauth"
	"github.com/codingvibe/go-live-api/twitch"
	"github.com/codingvibe/go-live-api/twitter"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/exp/slog"
	"gorm.io/gorm"
)

type ServeCmd struct {
	Addr string `help:"address to listen" default:":8080"`

	TwitchClientID     string `required:"" env:"TWITCH_CLIENT_ID" help:"twitch application client id"`
	TwitchClientSecret string `required:"" env:"TWITCH_CLIENT_SECRET" help:"twitch application client secret"`
	TwitchRedirectURL  string `required:"" env:"TWITCH_REDIRECT_URL" help:"twitch oauth callback url"`

	TwitterClientID     string `required:"" env:"TWITTER_CLIENT_ID" help:"twitter application client id"`
	TwitterClientSecret string `required:"" env:"TWITTER_CLIENT_SECRET" help:"twitter application client secret"`
	TwitterRedirectURL  string `required:"" env:"TWITTER_REDIRECT_URL" help:"twitter oauth callback url"`

	EventSubSecret      string `required:"" env:"EVENTSUB_SECRET" help:"secret eventsub messages are signed with"`
	EventSubCallbackURL string `required:"" env:"EVENTSUB_CALLBACK_URL" help:"public url eventsub delivers to"`

	AuthSecret string `required:"" env:"AUTH_SECRET" help:"secret session tokens are signed with"`

	SessionTTL      time.Duration `default:"30m" help:"how long a session lasts"`
	StateTTL        time.Duration `default:"5m" help:"how long a login may take"`
	GoLiveTextLimit int           `default:"2048" help:"longest allowed announcement template"`
}

func (s *ServeCmd) Run(ctx *Context) error {
	db, err := gorm.Open(ctx.Dialector, &ctx.Config)
	if err != nil {
		return err
	}

	if err := configureDB(db); err != nil {
		return err
	}

	level := slog.LevelInfo
	if ctx.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.HandlerOptions{
		Level: level,
	}.NewJSONHandler(os.Stdout))

	twitchClient := twitch.NewClient(twitch.Config{
		ClientID:     s.TwitchClientID,
		ClientSecret: s.TwitchClientSecret,
		RedirectURL:  s.TwitchRedirectURL,
		StateTTL:     s.StateTTL,
	})
	twitterClient := twitter.NewClient(twitter.Config{
		ClientID:     s.TwitterClientID,
		ClientSecret: s.TwitterClientSecret,
		RedirectURL:  s.TwitterRedirectURL,
		StateTTL:     s.StateTTL,
	})

	env := &golive.Env{
		Env: &models.Env{
			DB:     db,
			Logger: logger,
		},
		Sessions: oauth.NewSessions([]byte(s.AuthSecret), s.SessionTTL),
		Twitch:   twitchClient,
		Twitter:  twitterClient,
		Posters: map[models.Platform]golive.Poster{
			models.PlatformTwitter: twitterClient,
		},
		Validator:           &media.Validator{},
		EventSubSecret:      s.EventSubSecret,
		EventSubCallbackURL: s.EventSubCallbackURL,
		GoLiveTextLimit:     s.GoLiveTextLimit,
	}

	// abandoned logins leave state tokens behind
	go func() {
		for range time.Tick(time.Minute) {
			twitchClient.SweepStates()
			twitterClient.SweepStates()
		}
	}()

	handler := func(fn func(*golive.Env, http.ResponseWriter, *http.Request) error) http.HandlerFunc {
		return httpx.HandlerFunc(env, fn)
	}

	c := chi.NewRouter()
	c.Use(middleware.RequestID)
	c.Use(middleware.RealIP)
	c.Use(middleware.Logger)
	c.Use(middleware.Recoverer)

	c.Route("/", func(r chi.Router) {
		r.Post("/eventsub", handler(golive.Webhook))

		r.Get("/twitchLogin", handler(api.TwitchLogin))
		r.Get("/twitchLoginResponse", handler(api.TwitchLoginCallback))
		r.Get("/twitterLogin", handler(api.TwitterLogin))

		r.Route("/user", func(r chi.Router) {
			r.Get("/loggedIn", handler(api.LoggedIn))
			r.Get("/twitterLoginResponse", handler(api.TwitterLoginCallback))
			r.Get("/connections", handler(api.ConnectionsIndex))
			r.Delete("/connections", handler(api.ConnectionsDestroy))
			r.Get("/goLiveText", handler(api.GoLiveTextShow))
			r.Put("/goLiveText", handler(api.GoLiveTextUpdate))
			r.Route("/images", func(r chi.Router) {
				r.Get("/", handler(images.Index))
				r.Post("/", handler(images.Create))
				r.Put("/", handler(images.Update))
				r.Delete("/{id:[0-9]+}", handler(images.Destroy))
			})
		})
	})

	walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
		route = strings.Replace(route, "/*/", "/", -1)
		fmt.Printf("%s %s\n", method, route)
		return nil
	}

	if err := chi.Walk(c, walkFunc); err != nil {
		fmt.Printf("Logging err: %s\n", err.Error())
	}

	svr := &http.Server{
		Addr:         s.Addr,
		Handler:      c,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}
	return svr.ListenAndServe()
}
