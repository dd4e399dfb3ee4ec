// Package twitch is a client for the primary platform: Twitch OAuth,
// Helix lookups, and EventSub webhook verification.
package twitch

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/carlmjohnson/requests"
	"github.com/codingvibe/go-live-api/oauth"
	"golang.org/x/oauth2"
)

const (
	DefaultAuthURL  = "https://id.twitch.tv/oauth2/authorize"
	DefaultTokenURL = "https://id.twitch.tv/oauth2/token"
	DefaultAPIURL   = "https://api.twitch.tv/helix"
)

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	StateTTL     time.Duration

	// AuthURL, TokenURL and APIURL override the production endpoints.
	AuthURL  string
	TokenURL string
	APIURL   string
}

// Client talks to Twitch on behalf of users (authorization code grant) and
// on its own behalf (client credentials grant, for EventSub management).
type Client struct {
	config oauth2.Config
	states *oauth.States
	apiURL string
	app    *appTokenSource
}

func NewClient(cfg Config) *Client {
	authURL := cfg.AuthURL
	if authURL == "" {
		authURL = DefaultAuthURL
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Client{
		config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:  authURL,
				TokenURL: tokenURL,
			},
		},
		states: oauth.NewStates(cfg.StateTTL),
		apiURL: apiURL,
		app: &appTokenSource{
			clientID:     cfg.ClientID,
			clientSecret: cfg.ClientSecret,
			tokenURL:     tokenURL,
			now:          time.Now,
		},
	}
}

// SweepStates drops expired login state tokens. Call it periodically;
// abandoned logins otherwise accumulate until process restart.
func (c *Client) SweepStates() {
	c.states.Sweep()
}

// LoginURL returns the authorization URL to redirect the user to, with a
// fresh single-use state token embedded.
func (c *Client) LoginURL() (string, error) {
	state, err := c.states.Issue("")
	if err != nil {
		return "", err
	}
	return c.config.AuthCodeURL(state), nil
}

// CompleteLogin consumes the state token and exchanges the authorization
// code for a credential.
func (c *Client) CompleteLogin(ctx context.Context, state, code string) (oauth.Credential, error) {
	if _, err := c.states.Consume(state); err != nil {
		return oauth.Credential{}, err
	}
	tok, err := c.config.Exchange(ctx, code)
	if err != nil {
		return oauth.Credential{}, fmt.Errorf("twitch: %w: %v", oauth.ErrExchangeFailed, err)
	}
	return oauth.Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Refresh exchanges a refresh token for a new credential. Twitch rotates
// refresh tokens: the returned credential's RefreshToken supersedes the
// one passed in and must be persisted by the caller.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (oauth.Credential, error) {
	var out tokenResponse
	err := requests.URL(c.config.Endpoint.TokenURL).
		BodyForm(url.Values{
			"client_id":     {c.config.ClientID},
			"client_secret": {c.config.ClientSecret},
			"grant_type":    {"refresh_token"},
			"refresh_token": {refreshToken},
		}).
		ToJSON(&out).
		Fetch(ctx)
	if err != nil {
		return oauth.Credential{}, fmt.Errorf("twitch: %w: %v", oauth.ErrRefreshFailed, err)
	}
	return oauth.Credential{
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
		Expiry:       time.Now().Add(time.Duration(out.ExpiresIn) * time.Second),
	}, nil
}

// AppToken returns the app-level access token, fetching a new one only
// when the cached token has expired.
func (c *Client) AppToken(ctx context.Context) (string, error) {
	return c.app.Token(ctx)
}

// A User is a Twitch account, as returned by the Helix users endpoint.
type User struct {
	ID          string `json:"id"`
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
}

// User looks up the account the access token was issued for.
func (c *Client) User(ctx context.Context, accessToken string) (*User, error) {
	var out struct {
		Data []User `json:"data"`
	}
	err := requests.URL(c.apiURL+"/users").
		Header("Client-Id", c.config.ClientID).
		Header("Authorization", "Bearer "+accessToken).
		ToJSON(&out).
		Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("twitch: fetch user: %w", err)
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("twitch: fetch user: empty response")
	}
	return &out.Data[0], nil
}

// ChannelInfo is the current metadata for a broadcaster's channel.
type ChannelInfo struct {
	BroadcasterLogin string `json:"broadcaster_login"`
	BroadcasterName  string `json:"broadcaster_name"`
	Title            string `json:"title"`
	GameName         string `json:"game_name"`
}

// ChannelInfo fetches the broadcaster's current channel metadata.
func (c *Client) ChannelInfo(ctx context.Context, accessToken, broadcasterID string) (*ChannelInfo, error) {
	var out struct {
		Data []ChannelInfo `json:"data"`
	}
	err := requests.URL(c.apiURL+"/channels").
		Param("broadcaster_id", broadcasterID).
		Header("Client-Id", c.config.ClientID).
		Header("Authorization", "Bearer "+accessToken).
		ToJSON(&out).
		Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("twitch: fetch channel info: %w", err)
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("twitch: fetch channel info: empty response")
	}
	return &out.Data[0], nil
}

// EnsureGoLiveSubscription registers a stream.online EventSub webhook for
// the broadcaster unless one already exists. Subscription management uses
// the app token, not the user's.
func (c *Client) EnsureGoLiveSubscription(ctx context.Context, broadcasterID, callbackURL, secret string) error {
	token, err := c.AppToken(ctx)
	if err != nil {
		return err
	}

	var existing struct {
		Data []struct {
			Type      string `json:"type"`
			Status    string `json:"status"`
			Condition struct {
				BroadcasterUserID string `json:"broadcaster_user_id"`
			} `json:"condition"`
		} `json:"data"`
	}
	err = requests.URL(c.apiURL+"/eventsub/subscriptions").
		Param("user_id", broadcasterID).
		Header("Client-Id", c.config.ClientID).
		Header("Authorization", "Bearer "+token).
		ToJSON(&existing).
		Fetch(ctx)
	if err != nil {
		return fmt.Errorf("twitch: list eventsub subscriptions: %w", err)
	}
	for _, sub := range existing.Data {
		if sub.Type == SubscriptionStreamOnline && sub.Condition.BroadcasterUserID == broadcasterID {
			return nil
		}
	}

	body := map[string]any{
		"type":    SubscriptionStreamOnline,
		"version": "1",
		"condition": map[string]string{
			"broadcaster_user_id": broadcasterID,
		},
		"transport": map[string]string{
			"method":   "webhook",
			"callback": callbackURL,
			"secret":   secret,
		},
	}
	err = requests.URL(c.apiURL+"/eventsub/subscriptions").
		Header("Client-Id", c.config.ClientID).
		Header("Authorization", "Bearer "+token).
		BodyJSON(body).
		Fetch(ctx)
	if err != nil {
		return fmt.Errorf("twitch: create eventsub subscription: %w", err)
	}
	return nil
}
