// Package twitter is a client for the secondary platform: the PKCE OAuth
// flow and posting go-live announcements with media.
package twitter

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"time"

	"github.com/carlmjohnson/requests"
	"github.com/codingvibe/go-live-api/oauth"
	"golang.org/x/oauth2"
)

const (
	DefaultAuthURL   = "https://twitter.com/i/oauth2/authorize"
	DefaultTokenURL  = "https://api.twitter.com/2/oauth2/token"
	DefaultAPIURL    = "https://api.twitter.com/2"
	DefaultUploadURL = "https://upload.twitter.com/1.1"
)

// maxImageBytes caps how much of a user's image we will download before
// giving up on attaching it.
const maxImageBytes = 15 * 1000 * 1000

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	StateTTL     time.Duration

	// AuthURL, TokenURL, APIURL and UploadURL override the production endpoints.
	AuthURL   string
	TokenURL  string
	APIURL    string
	UploadURL string
}

type Client struct {
	config    oauth2.Config
	states    *oauth.States
	apiURL    string
	uploadURL string
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
	uploadURL := cfg.UploadURL
	if uploadURL == "" {
		uploadURL = DefaultUploadURL
	}
	return &Client{
		config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"tweet.read", "tweet.write", "users.read", "offline.access"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  authURL,
				TokenURL: tokenURL,
			},
		},
		states:    oauth.NewStates(cfg.StateTTL),
		apiURL:    apiURL,
		uploadURL: uploadURL,
	}
}

// SweepStates drops expired login state tokens.
func (c *Client) SweepStates() {
	c.states.Sweep()
}

// LoginURL returns the authorization URL to redirect the user to. The PKCE
// code verifier is bound to the state token and recovered on callback.
func (c *Client) LoginURL() (string, error) {
	verifier, err := randomVerifier()
	if err != nil {
		return "", err
	}
	state, err := c.states.Issue(verifier)
	if err != nil {
		return "", err
	}
	return c.config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", s256Challenge(verifier)),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	), nil
}

// CompleteLogin consumes the state token and exchanges the authorization
// code, presenting the verifier the state was bound to.
func (c *Client) CompleteLogin(ctx context.Context, state, code string) (oauth.Credential, error) {
	verifier, err := c.states.Consume(state)
	if err != nil {
		return oauth.Credential{}, err
	}
	tok, err := c.config.Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", verifier),
	)
	if err != nil {
		return oauth.Credential{}, fmt.Errorf("twitter: %w: %v", oauth.ErrExchangeFailed, err)
	}
	return oauth.Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}, nil
}

// Refresh exchanges a refresh token for a new credential. Twitter rotates
// refresh tokens unconditionally: the returned RefreshToken must replace
// the stored one immediately or the connection is permanently broken.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (oauth.Credential, error) {
	var out struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	err := requests.URL(c.config.Endpoint.TokenURL).
		BasicAuth(c.config.ClientID, c.config.ClientSecret).
		BodyForm(url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {refreshToken},
		}).
		ToJSON(&out).
		Fetch(ctx)
	if err != nil {
		return oauth.Credential{}, fmt.Errorf("twitter: %w: %v", oauth.ErrRefreshFailed, err)
	}
	return oauth.Credential{
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
		Expiry:       time.Now().Add(time.Duration(out.ExpiresIn) * time.Second),
	}, nil
}

func randomVerifier() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func s256Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
