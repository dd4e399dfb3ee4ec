package twitch

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/carlmjohnson/requests"
)

// expirySkew keeps us from handing out a token about to lapse mid-request.
const expirySkew = time.Minute

// appTokenSource caches the app-level client credentials token. The cache
// is process wide and shared by every caller of the owning Client. The
// mutex is held across the fetch, so concurrent callers racing an expired
// cache share a single remote request instead of stampeding the issuer.
type appTokenSource struct {
	clientID     string
	clientSecret string
	tokenURL     string
	now          func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time
}

func (s *appTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" && s.now().Add(expirySkew).Before(s.expiry) {
		return s.token, nil
	}

	var out tokenResponse
	err := requests.URL(s.tokenURL).
		BodyForm(url.Values{
			"client_id":     {s.clientID},
			"client_secret": {s.clientSecret},
			"grant_type":    {"client_credentials"},
		}).
		ToJSON(&out).
		Fetch(ctx)
	if err != nil {
		return "", fmt.Errorf("twitch: app token: %w", err)
	}
	s.token = out.AccessToken
	s.expiry = s.now().Add(time.Duration(out.ExpiresIn) * time.Second)
	return s.token, nil
}
