package oauth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer is the iss claim on session tokens.
const Issuer = "codingvibe"

type sessionClaims struct {
	TwitchLogin string `json:"twitchLogin"`
	jwt.RegisteredClaims
}

// Sessions signs and verifies the short-lived JWT handed to the front end
// after a successful twitch login. The token identifies the user on every
// /user request.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessions(secret []byte, ttl time.Duration) *Sessions {
	return &Sessions{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue returns a signed session token for the given twitch login.
func (s *Sessions) Issue(twitchLogin string) (string, error) {
	now := s.now()
	claims := sessionClaims{
		TwitchLogin: twitchLogin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.New().String(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks the token's signature, issuer and expiry, and returns the
// twitch login it was issued for.
func (s *Sessions) Verify(token string) (string, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(t *jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", err
	}
	if claims.TwitchLogin == "" {
		return "", fmt.Errorf("session token missing twitchLogin claim")
	}
	return claims.TwitchLogin, nil
}
