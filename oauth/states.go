package oauth

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"
)

type stateEntry struct {
	verifier  string
	expiresAt time.Time
}

// States issues and redeems the single-use tokens that tie an OAuth
// redirect back to the request that started it. Each OAuth flow gets its
// own instance; tokens are not shared between them.
type States struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]stateEntry
}

func NewStates(ttl time.Duration) *States {
	return &States{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]stateEntry),
	}
}

// Issue returns a new opaque state token bound to the given PKCE verifier,
// which may be empty for flows that don't use one. The token expires after
// the store's TTL.
func (s *States) Issue(verifier string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[token] = stateEntry{
		verifier:  verifier,
		expiresAt: s.now().Add(s.ttl),
	}
	return token, nil
}

// Consume redeems a state token, returning its bound verifier. Tokens are
// single use: the check and the removal happen under one lock, so at most
// one concurrent caller can succeed. Unknown and expired tokens both fail
// with ErrInvalidState.
func (s *States) Consume(token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[token]
	if !ok {
		return "", ErrInvalidState
	}
	delete(s.entries, token)
	if !s.now().Before(entry.expiresAt) {
		return "", ErrInvalidState
	}
	return entry.verifier, nil
}

// Sweep drops expired entries. Consume already treats expired tokens as
// absent; sweeping just bounds the store's memory under abandoned flows.
func (s *States) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for token, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, token)
		}
	}
}

// Len reports the number of live and expired-but-unswept entries.
func (s *States) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
