package oauth

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStates(t *testing.T) {
	t.Run("issue then consume succeeds exactly once", func(t *testing.T) {
		require := require.New(t)

		states := NewStates(5 * time.Minute)
		token, err := states.Issue("verifier")
		require.NoError(err)
		require.NotEmpty(token)

		verifier, err := states.Consume(token)
		require.NoError(err)
		require.Equal("verifier", verifier)

		_, err = states.Consume(token)
		require.True(errors.Is(err, ErrInvalidState))
	})

	t.Run("unknown token is invalid", func(t *testing.T) {
		require := require.New(t)

		states := NewStates(5 * time.Minute)
		_, err := states.Consume("nope")
		require.True(errors.Is(err, ErrInvalidState))
	})

	t.Run("expired token is invalid even if never consumed", func(t *testing.T) {
		require := require.New(t)

		states := NewStates(5 * time.Minute)
		now := time.Now()
		states.now = func() time.Time { return now }

		token, err := states.Issue("")
		require.NoError(err)

		now = now.Add(5 * time.Minute) // exactly at expiry
		_, err = states.Consume(token)
		require.True(errors.Is(err, ErrInvalidState))
	})

	t.Run("tokens are unique", func(t *testing.T) {
		require := require.New(t)

		states := NewStates(5 * time.Minute)
		seen := make(map[string]bool)
		for i := 0; i < 100; i++ {
			token, err := states.Issue("")
			require.NoError(err)
			require.False(seen[token])
			seen[token] = true
		}
	})

	t.Run("concurrent consumption succeeds at most once", func(t *testing.T) {
		require := require.New(t)

		states := NewStates(5 * time.Minute)
		token, err := states.Issue("verifier")
		require.NoError(err)

		var wins int32
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := states.Consume(token); err == nil {
					atomic.AddInt32(&wins, 1)
				}
			}()
		}
		wg.Wait()
		require.EqualValues(1, wins)
	})

	t.Run("sweep drops only expired entries", func(t *testing.T) {
		require := require.New(t)

		states := NewStates(5 * time.Minute)
		now := time.Now()
		states.now = func() time.Time { return now }

		stale, err := states.Issue("")
		require.NoError(err)
		now = now.Add(4 * time.Minute)
		fresh, err := states.Issue("")
		require.NoError(err)

		now = now.Add(2 * time.Minute) // stale expired, fresh not
		states.Sweep()
		require.Equal(1, states.Len())

		_, err = states.Consume(stale)
		require.True(errors.Is(err, ErrInvalidState))
		_, err = states.Consume(fresh)
		require.NoError(err)
	})
}
