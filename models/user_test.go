package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestConnections(t *testing.T) {
	t.Run("Set adds a new platform", func(t *testing.T) {
		require := require.New(t)

		var conns Connections
		conns = conns.Set(PlatformTwitch, "a")
		conns = conns.Set(PlatformTwitter, "b")
		require.Len(conns, 2)
		conn, ok := conns.Get(PlatformTwitter)
		require.True(ok)
		require.Equal("b", conn.RefreshToken)
	})

	t.Run("Set replaces an existing platform", func(t *testing.T) {
		require := require.New(t)

		conns := Connections{{Type: PlatformTwitch, RefreshToken: "old"}}
		conns = conns.Set(PlatformTwitch, "new")
		require.Len(conns, 1)
		conn, _ := conns.Get(PlatformTwitch)
		require.Equal("new", conn.RefreshToken)
	})

	t.Run("Remove drops only the named platform", func(t *testing.T) {
		require := require.New(t)

		conns := Connections{
			{Type: PlatformTwitch, RefreshToken: "a"},
			{Type: PlatformTwitter, RefreshToken: "b"},
		}
		conns = conns.Remove(PlatformTwitter)
		require.Len(conns, 1)
		_, ok := conns.Get(PlatformTwitter)
		require.False(ok)
		_, ok = conns.Get(PlatformTwitch)
		require.True(ok)
	})
}

func TestUsers(t *testing.T) {
	db := setupTestDB(t)

	t.Run("Create sets the default template and twitch connection", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		user := MockUser(t, tx, "codingvibe")
		require.Equal(DefaultGoLiveText, user.GoLiveText)

		found, err := NewUsers(tx).Find("codingvibe")
		require.NoError(err)
		conn, ok := found.Connections.Get(PlatformTwitch)
		require.True(ok)
		require.Equal("refresh-codingvibe", conn.RefreshToken)
	})

	t.Run("Find of unknown user returns not found", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		_, err := NewUsers(tx).Find("nobody")
		require.True(errors.Is(err, gorm.ErrRecordNotFound))
	})

	t.Run("UpdateRefreshToken rotates the stored token", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		MockUser(t, tx, "codingvibe")
		users := NewUsers(tx)
		require.NoError(users.UpdateRefreshToken("codingvibe", PlatformTwitch, "rotated"))

		found, err := users.Find("codingvibe")
		require.NoError(err)
		conn, _ := found.Connections.Get(PlatformTwitch)
		require.Equal("rotated", conn.RefreshToken)
	})

	t.Run("UpdateRefreshToken for a missing platform is an error", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		MockUser(t, tx, "codingvibe")
		err := NewUsers(tx).UpdateRefreshToken("codingvibe", PlatformTwitter, "rotated")
		require.True(errors.Is(err, gorm.ErrRecordNotFound))
	})

	t.Run("SetGoLiveText round trips", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		MockUser(t, tx, "codingvibe")
		users := NewUsers(tx)
		require.NoError(users.SetGoLiveText("codingvibe", "live! {{streamTitle}}"))
		text, err := users.GoLiveText("codingvibe")
		require.NoError(err)
		require.Equal("live! {{streamTitle}}", text)
	})
}
