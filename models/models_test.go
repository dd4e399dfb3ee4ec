package models

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MockUser creates a new user in the database with a twitch connection.
func MockUser(t *testing.T, tx *gorm.DB, twitchID string) *User {
	t.Helper()
	require := require.New(t)

	user, err := NewUsers(tx).Create(twitchID, fmt.Sprintf("refresh-%s", twitchID))
	require.NoError(err)
	return user
}

// MockImage creates a new image for the user.
func MockImage(t *testing.T, tx *gorm.DB, user *User, url, altText string) *Image {
	t.Helper()
	require := require.New(t)

	images := []Image{{URL: url, AltText: altText}}
	require.NoError(NewImages(tx).Add(user.TwitchID, images))
	return &images[0]
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	require := require.New(t)
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		TranslateError: true,
		Logger: logger.Default.LogMode(func() logger.LogLevel {
			return logger.Warn
		}()),
	})
	require.NoError(err)

	err = db.AutoMigrate(AllTables()...)
	require.NoError(err)

	// enable foreign key constraints
	err = db.Exec("PRAGMA foreign_keys = ON").Error
	require.NoError(err)

	return db
}
