package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Platform identifies an external service a user has connected.
type Platform string

const (
	PlatformTwitch  Platform = "twitch"
	PlatformTwitter Platform = "twitter"
)

// A Connection holds the refresh token needed to act on a user's behalf on
// an external platform. Refresh tokens rotate; the stored value is always
// the most recently issued one.
type Connection struct {
	Type         Platform `json:"type"`
	RefreshToken string   `json:"refreshToken"`
}

// Connections is a user's set of platform connections.
// A user has at most one connection per platform.
type Connections []Connection

// Get returns the connection for the given platform.
func (c Connections) Get(platform Platform) (Connection, bool) {
	for _, conn := range c {
		if conn.Type == platform {
			return conn, true
		}
	}
	return Connection{}, false
}

// Set records the refresh token for the given platform, replacing any
// previous connection to it. Order of existing connections is preserved.
func (c Connections) Set(platform Platform, refreshToken string) Connections {
	for i := range c {
		if c[i].Type == platform {
			c[i].RefreshToken = refreshToken
			return c
		}
	}
	return append(c, Connection{Type: platform, RefreshToken: refreshToken})
}

// Remove drops the connection for the given platform, if present.
func (c Connections) Remove(platform Platform) Connections {
	result := make(Connections, 0, len(c))
	for _, conn := range c {
		if conn.Type != platform {
			result = append(result, conn)
		}
	}
	return result
}

// A User is a broadcaster on the primary platform, keyed by their Twitch
// login. A User has many Images.
type User struct {
	TwitchID    string `gorm:"size:255;primaryKey;autoIncrement:false"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Connections Connections `gorm:"serializer:json;size:2048"`
	GoLiveText  string      `gorm:"size:2048"`
}

// DefaultGoLiveText is the announcement template given to new users.
const DefaultGoLiveText = "{{streamTitle}} https://twitch.tv/{{twitchName}}"

type Users struct {
	db *gorm.DB
}

func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

// Create records a new user with their initial twitch connection and the
// default go-live template.
func (u *Users) Create(twitchID, refreshToken string) (*User, error) {
	user := &User{
		TwitchID: twitchID,
		Connections: Connections{
			{Type: PlatformTwitch, RefreshToken: refreshToken},
		},
		GoLiveText: DefaultGoLiveText,
	}
	if err := u.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (u *Users) Find(twitchID string) (*User, error) {
	var user User
	if err := u.db.Take(&user, "twitch_id = ?", twitchID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateConnections replaces the user's connection set in a single write.
func (u *Users) UpdateConnections(twitchID string, conns Connections) error {
	return u.db.Model(&User{TwitchID: twitchID}).Update("connections", conns).Error
}

// UpdateRefreshToken persists a rotated refresh token for one platform.
// A missing platform is an error: silently dropping a rotated token would
// permanently lock the user out of that platform.
func (u *Users) UpdateRefreshToken(twitchID string, platform Platform, refreshToken string) error {
	user, err := u.Find(twitchID)
	if err != nil {
		return err
	}
	if _, ok := user.Connections.Get(platform); !ok {
		return fmt.Errorf("user %s has no %s connection: %w", twitchID, platform, gorm.ErrRecordNotFound)
	}
	return u.UpdateConnections(twitchID, user.Connections.Set(platform, refreshToken))
}

func (u *Users) GoLiveText(twitchID string) (string, error) {
	user, err := u.Find(twitchID)
	if err != nil {
		return "", err
	}
	return user.GoLiveText, nil
}

func (u *Users) SetGoLiveText(twitchID, text string) error {
	return u.db.Model(&User{TwitchID: twitchID}).Update("go_live_text", text).Error
}
