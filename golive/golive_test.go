package golive

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/codingvibe/go-live-api/models"
	"github.com/codingvibe/go-live-api/oauth"
	"github.com/codingvibe/go-live-api/twitch"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testWebhookSecret = "s3cret"

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	require := require.New(t)
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	require.NoError(err)

	err = db.AutoMigrate(models.AllTables()...)
	require.NoError(err)

	err = db.Exec("PRAGMA foreign_keys = ON").Error
	require.NoError(err)

	return db
}

// testEnv wires an Env against an in-memory database and a fake Twitch
// backend serving both the token and Helix endpoints.
func testEnv(t *testing.T, twitchAPI http.Handler) *Env {
	t.Helper()
	if twitchAPI == nil {
		twitchAPI = http.NotFoundHandler()
	}
	srv := httptest.NewServer(twitchAPI)
	t.Cleanup(srv.Close)

	return &Env{
		Env: &models.Env{
			DB:     setupTestDB(t),
			Logger: slog.New(slog.NewTextHandler(io.Discard)),
		},
		Sessions: oauth.NewSessions([]byte("test-auth-secret"), 30*time.Minute),
		Twitch: twitch.NewClient(twitch.Config{
			ClientID:     "twitch-client",
			ClientSecret: "twitch-secret",
			StateTTL:     5 * time.Minute,
			AuthURL:      srv.URL + "/authorize",
			TokenURL:     srv.URL + "/token",
			APIURL:       srv.URL + "/helix",
		}),
		Posters:         map[models.Platform]Poster{},
		EventSubSecret:  testWebhookSecret,
		GoLiveTextLimit: 2048,
	}
}

// mockUser creates a user with a twitch connection, mirroring the helper in
// the models package.
func mockUser(t *testing.T, db *gorm.DB, twitchID string) *models.User {
	t.Helper()
	require := require.New(t)
	user, err := models.NewUsers(db).Create(twitchID, "refresh-"+twitchID)
	require.NoError(err)
	return user
}

// signedRequest builds an EventSub webhook request with a valid signature.
func signedRequest(t *testing.T, messageType, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest("POST", "/eventsub", strings.NewReader(body))
	req.Header.Set(twitch.MessageIDHeader, "msg-1")
	req.Header.Set(twitch.MessageTimestampHeader, "2023-04-01T00:00:00Z")
	req.Header.Set(twitch.MessageTypeHeader, messageType)

	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	io.WriteString(mac, "msg-1")
	io.WriteString(mac, "2023-04-01T00:00:00Z")
	io.WriteString(mac, body)
	req.Header.Set(twitch.MessageSignatureHeader, "sha256="+hex.EncodeToString(mac.Sum(nil)))
	return req
}
