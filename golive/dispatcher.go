package golive

import (
	"context"
	"errors"
	"fmt"

	"github.com/codingvibe/go-live-api/models"
	"github.com/codingvibe/go-live-api/twitch"
	"gorm.io/gorm"
)

// Dispatch announces a stream.online event to every secondary platform the
// broadcaster has connected. Rotated refresh tokens are persisted the
// moment they are received, before any further remote call: a crash
// mid-pipeline must never strand a stale token.
//
// A delivery failure on one platform is logged and does not stop delivery
// to the others.
func (e *Env) Dispatch(ctx context.Context, event *twitch.StreamOnlineEvent) error {
	users := models.NewUsers(e.DB)
	user, err := users.Find(event.BroadcasterUserLogin)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		e.Log().Info("go-live event for unknown broadcaster", "login", event.BroadcasterUserLogin)
		return nil
	}
	if err != nil {
		return err
	}

	conn, ok := user.Connections.Get(models.PlatformTwitch)
	if !ok {
		return fmt.Errorf("user %s has no twitch connection", user.TwitchID)
	}
	cred, err := e.Twitch.Refresh(ctx, conn.RefreshToken)
	if err != nil {
		return fmt.Errorf("refresh twitch token for %s: %w", user.TwitchID, err)
	}
	if err := users.UpdateRefreshToken(user.TwitchID, models.PlatformTwitch, cred.RefreshToken); err != nil {
		return err
	}

	info, err := e.Twitch.ChannelInfo(ctx, cred.AccessToken, event.BroadcasterUserID)
	if err != nil {
		return err
	}
	text := RenderGoLiveText(user.GoLiveText, info.Title, event.BroadcasterUserLogin)

	image, err := models.NewImages(e.DB).Random(user.TwitchID)
	if err != nil {
		return err
	}

	for _, conn := range user.Connections {
		if conn.Type == models.PlatformTwitch {
			continue
		}
		poster, ok := e.Posters[conn.Type]
		if !ok {
			e.Log().Warn("no poster for connected platform", "platform", conn.Type, "user", user.TwitchID)
			continue
		}
		rotated, err := poster.Post(ctx, conn.RefreshToken, text, image)
		if rotated != "" {
			if err := users.UpdateRefreshToken(user.TwitchID, conn.Type, rotated); err != nil {
				return err
			}
		}
		if err != nil {
			e.Log().Error("go-live post failed", "platform", conn.Type, "user", user.TwitchID, "error", err.Error())
			continue
		}
		e.Log().Info("go-live posted", "platform", conn.Type, "user", user.TwitchID)
	}
	return nil
}
