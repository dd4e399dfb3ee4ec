package golive

import (
	"fmt"
	"io"
	"net/http"

	"github.com/codingvibe/go-live-api/internal/httpx"
	"github.com/codingvibe/go-live-api/twitch"
	"github.com/go-json-experiment/json"
)

// Webhook handles inbound EventSub messages. Anything with a bad signature
// is rejected; everything else is acknowledged even when processing fails,
// so Twitch never redelivers a message we already attempted.
func Webhook(env *Env, rw http.ResponseWriter, r *http.Request) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}

	ok := twitch.VerifySignature(
		env.EventSubSecret,
		r.Header.Get(twitch.MessageIDHeader),
		r.Header.Get(twitch.MessageTimestampHeader),
		body,
		r.Header.Get(twitch.MessageSignatureHeader),
	)
	if !ok {
		return httpx.Error(http.StatusForbidden, fmt.Errorf("eventsub signature mismatch"))
	}

	// a signature match means the sender is genuine; a body we cannot read
	// is still acknowledged or it will just be redelivered
	var note twitch.Notification
	if err := json.Unmarshal(body, &note); err != nil {
		env.Log().Warn("eventsub message with unreadable body", "error", err.Error())
		rw.WriteHeader(http.StatusNoContent)
		return nil
	}

	switch r.Header.Get(twitch.MessageTypeHeader) {
	case twitch.MessageTypeVerification:
		rw.Header().Set("Content-Type", "text/plain")
		rw.WriteHeader(http.StatusOK)
		io.WriteString(rw, note.Challenge)
		return nil
	case twitch.MessageTypeRevocation:
		env.Log().Warn("eventsub subscription revoked",
			"subscription", note.Subscription.ID,
			"type", note.Subscription.Type,
			"status", note.Subscription.Status)
	case twitch.MessageTypeNotification:
		if note.Subscription.Type == twitch.SubscriptionStreamOnline {
			if err := env.Dispatch(r.Context(), &note.Event); err != nil {
				env.Log().Error("go-live dispatch failed",
					"broadcaster", note.Event.BroadcasterUserLogin,
					"error", err.Error())
			}
		}
	}
	rw.WriteHeader(http.StatusNoContent)
	return nil
}
