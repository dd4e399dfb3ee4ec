package twitch

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// EventSub notification request headers.
const (
	MessageIDHeader        = "Twitch-Eventsub-Message-Id"
	MessageTimestampHeader = "Twitch-Eventsub-Message-Timestamp"
	MessageTypeHeader      = "Twitch-Eventsub-Message-Type"
	MessageSignatureHeader = "Twitch-Eventsub-Message-Signature"
)

// EventSub message types.
const (
	MessageTypeVerification = "webhook_callback_verification"
	MessageTypeNotification = "notification"
	MessageTypeRevocation   = "revocation"
)

// SubscriptionStreamOnline is the subscription type for go-live events.
const SubscriptionStreamOnline = "stream.online"

// signaturePrefix is prepended to the hex HMAC in the signature header.
const signaturePrefix = "sha256="

// VerifySignature checks an EventSub message signature: HMAC-SHA256 over
// message id, timestamp and the exact body bytes received, hex encoded
// with a sha256= prefix. The comparison is constant time and a missing
// signature fails the same way as a wrong one.
func VerifySignature(secret, messageID, timestamp string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	io.WriteString(mac, messageID)
	io.WriteString(mac, timestamp)
	mac.Write(body)
	want := signaturePrefix + hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(signature))
}

// A Notification is the body of an EventSub webhook message. Which fields
// are populated depends on the message type header.
type Notification struct {
	Challenge    string           `json:"challenge"`
	Subscription Subscription     `json:"subscription"`
	Event        StreamOnlineEvent `json:"event"`
}

type Subscription struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Status    string            `json:"status"`
	Condition map[string]string `json:"condition"`
}

// A StreamOnlineEvent announces that a broadcaster went live.
type StreamOnlineEvent struct {
	BroadcasterUserID    string `json:"broadcaster_user_id"`
	BroadcasterUserLogin string `json:"broadcaster_user_login"`
	BroadcasterUserName  string `json:"broadcaster_user_name"`
}
