package twitter

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"

	"github.com/carlmjohnson/requests"
	"github.com/codingvibe/go-live-api/models"
)

// Post refreshes the connection's token and publishes the announcement,
// attaching the image if one is given. The rotated refresh token is
// returned even when a later step fails, so the caller can always persist
// it; losing it would strand the connection.
func (c *Client) Post(ctx context.Context, refreshToken, text string, image *models.Image) (string, error) {
	cred, err := c.Refresh(ctx, refreshToken)
	if err != nil {
		return "", err
	}
	rotated := cred.RefreshToken

	var mediaIDs []string
	if image != nil {
		data, err := c.download(ctx, image.URL)
		if err != nil {
			return rotated, fmt.Errorf("twitter: download image %s: %w", image.URL, err)
		}
		mediaID, err := c.uploadMedia(ctx, cred.AccessToken, data)
		if err != nil {
			return rotated, fmt.Errorf("twitter: upload media: %w", err)
		}
		if image.AltText != "" {
			if err := c.setAltText(ctx, cred.AccessToken, mediaID, image.AltText); err != nil {
				return rotated, fmt.Errorf("twitter: set alt text: %w", err)
			}
		}
		mediaIDs = append(mediaIDs, mediaID)
	}

	if err := c.createTweet(ctx, cred.AccessToken, text, mediaIDs); err != nil {
		return rotated, fmt.Errorf("twitter: create tweet: %w", err)
	}
	return rotated, nil
}

func (c *Client) download(ctx context.Context, imageURL string) ([]byte, error) {
	var data []byte
	err := requests.URL(imageURL).
		CheckStatus(http.StatusOK).
		Handle(func(res *http.Response) error {
			var err error
			data, err = io.ReadAll(io.LimitReader(res.Body, maxImageBytes+1))
			if err != nil {
				return err
			}
			if len(data) > maxImageBytes {
				return fmt.Errorf("image exceeds %d bytes", maxImageBytes)
			}
			return nil
		}).
		Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (c *Client) uploadMedia(ctx context.Context, accessToken string, data []byte) (string, error) {
	var out struct {
		MediaIDString string `json:"media_id_string"`
	}
	err := requests.URL(c.uploadURL+"/media/upload.json").
		Header("Authorization", "Bearer "+accessToken).
		Param("media_category", "tweet_image").
		BodyForm(map[string][]string{
			"media_data": {base64.StdEncoding.EncodeToString(data)},
		}).
		ToJSON(&out).
		Fetch(ctx)
	if err != nil {
		return "", err
	}
	if out.MediaIDString == "" {
		return "", fmt.Errorf("no media id in upload response")
	}
	return out.MediaIDString, nil
}

func (c *Client) setAltText(ctx context.Context, accessToken, mediaID, altText string) error {
	return requests.URL(c.uploadURL+"/media/metadata/create.json").
		Header("Authorization", "Bearer "+accessToken).
		BodyJSON(map[string]any{
			"media_id": mediaID,
			"alt_text": map[string]string{"text": altText},
		}).
		Fetch(ctx)
}

func (c *Client) createTweet(ctx context.Context, accessToken, text string, mediaIDs []string) error {
	body := map[string]any{"text": text}
	if len(mediaIDs) > 0 {
		body["media"] = map[string]any{"media_ids": mediaIDs}
	}
	return requests.URL(c.apiURL+"/tweets").
		Header("Authorization", "Bearer "+accessToken).
		BodyJSON(body).
		Fetch(ctx)
}
