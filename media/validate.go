// Package media validates user-submitted image URLs before they are
// accepted into a collection.
package media

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/carlmjohnson/requests"
)

// uploadLimits is the set of acceptable image content types and the
// largest body, in bytes, the posting platform accepts for each.
var uploadLimits = map[string]int64{
	"image/png":  5 * 1000 * 1000,
	"image/jpeg": 5 * 1000 * 1000,
	"image/gif":  15 * 1000 * 1000,
}

// Validator checks submitted image URLs by HEAD-fetching them and
// inspecting the reported content type and length.
type Validator struct {
	// Transport overrides the transport used for HEAD requests.
	Transport http.RoundTripper
}

// Check HEAD-fetches every URL and returns the ones that are unusable:
// unreachable, of a disallowed content type, or over the per-type size
// limit. All URLs are checked; the caller rejects the whole batch if any
// come back.
func (v *Validator) Check(ctx context.Context, urls []string) []string {
	var invalid []string
	for _, u := range urls {
		if err := v.check(ctx, u); err != nil {
			invalid = append(invalid, u)
		}
	}
	return invalid
}

func (v *Validator) check(ctx context.Context, url string) error {
	rb := requests.URL(url).
		Method(http.MethodHead).
		CheckStatus(http.StatusOK).
		Handle(func(res *http.Response) error {
			mediaType := strings.Split(res.Header.Get("Content-Type"), ";")[0]
			limit, ok := uploadLimits[mediaType]
			if !ok {
				return fmt.Errorf("disallowed content type %q", mediaType)
			}
			if res.ContentLength > limit {
				return fmt.Errorf("content length %d over the %d byte limit for %s", res.ContentLength, limit, mediaType)
			}
			return nil
		})
	if v.Transport != nil {
		rb = rb.Transport(v.Transport)
	}
	return rb.Fetch(ctx)
}
