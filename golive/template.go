package golive

import "strings"

// RenderGoLiveText substitutes the stream metadata into the user's
// announcement template. Placeholders with no known value are left as-is.
func RenderGoLiveText(template, streamTitle, twitchName string) string {
	return strings.NewReplacer(
		"{{streamTitle}}", streamTitle,
		"{{twitchName}}", twitchName,
	).Replace(template)
}
