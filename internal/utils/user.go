package utils

import (
	"fmt"
	"net/url"
)

// DefaultAvatarURL returns the generated avatar image for users who never
// uploaded one.
func DefaultAvatarURL(username string) string {
	return fmt.Sprintf("https://ui-avatars.com/api/?background=random&name=%s", url.QueryEscape(username))
}
