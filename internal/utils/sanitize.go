// internal/utils/sanitize.go

package utils

import (
	"regexp"
	"strings"
)

// disallowedChars matches every character that is not a word character,
// whitespace, or hyphen. Must stay in lockstep with the key format the
// browser page uses for its localStorage entries.
var disallowedChars = regexp.MustCompile(`[^\w\s-]`)

// ListenedKeyPrefix namespaces listened-state keys in the browser export.
const ListenedKeyPrefix = "freshrss_listened_"

// SanitizeFeedName converts a feed name to the slug used both for output
// filenames and for listened-state storage keys.
func SanitizeFeedName(name string) string {
	cleaned := disallowedChars.ReplaceAllString(name, "")
	cleaned = strings.TrimSpace(cleaned)
	return strings.ReplaceAll(cleaned, " ", "_")
}

// ListenedKey returns the full storage key for a feed name.
func ListenedKey(feedName string) string {
	return ListenedKeyPrefix + SanitizeFeedName(feedName)
}
