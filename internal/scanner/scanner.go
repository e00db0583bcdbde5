// Package scanner extracts candidate media links from article text. It is
// purely textual: ordered regex families per media kind, unioned and
// deduplicated before leaving the package.
package scanner

import (
	"regexp"

	"github.com/griogair/embedfeed/internal/pages"
)

// Pattern families per kind, tried in order. All matches from all patterns
// of a family are unioned.
var (
	bandcampPatterns = []*regexp.Regexp{
		regexp.MustCompile(`https?://[a-zA-Z0-9-]+\.bandcamp\.com/(?:album|track)/[a-zA-Z0-9-]+`),
		regexp.MustCompile(`https?://bandcamp\.com/[a-zA-Z0-9-]+`),
	}

	// YouTube patterns capture the 11-character video id from the three URL
	// shapes the services emit; the id is normalized into one embed URL.
	youtubePatterns = []*regexp.Regexp{
		regexp.MustCompile(`https?://(?:www\.)?youtube\.com/watch\?v=([a-zA-Z0-9_-]{11})`),
		regexp.MustCompile(`https?://(?:www\.)?youtube\.com/embed/([a-zA-Z0-9_-]{11})`),
		regexp.MustCompile(`https?://youtu\.be/([a-zA-Z0-9_-]{11})`),
	}

	soundcloudPatterns = []*regexp.Regexp{
		regexp.MustCompile(`https?://soundcloud\.com/[a-zA-Z0-9_-]+/[a-zA-Z0-9_-]+`),
		regexp.MustCompile(`https?://(?:w|m)\.soundcloud\.com/[a-zA-Z0-9_-]+/[a-zA-Z0-9_-]+`),
	}
)

// youtubeEmbedBase hosts normalized video URLs. Plain youtube.com rather
// than youtube-nocookie.com: the nocookie host refuses playback for some
// videos (error 153).
const youtubeEmbedBase = "https://www.youtube.com/embed/"

// Matches holds the deduplicated candidates found in one text blob, keyed
// by media kind, in first-occurrence order.
type Matches map[pages.MediaKind][]string

// Total counts candidates across all kinds.
func (m Matches) Total() int {
	total := 0
	for _, urls := range m {
		total += len(urls)
	}
	return total
}

// Scan extracts candidate URLs for every media kind from a text blob
// (article body plus canonical link, concatenated by the caller). A URL
// mentioned twice in the same blob yields one candidate.
func Scan(text string) Matches {
	return Matches{
		pages.KindBandcamp:   scanPlain(text, bandcampPatterns),
		pages.KindYouTube:    scanYouTube(text),
		pages.KindSoundCloud: scanPlain(text, soundcloudPatterns),
	}
}

// scanPlain unions full-match results across a pattern family.
func scanPlain(text string, patterns []*regexp.Regexp) []string {
	var urls []string
	seen := make(map[string]struct{})

	for _, pattern := range patterns {
		for _, match := range pattern.FindAllString(text, -1) {
			if _, ok := seen[match]; ok {
				continue
			}
			seen[match] = struct{}{}
			urls = append(urls, match)
		}
	}

	return urls
}

// scanYouTube captures video ids from the three URL shapes and normalizes
// each distinct id into one canonical embed URL.
func scanYouTube(text string) []string {
	var urls []string
	seen := make(map[string]struct{})

	for _, pattern := range youtubePatterns {
		for _, groups := range pattern.FindAllStringSubmatch(text, -1) {
			id := groups[1]
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			urls = append(urls, youtubeEmbedBase+id)
		}
	}

	return urls
}
