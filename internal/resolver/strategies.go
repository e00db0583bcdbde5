// Package resolver recovers Bandcamp album/track identifiers from remote
// pages. Feed content carries only the public page URL; rendering the
// embedded player needs the numeric id, which lives in the page source.
// Extraction is an ordered strategy cascade, first success wins.
package resolver

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Player theme tokens baked into generated embed URLs.
const (
	themeBackground = "1f1f28"
	themeLink       = "9a64ff"
)

// Resolution is a successfully recovered identifier plus the iframe markup
// that renders it.
type Resolution struct {
	ID        string
	EmbedHTML string
}

// Strategy is one heuristic for extracting an identifier from page content.
type Strategy interface {
	Name() string
	Extract(page string) (*Resolution, bool)
}

// DefaultStrategies returns the cascade in precedence order.
func DefaultStrategies() []Strategy {
	return []Strategy{
		&scriptBlockStrategy{name: "tralbum_data", block: tralbumDataBlock, trackField: trackIDViaItemType},
		&scriptBlockStrategy{name: "embed_data", block: embedDataBlock, trackField: trackIDDirect},
		&attributePatternStrategy{},
		&inlineIframeStrategy{},
	}
}

var (
	tralbumDataBlock = regexp.MustCompile(`(?s)var\s+TralbumData\s*=\s*(\{.+?\});`)
	embedDataBlock   = regexp.MustCompile(`(?s)var\s+EmbedData\s*=\s*(\{.+?\});`)

	albumIDField  = regexp.MustCompile(`"?album_id"?\s*:\s*(\d+)`)
	trackIDField  = regexp.MustCompile(`"?track_id"?\s*:\s*(\d+)`)
	itemTypeField = regexp.MustCompile(`"?item_type"?\s*:\s*"?(track|album)"?`)
	bareIDField   = regexp.MustCompile(`"?id"?\s*:\s*(\d+)`)

	albumAttributePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?s)data-band-id="(\d+)".*?data-item-id="(\d+)".*?data-item-type="album"`),
		regexp.MustCompile(`"?album_id"?\s*:\s*(\d+)`),
		regexp.MustCompile(`album[=/](\d{8,12})`),
	}
	trackAttributePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?s)data-band-id="(\d+)".*?data-item-id="(\d+)".*?data-item-type="track"`),
		regexp.MustCompile(`"?track_id"?\s*:\s*(\d+)`),
		regexp.MustCompile(`track[=/](\d{8,12})`),
	}

	embedIDFromURL = regexp.MustCompile(`(album|track)=(\d+)`)
	bgcolParam     = regexp.MustCompile(`bgcol=[0-9a-fA-F]+`)
)

// AlbumEmbed builds the player markup for an album id.
func AlbumEmbed(albumID string) *Resolution {
	return embedFor("album", albumID)
}

// TrackEmbed builds the player markup for a track id.
func TrackEmbed(trackID string) *Resolution {
	return embedFor("track", trackID)
}

func embedFor(itemType, id string) *Resolution {
	embedURL := fmt.Sprintf(
		"https://bandcamp.com/EmbeddedPlayer/%s=%s/size=large/bgcol=%s/linkcol=%s/tracklist=false/artwork=small/transparent=true/",
		itemType, id, themeBackground, themeLink)

	return &Resolution{
		ID:        itemType + "_" + id,
		EmbedHTML: iframeMarkup(embedURL),
	}
}

// iframeMarkup wraps an embed URL in the fixed-dimension player frame.
func iframeMarkup(embedURL string) string {
	return fmt.Sprintf(
		`<iframe style="border: 0; width: 400px; height: 120px;" src="%s" seamless></iframe>`,
		embedURL)
}

// scriptBlockStrategy looks inside a named script-data object for an album
// id, falling back to a track id by whatever rule the block uses.
type scriptBlockStrategy struct {
	name       string
	block      *regexp.Regexp
	trackField func(block string) (string, bool)
}

func (s *scriptBlockStrategy) Name() string { return s.name }

func (s *scriptBlockStrategy) Extract(page string) (*Resolution, bool) {
	groups := s.block.FindStringSubmatch(page)
	if groups == nil {
		return nil, false
	}
	block := groups[1]

	if m := albumIDField.FindStringSubmatch(block); m != nil {
		return AlbumEmbed(m[1]), true
	}

	if trackID, ok := s.trackField(block); ok {
		return TrackEmbed(trackID), true
	}

	return nil, false
}

// trackIDViaItemType recovers a track id only when the block declares
// item_type "track"; its generic id field is the track id then.
func trackIDViaItemType(block string) (string, bool) {
	m := itemTypeField.FindStringSubmatch(block)
	if m == nil || m[1] != "track" {
		return "", false
	}
	if id := bareIDField.FindStringSubmatch(block); id != nil {
		return id[1], true
	}
	return "", false
}

// trackIDDirect reads an explicit track_id field.
func trackIDDirect(block string) (string, bool) {
	if m := trackIDField.FindStringSubmatch(block); m != nil {
		return m[1], true
	}
	return "", false
}

// attributePatternStrategy searches the whole page for identifier-bearing
// attributes or digit runs adjacent to album/track tokens.
type attributePatternStrategy struct{}

func (s *attributePatternStrategy) Name() string { return "attribute_patterns" }

func (s *attributePatternStrategy) Extract(page string) (*Resolution, bool) {
	if id, ok := matchLastGroup(page, albumAttributePatterns); ok {
		return AlbumEmbed(id), true
	}
	if id, ok := matchLastGroup(page, trackAttributePatterns); ok {
		return TrackEmbed(id), true
	}
	return nil, false
}

// matchLastGroup tries patterns in order; the id is the last capture group
// (the attribute triple captures band id first, item id second).
func matchLastGroup(page string, patterns []*regexp.Regexp) (string, bool) {
	for _, pattern := range patterns {
		if groups := pattern.FindStringSubmatch(page); groups != nil {
			return groups[len(groups)-1], true
		}
	}
	return "", false
}

// inlineIframeStrategy detects a player iframe already present in the page,
// normalizes its protocol-relative URL, and rewrites the background color
// to the target theme.
type inlineIframeStrategy struct{}

func (s *inlineIframeStrategy) Name() string { return "inline_iframe" }

func (s *inlineIframeStrategy) Extract(page string) (*Resolution, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, false
	}

	var found *Resolution
	doc.Find("iframe").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src, ok := sel.Attr("src")
		if !ok || !strings.Contains(src, "EmbeddedPlayer") {
			return true
		}

		if strings.HasPrefix(src, "//") {
			src = "https:" + src
		}
		src = bgcolParam.ReplaceAllString(src, "bgcol="+themeBackground)

		// the embed URL itself carries the id; without it the entry cannot
		// be matched against listened state, so give up on this iframe
		groups := embedIDFromURL.FindStringSubmatch(src)
		if groups == nil {
			return true
		}

		found = &Resolution{
			ID:        groups[1] + "_" + groups[2],
			EmbedHTML: iframeMarkup(src),
		}
		return false
	})

	return found, found != nil
}
