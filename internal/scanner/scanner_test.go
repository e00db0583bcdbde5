// internal/scanner/scanner_test.go
package scanner

import (
	"reflect"
	"testing"

	"github.com/griogair/embedfeed/internal/pages"
)

func TestScanBandcamp(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{
			"album url",
			`New release: https://artist.bandcamp.com/album/cool-record out now`,
			[]string{"https://artist.bandcamp.com/album/cool-record"},
		},
		{
			"track url",
			`listen at http://some-band.bandcamp.com/track/single-2`,
			[]string{"http://some-band.bandcamp.com/track/single-2"},
		},
		{
			"bare bandcamp page",
			`see https://bandcamp.com/somebody for more`,
			[]string{"https://bandcamp.com/somebody"},
		},
		{
			"duplicate mention collapses",
			`https://a.bandcamp.com/album/x and again https://a.bandcamp.com/album/x`,
			[]string{"https://a.bandcamp.com/album/x"},
		},
		{
			"no matches",
			`nothing embeddable here`,
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Scan(tt.text)[pages.KindBandcamp]
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestScanYouTubeNormalizesAllShapes(t *testing.T) {
	text := `watch https://www.youtube.com/watch?v=dQw4w9WgXcQ
		embed https://youtube.com/embed/abcdefghijk
		short https://youtu.be/AAAAAAAAAAA`

	got := Scan(text)[pages.KindYouTube]
	expected := []string{
		"https://www.youtube.com/embed/dQw4w9WgXcQ",
		"https://www.youtube.com/embed/abcdefghijk",
		"https://www.youtube.com/embed/AAAAAAAAAAA",
	}

	if !reflect.DeepEqual(got, expected) {
		t.Errorf("expected %v, got %v", expected, got)
	}
}

func TestScanYouTubeSameIDAcrossShapes(t *testing.T) {
	// the same video mentioned as watch link and short link is one candidate
	text := `https://www.youtube.com/watch?v=dQw4w9WgXcQ https://youtu.be/dQw4w9WgXcQ`

	got := Scan(text)[pages.KindYouTube]
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d: %v", len(got), got)
	}
	if got[0] != "https://www.youtube.com/embed/dQw4w9WgXcQ" {
		t.Errorf("unexpected canonical url: %q", got[0])
	}
}

func TestScanSoundCloud(t *testing.T) {
	text := `https://soundcloud.com/artist/track-one and mobile m.soundcloud.com ignored,
		but https://m.soundcloud.com/dj_set/live-mix counts`

	got := Scan(text)[pages.KindSoundCloud]
	expected := []string{
		"https://soundcloud.com/artist/track-one",
		"https://m.soundcloud.com/dj_set/live-mix",
	}

	if !reflect.DeepEqual(got, expected) {
		t.Errorf("expected %v, got %v", expected, got)
	}
}

func TestScanMixedContent(t *testing.T) {
	text := `<p>Review of <a href="https://band.bandcamp.com/album/lp1">the LP</a>,
		video at https://youtu.be/0123456789_ and a mix on
		https://soundcloud.com/someone/mixtape</p>`

	matches := Scan(text)

	if matches.Total() != 3 {
		t.Errorf("expected 3 candidates total, got %d", matches.Total())
	}
	if len(matches[pages.KindBandcamp]) != 1 {
		t.Errorf("bandcamp: %v", matches[pages.KindBandcamp])
	}
	if len(matches[pages.KindYouTube]) != 1 {
		t.Errorf("youtube: %v", matches[pages.KindYouTube])
	}
	if len(matches[pages.KindSoundCloud]) != 1 {
		t.Errorf("soundcloud: %v", matches[pages.KindSoundCloud])
	}
}

func TestScanRejectsShortYouTubeIDs(t *testing.T) {
	got := Scan(`https://youtu.be/tooshort`)[pages.KindYouTube]
	if len(got) != 0 {
		t.Errorf("expected no match for short id, got %v", got)
	}
}
