// Package pages holds the persisted page artifact model: the page map built
// by the paginator, its JSON codec, and the sync engine that reconciles a
// stored page map against listened state.
package pages

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/griogair/embedfeed/internal/utils"
)

// MediaKind identifies the service an embed came from.
type MediaKind string

const (
	KindBandcamp   MediaKind = "bandcamp"
	KindYouTube    MediaKind = "youtube"
	KindSoundCloud MediaKind = "soundcloud"
)

// Kinds lists all supported media kinds in display order.
var Kinds = []MediaKind{KindBandcamp, KindYouTube, KindSoundCloud}

// DateFormat is the display timestamp format stored in artifact entries.
const DateFormat = "2006-01-02 15:04"

// Entry is one embeddable item as persisted in the artifact. The JSON keys
// match the artifact shape consumed by the display page and the sync tools;
// they must not change.
type Entry struct {
	Type        string `json:"type"`
	URL         string `json:"url"`
	EmbedHTML   string `json:"embed_html,omitempty"`
	Title       string `json:"title"`
	ArticleLink string `json:"article_link"`
	Author      string `json:"author"`
	Feed        string `json:"feed"`
	Date        string `json:"date"`
	ID          string `json:"id"`
}

// PageMap maps page numbers (as decimal strings, starting at "1" with no
// gaps) to the ordered entries on that page.
type PageMap map[string][]Entry

// Meta is the artifact sidecar carrying values that the flat page map cannot
// hold without breaking its shape. Persisting the page size avoids inferring
// it from the first page during sync, which locks in the wrong size whenever
// a feed's only page is short.
type Meta struct {
	ItemsPerPage int `json:"items_per_page"`
}

// ListenedSet is the set of display ids a consumer has marked done.
type ListenedSet map[string]struct{}

// NewListenedSet builds a set from a list of ids.
func NewListenedSet(ids []string) ListenedSet {
	set := make(ListenedSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Contains reports whether id is in the set.
func (s ListenedSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// TotalEntries counts entries across all pages.
func (pm PageMap) TotalEntries() int {
	total := 0
	for _, entries := range pm {
		total += len(entries)
	}
	return total
}

// PageNumbers returns the numeric page keys in ascending order.
func (pm PageMap) PageNumbers() []int {
	numbers := make([]int, 0, len(pm))
	for key := range pm {
		n, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers
}

// Flatten reconstructs the original dataset order: page order, then
// within-page order.
func (pm PageMap) Flatten() []Entry {
	var flat []Entry
	for _, n := range pm.PageNumbers() {
		flat = append(flat, pm[strconv.Itoa(n)]...)
	}
	return flat
}

// Validate checks that page keys are contiguous decimal integers starting
// at 1.
func (pm PageMap) Validate() error {
	if len(pm) == 0 {
		return nil
	}

	seen := make(map[int]bool, len(pm))
	for key := range pm {
		n, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("non-numeric page key %q", key)
		}
		if n < 1 {
			return fmt.Errorf("page number %d out of range", n)
		}
		seen[n] = true
	}

	for n := 1; n <= len(pm); n++ {
		if !seen[n] {
			return fmt.Errorf("missing page %d in %d-page map", n, len(pm))
		}
	}

	return nil
}

// ParsePageMap decodes and structurally validates a persisted artifact.
func ParsePageMap(data []byte) (PageMap, error) {
	var pm PageMap
	if err := json.Unmarshal(data, &pm); err != nil {
		return nil, utils.NewCodedError(utils.ErrCodeArtifactMalformed, utils.SeverityError,
			fmt.Errorf("failed to parse page map: %w", err))
	}

	if err := pm.Validate(); err != nil {
		return nil, utils.NewCodedError(utils.ErrCodeArtifactMalformed, utils.SeverityError,
			fmt.Errorf("structurally invalid page map: %w", err))
	}

	return pm, nil
}

// Marshal serializes the page map for persistence.
func (pm PageMap) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(pm, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal page map: %w", err)
	}
	return data, nil
}
