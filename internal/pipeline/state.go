// Package pipeline orchestrates one processing run: scanning articles,
// deduplicating candidates, resolving Bandcamp identifiers through a bounded
// worker pool, and emitting the ordered entry list for pagination.
package pipeline

import (
	"sync"

	"github.com/griogair/embedfeed/internal/pages"
)

// RunState owns the per-kind seen-URL sets for a single run. It is created
// at run start, passed by reference through the run, and must not outlive
// it or be shared across runs.
type RunState struct {
	mu         sync.Mutex
	seen       map[pages.MediaKind]map[string]struct{}
	duplicates map[pages.MediaKind]int
}

// NewRunState creates empty seen-sets for all media kinds.
func NewRunState() *RunState {
	state := &RunState{
		seen:       make(map[pages.MediaKind]map[string]struct{}, len(pages.Kinds)),
		duplicates: make(map[pages.MediaKind]int, len(pages.Kinds)),
	}
	for _, kind := range pages.Kinds {
		state.seen[kind] = make(map[string]struct{})
	}
	return state
}

// MarkSeen records url for kind and reports whether this was its first
// occurrence. Check and insert are one atomic step, so concurrent dispatch
// can never hand the same URL to two resolvers.
func (s *RunState) MarkSeen(kind pages.MediaKind, url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[kind][url]; ok {
		s.duplicates[kind]++
		return false
	}

	s.seen[kind][url] = struct{}{}
	return true
}

// Duplicates returns how many repeat occurrences were discarded for kind.
func (s *RunState) Duplicates(kind pages.MediaKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duplicates[kind]
}

// SeenCount returns how many distinct URLs were retained for kind.
func (s *RunState) SeenCount(kind pages.MediaKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen[kind])
}
