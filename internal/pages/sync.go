// internal/pages/sync.go
package pages

// Stats reports the outcome of one sync pass. Kept+Removed always equals
// Original.
type Stats struct {
	Original int `json:"original"`
	Kept     int `json:"kept"`
	Removed  int `json:"removed"`
	NoID     int `json:"no_id"`
}

// EffectivePageSize resolves the page size to use for recompaction:
// the persisted size when one was stored with the artifact, otherwise the
// length of the stored first page, otherwise the configured fallback.
func EffectivePageSize(pm PageMap, persisted, fallback int) int {
	if persisted > 0 {
		return persisted
	}
	if first, ok := pm["1"]; ok && len(first) > 0 {
		return len(first)
	}
	return fallback
}

// Sync filters listened entries out of a stored page map and recompacts the
// remainder into sequential gap-free pages of perPage items. Entries without
// an id are retained unconditionally; they cannot be matched against the
// listened set and must never be dropped silently. The input map is not
// mutated.
//
// A sync that removes everything still returns a single empty page "1" so
// downstream renderers always see a well-formed shell.
func Sync(pm PageMap, listened ListenedSet, perPage int) (PageMap, Stats) {
	var stats Stats
	var retained []Entry

	for _, entry := range pm.Flatten() {
		stats.Original++

		if entry.ID == "" {
			retained = append(retained, entry)
			stats.Kept++
			stats.NoID++
			continue
		}

		if listened.Contains(entry.ID) {
			stats.Removed++
			continue
		}

		retained = append(retained, entry)
		stats.Kept++
	}

	synced := Paginate(retained, perPage)
	if len(synced) == 0 {
		synced["1"] = []Entry{}
	}

	return synced, stats
}
