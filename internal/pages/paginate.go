// internal/pages/paginate.go
package pages

import "strconv"

// Paginate slices an ordered entry list into consecutive pages of perPage
// items, the last page holding the remainder. An empty input yields an empty
// map. perPage values below 1 are treated as 1.
func Paginate(entries []Entry, perPage int) PageMap {
	if perPage < 1 {
		perPage = 1
	}

	pm := make(PageMap)
	for start := 0; start < len(entries); start += perPage {
		end := start + perPage
		if end > len(entries) {
			end = len(entries)
		}

		page := make([]Entry, end-start)
		copy(page, entries[start:end])
		pm[strconv.Itoa(start/perPage+1)] = page
	}

	return pm
}
