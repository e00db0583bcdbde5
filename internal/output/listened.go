// internal/output/listened.go
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/griogair/embedfeed/internal/pages"
	"github.com/griogair/embedfeed/internal/utils"
)

// ListenedExport is a parsed browser localStorage export keyed by sanitized
// feed name. Only keys carrying the listened prefix are retained.
type ListenedExport map[string]pages.ListenedSet

// LoadListenedExport reads a localStorage export file. The export is a flat
// JSON object; values are either arrays of display ids or, as localStorage
// stores them, JSON arrays encoded as strings. Both shapes are accepted.
func LoadListenedExport(path string) (ListenedExport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, utils.NewCodedError(utils.ErrCodeArtifactRead, utils.SeverityError,
			fmt.Errorf("failed to read listened export: %w", err))
	}
	return ParseListenedExport(data)
}

// ParseListenedExport parses export bytes into per-feed listened sets.
func ParseListenedExport(data []byte) (ListenedExport, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, utils.NewCodedError(utils.ErrCodeArtifactMalformed, utils.SeverityError,
			fmt.Errorf("failed to parse listened export: %w", err))
	}

	export := make(ListenedExport)
	for key, value := range raw {
		if !strings.HasPrefix(key, utils.ListenedKeyPrefix) {
			continue
		}
		feedName := strings.TrimPrefix(key, utils.ListenedKeyPrefix)

		ids, err := decodeIDList(value)
		if err != nil {
			return nil, utils.NewCodedError(utils.ErrCodeArtifactMalformed, utils.SeverityError,
				fmt.Errorf("listened entry %q: %w", key, err))
		}
		export[feedName] = pages.NewListenedSet(ids)
	}
	return export, nil
}

// For returns the listened set for a feed name, matching by sanitized name.
// An absent feed yields an empty set.
func (e ListenedExport) For(feedName string) pages.ListenedSet {
	if set, ok := e[utils.SanitizeFeedName(feedName)]; ok {
		return set
	}
	return pages.ListenedSet{}
}

func decodeIDList(value json.RawMessage) ([]string, error) {
	var ids []string
	if err := json.Unmarshal(value, &ids); err == nil {
		return ids, nil
	}

	// localStorage stores values as strings, so arrays arrive doubly encoded
	var nested string
	if err := json.Unmarshal(value, &nested); err != nil {
		return nil, fmt.Errorf("value is neither an array nor a string")
	}
	if err := json.Unmarshal([]byte(nested), &ids); err != nil {
		return nil, fmt.Errorf("string value does not hold a JSON array: %w", err)
	}
	return ids, nil
}
