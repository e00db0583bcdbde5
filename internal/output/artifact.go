// internal/output/artifact.go
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/griogair/embedfeed/internal/pages"
	"github.com/griogair/embedfeed/internal/utils"
)

// ArtifactStore reads and writes per-feed page-map artifacts in a single
// output directory. Each feed gets <sanitized-name>.json for the page map
// and <sanitized-name>.meta.json for pagination metadata.
type ArtifactStore struct {
	dir    string
	logger utils.Logger
}

// NewArtifactStore creates a store rooted at dir, creating it if missing.
func NewArtifactStore(dir string, logger utils.Logger) (*ArtifactStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if logger == nil {
		logger = utils.NewLogger()
	}
	return &ArtifactStore{dir: dir, logger: logger}, nil
}

// Dir returns the store's root directory.
func (s *ArtifactStore) Dir() string {
	return s.dir
}

// ArtifactPath returns the page-map path for a feed name.
func (s *ArtifactStore) ArtifactPath(feedName string) string {
	return filepath.Join(s.dir, utils.SanitizeFeedName(feedName)+".json")
}

// MetaPath returns the pagination sidecar path for a feed name.
func (s *ArtifactStore) MetaPath(feedName string) string {
	return filepath.Join(s.dir, utils.SanitizeFeedName(feedName)+".meta.json")
}

// Write persists a page map and its pagination sidecar. Both files are
// written to a temp file first and renamed into place so readers never see
// a partial artifact.
func (s *ArtifactStore) Write(feedName string, pm pages.PageMap, meta pages.Meta) error {
	data, err := pm.Marshal()
	if err != nil {
		return utils.NewCodedError(utils.ErrCodeArtifactWrite, utils.SeverityError, err)
	}
	if err := s.writeAtomic(s.ArtifactPath(feedName), data); err != nil {
		return utils.NewCodedError(utils.ErrCodeArtifactWrite, utils.SeverityError, err)
	}

	metaData, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return utils.NewCodedError(utils.ErrCodeArtifactWrite, utils.SeverityError,
			fmt.Errorf("failed to marshal meta: %w", err))
	}
	if err := s.writeAtomic(s.MetaPath(feedName), metaData); err != nil {
		return utils.NewCodedError(utils.ErrCodeArtifactWrite, utils.SeverityError, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"feed":    feedName,
		"path":    s.ArtifactPath(feedName),
		"entries": pm.TotalEntries(),
		"pages":   len(pm),
	}).Info("artifact written")

	return nil
}

// Load reads and validates a feed's page map. A missing artifact is an
// ARTIFACT_READ error the caller can treat as "nothing harvested yet".
func (s *ArtifactStore) Load(feedName string) (pages.PageMap, error) {
	data, err := os.ReadFile(s.ArtifactPath(feedName))
	if err != nil {
		return nil, utils.NewCodedError(utils.ErrCodeArtifactRead, utils.SeverityError,
			fmt.Errorf("failed to read artifact for %q: %w", feedName, err))
	}

	pm, err := pages.ParsePageMap(data)
	if err != nil {
		return nil, err
	}
	if err := pm.Validate(); err != nil {
		return nil, err
	}
	return pm, nil
}

// LoadMeta reads the pagination sidecar. A missing or malformed sidecar
// returns a zero Meta and no error; artifacts written before sidecars
// existed stay loadable.
func (s *ArtifactStore) LoadMeta(feedName string) pages.Meta {
	var meta pages.Meta
	data, err := os.ReadFile(s.MetaPath(feedName))
	if err != nil {
		return meta
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		s.logger.WithField("feed", feedName).Warn("ignoring malformed meta sidecar")
		return pages.Meta{}
	}
	return meta
}

// List returns the feed artifact base names present in the directory,
// excluding meta sidecars.
func (s *ArtifactStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		base := name[:len(name)-len(".json")]
		if filepath.Ext(base) == ".meta" {
			continue
		}
		names = append(names, base)
	}
	return names, nil
}

func (s *ArtifactStore) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".artifact-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
