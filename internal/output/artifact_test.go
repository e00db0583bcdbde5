// internal/output/artifact_test.go
package output

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/griogair/embedfeed/internal/pages"
	"github.com/griogair/embedfeed/internal/utils"
)

func testStore(t *testing.T) *ArtifactStore {
	t.Helper()
	store, err := NewArtifactStore(t.TempDir(), utils.NewLoggerWithLevel(utils.ErrorLevel))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func samplePageMap() pages.PageMap {
	return pages.PageMap{
		"1": {
			{Type: "bandcamp", URL: "https://a.bandcamp.com/album/one", Title: "One",
				ArticleLink: "https://blog.example.com/1", Author: "anna",
				Feed: "Heavy Blog", Date: "2026-08-01 10:00", ID: "album_12345678"},
			{Type: "youtube", URL: "https://www.youtube.com/embed/AAAAAAAAAAA", Title: "Two",
				ArticleLink: "https://blog.example.com/2", Author: "bo",
				Feed: "Heavy Blog", Date: "2026-08-01 09:00",
				ID: "https://www.youtube.com/embed/AAAAAAAAAAA"},
		},
	}
}

func TestWriteAndLoadRoundTrip(t *testing.T) {
	store := testStore(t)
	pm := samplePageMap()

	if err := store.Write("Heavy Blog!", pm, pages.Meta{ItemsPerPage: 8}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	loaded, err := store.Load("Heavy Blog!")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !reflect.DeepEqual(loaded, pm) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", loaded, pm)
	}

	meta := store.LoadMeta("Heavy Blog!")
	if meta.ItemsPerPage != 8 {
		t.Errorf("expected items_per_page 8, got %d", meta.ItemsPerPage)
	}
}

func TestArtifactPathUsesSanitizedName(t *testing.T) {
	store := testStore(t)

	path := store.ArtifactPath("Heavy Blog! (live)")
	base := filepath.Base(path)
	if base != "Heavy_Blog_live.json" {
		t.Errorf("unexpected artifact file name %q", base)
	}
}

func TestLoadMissingArtifactHasReadCode(t *testing.T) {
	store := testStore(t)

	_, err := store.Load("never-written")
	if err == nil {
		t.Fatal("expected error for missing artifact")
	}
	if code := utils.CodeOf(err); code != utils.ErrCodeArtifactRead {
		t.Errorf("expected code %s, got %s", utils.ErrCodeArtifactRead, code)
	}
}

func TestLoadRejectsMalformedArtifact(t *testing.T) {
	store := testStore(t)

	path := store.ArtifactPath("bad")
	if err := os.WriteFile(path, []byte(`{"1": "not a list"}`), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := store.Load("bad")
	if err == nil {
		t.Fatal("expected error for malformed artifact")
	}
	if code := utils.CodeOf(err); code != utils.ErrCodeArtifactMalformed {
		t.Errorf("expected code %s, got %s", utils.ErrCodeArtifactMalformed, code)
	}
}

func TestLoadMetaMissingSidecarIsZero(t *testing.T) {
	store := testStore(t)

	meta := store.LoadMeta("no-sidecar")
	if meta.ItemsPerPage != 0 {
		t.Errorf("expected zero meta, got %+v", meta)
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	store := testStore(t)

	if err := store.Write("feed", samplePageMap(), pages.Meta{ItemsPerPage: 8}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	entries, err := os.ReadDir(store.Dir())
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) == ".tmp" {
			t.Errorf("temp file left behind: %s", entry.Name())
		}
	}
}

func TestListExcludesMetaSidecars(t *testing.T) {
	store := testStore(t)

	if err := store.Write("alpha", samplePageMap(), pages.Meta{ItemsPerPage: 8}); err != nil {
		t.Fatal(err)
	}
	if err := store.Write("beta", samplePageMap(), pages.Meta{ItemsPerPage: 8}); err != nil {
		t.Fatal(err)
	}

	names, err := store.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"alpha", "beta"}) {
		t.Errorf("unexpected names: %v", names)
	}
}
