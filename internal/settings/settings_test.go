package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/codethinklabs/frepo/internal/groupfilter"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "config.ini"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.ManifestRepo != DefaultManifestRepo || s.ManifestName != DefaultManifestName {
		t.Errorf("expected defaults, got %+v", s)
	}
	if s.ManifestPath() != filepath.Join(DefaultManifestRepo, DefaultManifestName) {
		t.Errorf("ManifestPath = %q", s.ManifestPath())
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.ini")
	content := "manifest-repo=manifests\nmanifest-name=other.xml\nmirror=1\ngroup-filter=+all,-docs\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.ManifestRepo != "manifests" || s.ManifestName != "other.xml" || !s.Mirror {
		t.Errorf("overrides not applied: %+v", s)
	}
	if len(s.GroupFilter) != 2 {
		t.Fatalf("expected 2 group filter entries, got %+v", s.GroupFilter)
	}
}

func TestSaveSkipsFileWhenAllDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.ini")
	if err := Save(path, New()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected no file written for all-default settings, stat err = %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".frepo", "config.ini")
	s := &Settings{
		ManifestRepo: "manifests",
		ManifestName: DefaultManifestName,
		Mirror:       true,
	}
	s.GroupFilter = groupfilter.Parse("all,-docs", true)

	if err := Save(path, s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.ManifestRepo != s.ManifestRepo || got.Mirror != s.Mirror {
		t.Errorf("round-trip mismatch: got %+v want %+v", got, s)
	}
	if len(got.GroupFilter) != 2 {
		t.Errorf("expected 2 group filter entries after round-trip, got %+v", got.GroupFilter)
	}
}
