package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDiscoverFindsMarkerInCurrentDir(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, dirName), 0o755); err != nil {
		t.Fatal(err)
	}

	found, err := Discover(root)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if found != root {
		t.Errorf("Discover(%s) = %s, want %s", root, found, root)
	}
}

func TestDiscoverAscendsToParent(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, dirName), 0o755); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	found, err := Discover(sub)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if found != root {
		t.Errorf("Discover(%s) = %s, want %s", sub, found, root)
	}
}

func TestDiscoverReturnsEmptyWhenNotFound(t *testing.T) {
	dir := t.TempDir()
	found, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if found != "" {
		t.Errorf("Discover(%s) = %q, want empty", dir, found)
	}
}

func TestStoreManifestSnapshotCopiesFile(t *testing.T) {
	root := t.TempDir()
	manifestContent := `<manifest><project path="p" name="n" remote="o" revision="r"/></manifest>`
	manifestPath := filepath.Join(root, "manifest", "default.xml")
	if err := os.MkdirAll(filepath.Dir(manifestPath), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(manifestPath, []byte(manifestContent), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := StoreManifestSnapshot(root, manifestPath); err != nil {
		t.Fatalf("StoreManifestSnapshot: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(root, dirName, SnapshotName))
	if err != nil {
		t.Fatalf("read stored snapshot: %v", err)
	}
	if !strings.Contains(string(got), `path="p"`) {
		t.Errorf("stored snapshot missing expected content: %s", got)
	}
}
