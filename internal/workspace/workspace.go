// Package workspace locates a frepo workspace root relative to the current
// directory and manages the stored manifest snapshot a workspace keeps
// under .frepo/manifest.xml.
package workspace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/codethinklabs/frepo/internal/manifest"
)

// dirName is the marker directory every frepo workspace root contains.
const dirName = ".frepo"

// SnapshotName is the file a workspace's stored manifest snapshot is kept
// under, inside dirName.
const SnapshotName = "manifest.xml"

// Context is a located workspace: its root directory and the manifest
// snapshot stored there from the last successful init or sync.
type Context struct {
	Root     string
	Manifest *manifest.Manifest
}

// Discover ascends from dir toward the filesystem root looking for a
// .frepo directory, the same upward search the original implementation
// performs when a command isn't run from the workspace root itself. It
// returns the first directory found containing .frepo, or "" if none does.
func Discover(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path of %s: %w", dir, err)
	}

	for {
		if info, err := os.Stat(filepath.Join(dir, dirName)); err == nil && info.IsDir() {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// Load locates the workspace containing dir and reads its stored manifest
// snapshot. It returns an error if no workspace is found.
func Load(dir string) (*Context, error) {
	root, err := Discover(dir)
	if err != nil {
		return nil, err
	}
	if root == "" {
		return nil, fmt.Errorf("no %s directory found in %s or any parent", dirName, dir)
	}

	m, _, err := manifest.Read(filepath.Join(root, dirName, SnapshotName))
	if err != nil {
		return nil, fmt.Errorf("read stored manifest snapshot: %w", err)
	}

	return &Context{Root: root, Manifest: m}, nil
}

// Dir returns the workspace's .frepo directory path.
func Dir(root string) string {
	return filepath.Join(root, dirName)
}

// StoreManifestSnapshot copies the live manifest file at manifestPath to
// root/.frepo/manifest.xml, the stored snapshot the next sync's Subtract
// compares newly read projects against. This mirrors the original
// implementation's final "cp manifest_base manifest_path" step after a
// successful init or sync.
func StoreManifestSnapshot(root, manifestPath string) error {
	if err := os.MkdirAll(Dir(root), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dirName, err)
	}

	src, err := os.Open(manifestPath)
	if err != nil {
		return fmt.Errorf("open manifest %s: %w", manifestPath, err)
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(Dir(root), SnapshotName))
	if err != nil {
		return fmt.Errorf("create stored manifest snapshot: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copy manifest snapshot: %w", err)
	}
	return dst.Close()
}
