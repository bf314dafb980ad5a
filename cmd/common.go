package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/codethinklabs/frepo/internal/manifest"
	"github.com/codethinklabs/frepo/internal/settings"
	"github.com/codethinklabs/frepo/internal/ui"
	"github.com/codethinklabs/frepo/internal/vcs"
	"github.com/codethinklabs/frepo/internal/workspace"
)

// driver is the VCS implementation every command uses; a package variable
// so tests can substitute a stub without threading it through every RunE.
var driver vcs.Driver = vcs.GitDriver{}

func newPrinter() *ui.Printer {
	return ui.New(os.Stdout, os.Stderr)
}

// loadedWorkspace bundles everything a command running against an existing
// workspace needs: its root, stored settings, and stored manifest snapshot.
type loadedWorkspace struct {
	Root     string
	Settings *settings.Settings
	Manifest *manifest.Manifest
}

// loadWorkspace ascends from the current directory to find a workspace,
// then loads its settings and stored manifest snapshot.
func loadWorkspace() (*loadedWorkspace, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get current directory: %w", err)
	}

	root, err := workspace.Discover(cwd)
	if err != nil {
		return nil, err
	}
	if root == "" {
		return nil, fmt.Errorf("no .frepo workspace found in %s or any parent directory", cwd)
	}

	cfgPath := filepath.Join(workspace.Dir(root), "config.ini")
	s, err := settings.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	snapshotPath := filepath.Join(workspace.Dir(root), workspace.SnapshotName)
	m, _, err := manifest.Read(snapshotPath)
	if err != nil {
		return nil, fmt.Errorf("read stored manifest snapshot: %w", err)
	}

	return &loadedWorkspace{Root: root, Settings: s, Manifest: m}, nil
}

// extractRepoName derives a manifest repository's directory name from its
// clone URL, stripping a trailing ".git" and taking the last "/" or ":"
// delimited segment so SCP-style SSH URLs (git@host:group/repo.git) work the
// same as HTTPS ones.
func extractRepoName(url string) string {
	s := strings.TrimSuffix(strings.TrimSuffix(url, "/"), ".git")
	if i := strings.LastIndexAny(s, "/:"); i >= 0 {
		return s[i+1:]
	}
	return s
}
