package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/codethinklabs/frepo/internal/groupfilter"
	"github.com/codethinklabs/frepo/internal/manifest"
	"github.com/codethinklabs/frepo/internal/settings"
	fsync "github.com/codethinklabs/frepo/internal/sync"
	"github.com/codethinklabs/frepo/internal/vcs"
	"github.com/codethinklabs/frepo/internal/workspace"
	"github.com/spf13/cobra"
)

var (
	initURL     string
	initBranch  string
	initGroups  string
	initMirror  bool
	initThreads int
)

var initCmd = &cobra.Command{
	Use:   "init <name> -u <url>",
	Short: "Create a new workspace from a manifest repository",
	Args:  cobra.ExactArgs(1),
	RunE:  runInit,
}

func init() {
	initCmd.Flags().StringVarP(&initURL, "url", "u", "", "manifest repository URL (required)")
	initCmd.Flags().StringVarP(&initBranch, "branch", "b", "", "manifest repository branch")
	initCmd.Flags().StringVarP(&initGroups, "groups", "g", "", "group filter")
	initCmd.Flags().BoolVar(&initMirror, "mirror", false, "mirror-clone every project")
	initCmd.Flags().IntVarP(&initThreads, "threads", "j", 1, "fan-out worker count")
	initCmd.MarkFlagRequired("url")
}

func runInit(cmd *cobra.Command, args []string) error {
	name := args[0]
	log := newPrinter()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get current directory: %w", err)
	}
	root := filepath.Join(cwd, name)

	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create workspace directory %s: %w", root, err)
	}
	if err := os.MkdirAll(workspace.Dir(root), 0o755); err != nil {
		return fmt.Errorf("create .frepo directory: %w", err)
	}

	s := settings.New()
	s.ManifestURL = initURL
	s.ManifestRepo = extractRepoName(initURL)
	s.Mirror = initMirror
	s.GroupFilter = groupfilter.Parse(initGroups, true)

	manifestRepoPath := filepath.Join(root, s.ManifestRepo)
	if err := vcs.Update(cmd.Context(), driver, manifestRepoPath, initURL, "", "", initBranch, false); err != nil {
		return fmt.Errorf("clone manifest repository: %w", err)
	}

	manifestFile := filepath.Join(manifestRepoPath, s.ManifestName)
	parsed, warnings, err := manifest.Read(manifestFile)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	for _, w := range warnings {
		log.Warnf("%s\n", w)
	}

	filtered := manifest.Filter(parsed, s.GroupFilter)

	result, err := fsync.Init(cmd.Context(), driver, log, filtered, s.ManifestURL, s.Mirror, resolveThreads(initThreads))
	if err != nil {
		return err
	}

	if err := workspace.StoreManifestSnapshot(root, manifestFile); err != nil {
		log.Warnf("failed to store manifest snapshot: %v\n", err)
	}
	if err := settings.Save(filepath.Join(workspace.Dir(root), "config.ini"), s); err != nil {
		log.Warnf("failed to write settings: %v\n", err)
	}

	return reportProjectResults(log, result.Projects)
}

// resolveThreads clamps a non-positive thread count to 1, the default
// concurrency when the -j flag requests no more.
func resolveThreads(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

// reportProjectResults prints per-project fan-out failures and returns a
// non-nil error if any project failed, causing a non-zero process exit
// without treating individual failures as fatal to the others.
func reportProjectResults(log interface {
	Errorf(format string, a ...interface{})
}, results []fsync.ProjectResult) error {
	failures := 0
	for _, r := range results {
		if r.Err != nil {
			log.Errorf("%s: %v\n", r.Project.Path, r.Err)
			failures++
		}
	}
	if failures > 0 {
		return fmt.Errorf("%d project(s) failed", failures)
	}
	return nil
}
