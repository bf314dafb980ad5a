package cmd

import (
	"path/filepath"

	"github.com/codethinklabs/frepo/internal/groupfilter"
	fsync "github.com/codethinklabs/frepo/internal/sync"
	"github.com/codethinklabs/frepo/internal/workspace"
	"github.com/spf13/cobra"
)

var (
	syncForce   bool
	syncBranch  string
	syncGroups  string
	syncThreads int
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Bring the workspace's projects up to date with the manifest",
	Args:  cobra.NoArgs,
	RunE:  runSync,
}

func init() {
	syncCmd.Flags().BoolVarP(&syncForce, "force", "f", false, "permit project removal")
	syncCmd.Flags().StringVarP(&syncBranch, "branch", "b", "", "manifest branch override")
	syncCmd.Flags().StringVarP(&syncGroups, "groups", "g", "", "group filter")
	syncCmd.Flags().IntVarP(&syncThreads, "threads", "j", 0, "fan-out worker count (default 1)")
}

func runSync(cmd *cobra.Command, args []string) error {
	log := newPrinter()

	ws, err := loadWorkspace()
	if err != nil {
		return err
	}

	filter := ws.Settings.GroupFilter
	if syncGroups != "" {
		filter = groupfilter.Parse(syncGroups, true)
	}

	threads := syncThreads
	if threads <= 0 {
		threads = 1
	}

	manifestRepoPath := filepath.Join(ws.Root, ws.Settings.ManifestRepo)
	manifestFile := filepath.Join(ws.Root, ws.Settings.ManifestPath())

	result, err := fsync.Sync(cmd.Context(), driver, log, ws.Manifest, fsync.Options{
		ManifestRepo: manifestRepoPath,
		ManifestFile: manifestFile,
		ManifestURL:  ws.Settings.ManifestURL,
		Branch:       syncBranch,
		Force:        syncForce,
		Mirror:       ws.Settings.Mirror,
		Filter:       filter,
		Threads:      threads,
	})
	if err != nil {
		return err
	}

	if err := workspace.StoreManifestSnapshot(ws.Root, manifestFile); err != nil {
		log.Warnf("failed to store manifest snapshot: %v\n", err)
	}

	return reportProjectResults(log, result.Projects)
}
