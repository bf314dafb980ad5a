package cmd

import (
	"path/filepath"

	"github.com/codethinklabs/frepo/internal/groupfilter"
	"github.com/codethinklabs/frepo/internal/manifest"
	fsync "github.com/codethinklabs/frepo/internal/sync"
	"github.com/spf13/cobra"
)

var snapshotGroups string

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <name>",
	Short: "Record the workspace's current revisions as a new manifest branch",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshot,
}

func init() {
	snapshotCmd.Flags().StringVarP(&snapshotGroups, "groups", "g", "", "group filter")
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	name := args[0]
	log := newPrinter()

	ws, err := loadWorkspace()
	if err != nil {
		return err
	}

	filter := ws.Settings.GroupFilter
	if snapshotGroups != "" {
		filter = groupfilter.Parse(snapshotGroups, true)
	}
	filtered := manifest.Filter(ws.Manifest, filter)

	manifestRepoPath := filepath.Join(ws.Root, ws.Settings.ManifestRepo)
	manifestFile := filepath.Join(ws.Root, ws.Settings.ManifestPath())

	return fsync.Snapshot(cmd.Context(), driver, log, filtered, manifestRepoPath, manifestFile, name)
}
