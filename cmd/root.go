// Package cmd implements the frepo command-line interface: init, sync,
// snapshot, list, and forall.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "frepo",
	Short: "Manage a workspace of many repositories from a single manifest",
	Long: `frepo brings a workspace of independently-versioned git repositories into
agreement with a declarative manifest.

Commands (workflow order):
  init      Create a new workspace from a manifest repository
  sync      Bring the workspace's projects up to date with the manifest
  snapshot  Record the workspace's current revisions as a new manifest branch
  list      Print the filtered manifest's projects
  forall    Run a command in every project`,
	Version:       Version,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(forallCmd)
}

// osExit is overridden in tests.
var osExit = os.Exit

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		osExit(1)
	}
}
