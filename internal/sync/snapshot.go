package sync

import (
	"context"
	"fmt"
	"os"

	"github.com/codethinklabs/frepo/internal/manifest"
	"github.com/codethinklabs/frepo/internal/ui"
	"github.com/codethinklabs/frepo/internal/vcs"
)

// Snapshot pins m's projects to their currently checked-out commits and
// commits the result to a new branch named name in the manifest repository,
// then restores the branch the repository was on beforehand. The manifest
// repository must be clean; on any failure after the branch switch, it
// reverts the branch and discards the would-be commit.
func Snapshot(ctx context.Context, driver vcs.Driver, log *ui.Printer, m *manifest.Manifest, manifestRepo, manifestFile, name string) error {
	dirty, err := driver.UncommittedChanges(ctx, manifestRepo)
	if err != nil {
		return fmt.Errorf("check uncommitted changes in manifest repository: %w", err)
	}
	if dirty {
		return fmt.Errorf("manifest repository has uncommitted changes: %w", ErrDirty)
	}

	branch, err := driver.CurrentBranch(ctx, manifestRepo)
	if err != nil {
		return fmt.Errorf("read manifest repository branch: %w", err)
	}

	if err := driver.Checkout(ctx, manifestRepo, name, true); err != nil {
		return fmt.Errorf("create snapshot branch %s: %w", name, err)
	}

	if err := writeSnapshotFile(ctx, driver, manifestFile, m); err != nil {
		revertSnapshotBranch(ctx, driver, log, manifestRepo, branch, true)
		return fmt.Errorf("write snapshot manifest: %w", err)
	}

	if err := driver.Commit(ctx, manifestRepo, fmt.Sprintf("Manifest snapshot '%s'", name)); err != nil {
		revertSnapshotBranch(ctx, driver, log, manifestRepo, branch, true)
		return fmt.Errorf("commit snapshot: %w", err)
	}

	if err := driver.Checkout(ctx, manifestRepo, branch, false); err != nil {
		log.Warnf("failed to return to previous manifest branch '%s': %v\n", branch, err)
	}
	return nil
}

func writeSnapshotFile(ctx context.Context, driver vcs.Driver, manifestFile string, m *manifest.Manifest) error {
	f, err := os.Create(manifestFile)
	if err != nil {
		return err
	}
	defer f.Close()

	err = manifest.WriteSnapshot(f, m, func(path string) (string, error) {
		return driver.CurrentCommit(ctx, path)
	})
	if err != nil {
		return err
	}
	return f.Close()
}

// revertSnapshotBranch restores the manifest repository to branch after a
// failed snapshot attempt. If the checkout itself fails, the uncommitted or
// committed snapshot attempt is left in place rather than compounding the
// error with a second failure; resetUncommitted additionally runs
// `git reset --hard HEAD` on the restored branch, discarding an uncommitted
// write of the snapshot manifest carried over by the checkout. Commits
// already made on the snapshot branch are not undone.
func revertSnapshotBranch(ctx context.Context, driver vcs.Driver, log *ui.Printer, manifestRepo, branch string, resetUncommitted bool) {
	if err := driver.Checkout(ctx, manifestRepo, branch, false); err != nil {
		log.Warnf("failed to revert manifest repository to branch '%s': %v\n", branch, err)
		return
	}
	if resetUncommitted {
		if err := driver.ResetHard(ctx, manifestRepo, "HEAD"); err != nil {
			log.Warnf("failed to discard failed snapshot commit: %v\n", err)
		}
	}
}
