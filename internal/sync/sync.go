// Package sync implements the engine that reconciles a workspace's working
// trees against a manifest: computing which projects were added, kept, or
// removed since the last sync, fanning the per-project git operations out
// across a bounded worker pool, and rolling the manifest repository back to
// its starting point if anything goes wrong before the fan-out begins.
package sync

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/codethinklabs/frepo/internal/groupfilter"
	"github.com/codethinklabs/frepo/internal/manifest"
	"github.com/codethinklabs/frepo/internal/ui"
	"github.com/codethinklabs/frepo/internal/urljoin"
	"github.com/codethinklabs/frepo/internal/vcs"
	"golang.org/x/sync/errgroup"
)

// DefaultRetries and DefaultRetryDelay govern the fan-out's per-project
// retry loop: on failure a worker waits, doubling the delay each time, and
// tries again up to DefaultRetries times before giving up on that project.
const (
	DefaultRetries    = 8
	DefaultRetryDelay = 100 * time.Millisecond
)

// ProjectResult is one project's outcome from a fan-out pass.
type ProjectResult struct {
	Project manifest.Project
	Err     error
}

// Options configures a Sync run.
type Options struct {
	// ManifestRepo is the working tree of the manifest's own git repository.
	ManifestRepo string
	// ManifestFile is the path to the live manifest XML inside ManifestRepo.
	ManifestFile string
	// ManifestURL is the base fetch URL relative project URLs resolve
	// against (settings' manifest-url).
	ManifestURL string
	// Branch, if non-empty, checks out this manifest branch before
	// refreshing; the prior branch is restored only if the sync rolls back.
	Branch string
	// Force permits removing projects with no safety check beyond their
	// own uncommitted-changes gate.
	Force bool
	// Mirror fans out bare mirror clones/fetches instead of working-tree
	// checkouts, matching how the workspace was initialized.
	Mirror bool
	// Filter selects which projects from the refreshed manifest apply.
	Filter groupfilter.List
	// Threads bounds fan-out concurrency; <= 0 behaves as 1.
	Threads int
}

// Result is what a Sync or Init run produced.
type Result struct {
	// Manifest is the filtered manifest the fan-out ran over.
	Manifest *manifest.Manifest
	// Removed lists projects dropped by this sync, already deleted from
	// disk by the time Sync returns.
	Removed *manifest.Manifest
	// Projects are the fan-out's per-project outcomes, one per project in
	// Manifest, in manifest order.
	Projects []ProjectResult
}

// ErrDirty is returned (wrapped) when a safety or removal gate finds
// uncommitted changes that would otherwise be silently discarded.
var ErrDirty = fmt.Errorf("uncommitted changes present")

// ErrForceRequired is returned when projects would be removed and Force was
// not set.
var ErrForceRequired = fmt.Errorf("refusing to remove projects without -f/--force")

// Sync runs the eight-stage reconciliation described by the project's sync
// design: it refreshes the manifest repository, classifies projects against
// old relative to the newly read manifest, gates on uncommitted changes,
// fans out git operations for the kept/added set, and deletes the removed
// set. Any failure prior to the fan-out rolls the manifest repository back
// to the commit and branch it started on; fan-out failures are reported per
// project in the returned Result instead of aborting.
func Sync(ctx context.Context, driver vcs.Driver, log *ui.Printer, old *manifest.Manifest, opts Options) (*Result, error) {
	headOld, branchOld, err := safetyGate(ctx, driver, opts.ManifestRepo)
	if err != nil {
		return nil, err
	}

	overriddenBranch := ""
	manifestBranch := branchOld
	if opts.Branch != "" && opts.Branch != branchOld {
		if err := driver.Checkout(ctx, opts.ManifestRepo, opts.Branch, false); err != nil {
			return nil, fmt.Errorf("checkout manifest branch %s: %w", opts.Branch, err)
		}
		overriddenBranch = branchOld
		manifestBranch = opts.Branch
	}

	rollback := func(cause error) (*Result, error) {
		if overriddenBranch != "" {
			if err := driver.Checkout(ctx, opts.ManifestRepo, overriddenBranch, false); err != nil {
				log.Warnf("rollback: failed to restore manifest branch %s: %v\n", overriddenBranch, err)
			}
		}
		if err := driver.ResetHard(ctx, opts.ManifestRepo, headOld); err != nil {
			log.Warnf("rollback: failed to reset manifest repository to %s: %v\n", headOld, err)
		}
		return nil, cause
	}

	if err := vcs.Update(ctx, driver, opts.ManifestRepo, "", "", "", manifestBranch, false); err != nil {
		return rollback(fmt.Errorf("refresh manifest repository: %w", err))
	}

	headNew, err := driver.CurrentCommit(ctx, opts.ManifestRepo)
	if err != nil {
		return rollback(fmt.Errorf("read manifest repository head: %w", err))
	}

	var filtered, removed *manifest.Manifest
	if headNew != headOld {
		parsed, _, err := manifest.Read(opts.ManifestFile)
		if err != nil {
			return rollback(fmt.Errorf("read refreshed manifest: %w", err))
		}
		filtered = manifest.Filter(parsed, opts.Filter)
		removed = manifest.Subtract(old, filtered)
	} else {
		filtered = manifest.Copy(old)
	}

	if removed != nil {
		if !opts.Force {
			return rollback(fmt.Errorf("%d project(s) would be removed: %w", len(removed.Projects), ErrForceRequired))
		}
		for _, p := range removed.Projects {
			dirty, err := driver.UncommittedChanges(ctx, p.Path)
			if err != nil {
				return rollback(fmt.Errorf("check uncommitted changes in %s before removal: %w", p.Path, err))
			}
			if dirty {
				return rollback(fmt.Errorf("%s has uncommitted changes, refusing to remove: %w", p.Path, ErrDirty))
			}
		}
	}

	for _, p := range filtered.Projects {
		if !driver.Exists(p.Path) {
			continue
		}
		dirty, err := driver.UncommittedChanges(ctx, p.Path)
		if err != nil {
			return rollback(fmt.Errorf("check uncommitted changes in %s: %w", p.Path, err))
		}
		if dirty {
			return rollback(fmt.Errorf("%s has uncommitted changes: %w", p.Path, ErrDirty))
		}
	}

	results := runFanOut(ctx, driver, log, filtered, opts.ManifestURL, opts.Mirror, opts.Threads)

	if removed != nil {
		for _, p := range removed.Projects {
			if err := driver.Remove(p.Path); err != nil {
				log.Warnf("failed to remove %s: %v\n", p.Path, err)
			}
		}
	}

	return &Result{Manifest: filtered, Removed: removed, Projects: results}, nil
}

// Init fans the whole of m out without any prior safety or removal gating,
// since a newly initialized workspace has nothing on disk yet to protect.
func Init(ctx context.Context, driver vcs.Driver, log *ui.Printer, m *manifest.Manifest, manifestURL string, mirror bool, threads int) (*Result, error) {
	results := runFanOut(ctx, driver, log, m, manifestURL, mirror, threads)
	return &Result{Manifest: m, Projects: results}, nil
}

func safetyGate(ctx context.Context, driver vcs.Driver, manifestRepo string) (head, branch string, err error) {
	dirty, err := driver.UncommittedChanges(ctx, manifestRepo)
	if err != nil {
		return "", "", fmt.Errorf("check uncommitted changes in manifest repository: %w", err)
	}
	if dirty {
		return "", "", fmt.Errorf("manifest repository has uncommitted changes: %w", ErrDirty)
	}
	head, err = driver.CurrentCommit(ctx, manifestRepo)
	if err != nil {
		return "", "", fmt.Errorf("read manifest repository head: %w", err)
	}
	branch, err = driver.CurrentBranch(ctx, manifestRepo)
	if err != nil {
		return "", "", fmt.Errorf("read manifest repository branch: %w", err)
	}
	return head, branch, nil
}

// runFanOut bounds concurrency to threads (clamped to [1, len(m.Projects)])
// using a buffered channel as a semaphore, so workers block instead of
// busy-scanning for a free slot. A worker's own error never cancels its
// siblings: each is recorded in the returned slice, indexed to match
// m.Projects, instead of aborting the group.
func runFanOut(ctx context.Context, driver vcs.Driver, log *ui.Printer, m *manifest.Manifest, manifestURL string, mirror bool, threads int) []ProjectResult {
	n := len(m.Projects)
	if n == 0 {
		return nil
	}
	if threads <= 0 {
		threads = 1
	}
	if threads > n {
		threads = n
	}

	results := make([]ProjectResult, n)
	sem := make(chan struct{}, threads)
	eg, egCtx := errgroup.WithContext(ctx)

	for i := range m.Projects {
		i := i
		p := m.Projects[i]
		eg.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-egCtx.Done():
				results[i] = ProjectResult{Project: p, Err: egCtx.Err()}
				return nil
			}
			defer func() { <-sem }()

			err := syncProject(egCtx, driver, log, p, manifestURL, mirror, i+1, n)
			results[i] = ProjectResult{Project: p, Err: err}
			return nil
		})
	}
	eg.Wait()
	return results
}

func syncProject(ctx context.Context, driver vcs.Driver, log *ui.Printer, p manifest.Project, manifestURL string, mirror bool, index, total int) error {
	existed := driver.Exists(p.Path)
	if existed {
		log.Infof("Updating project (%d/%d) '%s'\n", index, total, p.Path)
	} else {
		log.Infof("Cloning project (%d/%d) '%s'\n", index, total, p.Path)
	}

	var saved string
	revisionDiffers := false
	if existed && !mirror {
		var err error
		saved, err = driver.CurrentBranch(ctx, p.Path)
		if err != nil {
			return fmt.Errorf("read current branch of %s: %w", p.Path, err)
		}
		if saved != p.Revision {
			if err := driver.Checkout(ctx, p.Path, p.Revision, false); err != nil {
				return fmt.Errorf("checkout %s in %s: %w", p.Revision, p.Path, err)
			}
			revisionDiffers = true
		}
	}

	fullURL := urljoin.Join(manifestURL, p.RemoteURL)

	var failed error
	if err := retryUpdate(ctx, driver, log, p, fullURL, mirror); err != nil {
		failed = fmt.Errorf("update %s: %w", p.Path, err)
	}

	for _, cf := range p.Copyfiles {
		if err := copyFile(p.Path, cf); err != nil {
			failed = joinErr(failed, fmt.Errorf("copy %s to %s for %s: %w", cf.Source, cf.Dest, p.Path, err))
		}
	}

	if revisionDiffers {
		if err := driver.Checkout(ctx, p.Path, saved, false); err != nil {
			failed = joinErr(failed, fmt.Errorf("revert %s to %s: %w", p.Path, saved, err))
		}
	}

	return failed
}

// retryUpdate performs the project's composite clone/fetch/pull-or-checkout
// operation, retrying up to DefaultRetries times with doubling backoff on
// failure.
func retryUpdate(ctx context.Context, driver vcs.Driver, log *ui.Printer, p manifest.Project, fullURL string, mirror bool) error {
	err := vcs.Update(ctx, driver, p.Path, fullURL, p.Name, p.RemoteName, p.Revision, mirror)
	delay := DefaultRetryDelay
	for r := 0; err != nil && r < DefaultRetries; r++ {
		log.Warnf("failed to update '%s', retrying in %s (%d/%d)\n", p.Path, delay, r+1, DefaultRetries)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
		err = vcs.Update(ctx, driver, p.Path, fullURL, p.Name, p.RemoteName, p.Revision, mirror)
	}
	return err
}

func copyFile(projectPath string, cf manifest.Copyfile) error {
	src := filepath.Join(projectPath, cf.Source)
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if dir := filepath.Dir(cf.Dest); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	out, err := os.Create(cf.Dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

func joinErr(existing, next error) error {
	if existing == nil {
		return next
	}
	return fmt.Errorf("%w; %v", existing, next)
}
