// Package vcs implements the VCS driver contract the sync engine depends
// on: a fixed set of typed git operations, each executed as a subprocess
// with an explicit working directory rather than by mutating the
// process-wide current directory.
package vcs

import "context"

// Driver is the set of operations the sync engine consumes. Implementations
// shell out to git; tests may substitute a stub.
type Driver interface {
	// Exists reports whether <path>/.git is present.
	Exists(path string) bool

	// Clone creates a new clone of url into path. If branch names a remote
	// head, the clone checks out that head directly; otherwise it clones
	// the default branch and then checks out branch. mirror requests a
	// --mirror clone with no working tree.
	Clone(ctx context.Context, url, path, remoteName, branch string, mirror bool) error

	// Fetch runs `git fetch` in path, optionally restricted to remoteName.
	Fetch(ctx context.Context, path, remoteName string) error

	// Pull runs `git pull` in path.
	Pull(ctx context.Context, path string) error

	// Checkout runs `git checkout [-b] revision` in path.
	Checkout(ctx context.Context, path, revision string, create bool) error

	// ResetHard runs `git reset --hard commit` in path.
	ResetHard(ctx context.Context, path, commit string) error

	// Commit runs `git commit -a -m message` in path.
	Commit(ctx context.Context, path, message string) error

	// RevisionIsBranch reports whether rev names a remote head of path.
	RevisionIsBranch(ctx context.Context, path, rev string) (bool, error)

	// UncommittedChanges reports whether path's working tree or index
	// differs from HEAD.
	UncommittedChanges(ctx context.Context, path string) (bool, error)

	// CurrentBranch returns path's symbolic HEAD, or its commit hash if
	// HEAD is detached.
	CurrentBranch(ctx context.Context, path string) (string, error)

	// CurrentCommit returns path's HEAD commit id.
	CurrentCommit(ctx context.Context, path string) (string, error)

	// Remove recursively deletes path.
	Remove(path string) error
}

// Update is the higher-level composite operation the sync engine's fan-out
// and init perform per project: clone if the working tree doesn't exist
// yet, otherwise fetch and then pull (if revision names a branch) or
// checkout (if it names a fixed commit/tag).
func Update(ctx context.Context, d Driver, path, url, remotePath, remoteName, revision string, mirror bool) error {
	if !d.Exists(path) {
		return d.Clone(ctx, joinRemote(url, remotePath), path, remoteName, revision, mirror)
	}

	if err := d.Fetch(ctx, path, remoteName); err != nil {
		return err
	}

	isBranch, err := d.RevisionIsBranch(ctx, path, revision)
	if err != nil {
		return err
	}

	if isBranch {
		return d.Pull(ctx, path)
	}
	return d.Checkout(ctx, path, revision, false)
}

func joinRemote(url, remotePath string) string {
	if remotePath == "" {
		return url
	}
	if url == "" {
		return remotePath
	}
	if url[len(url)-1] == '/' {
		return url + remotePath
	}
	return url + "/" + remotePath
}
