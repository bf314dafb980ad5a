package vcs

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// GitDriver is the production Driver backed by the git executable on PATH.
// Every operation launches git as a subprocess with Cmd.Dir set to the
// target path; it never chdir(2)s the host process, since the working
// directory is process-wide and the sync engine runs many of these
// concurrently (see spec's "process-wide working directory" design note).
type GitDriver struct{}

var _ Driver = GitDriver{}

func (GitDriver) run(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func (GitDriver) output(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimRight(string(out), "\n"), nil
}

func (GitDriver) Exists(path string) bool {
	info, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil && (info.IsDir() || info.Mode().IsRegular())
}

func (g GitDriver) Clone(ctx context.Context, url, path, remoteName, branch string, mirror bool) error {
	args := []string{"clone", url}

	checkoutAfter := false
	if branch != "" {
		if mirror {
			// A mirror clone has no working tree to check out into.
		} else if isBranch, err := g.lsRemoteHasHead(ctx, url, branch); err == nil && isBranch {
			args = append(args, "-b", branch)
		} else {
			checkoutAfter = true
		}
	}

	args = append(args, path)
	if !mirror && remoteName != "" {
		args = append(args, "--origin", remoteName)
	}
	if mirror {
		args = append(args, "--mirror")
	}

	if err := g.run(ctx, "", args...); err != nil {
		return err
	}

	if checkoutAfter && !mirror {
		return g.Checkout(ctx, path, branch, false)
	}
	return nil
}

func (g GitDriver) lsRemoteHasHead(ctx context.Context, url, ref string) (bool, error) {
	err := g.run(ctx, "", "ls-remote", "--heads", "--exit-code", url, ref)
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if isExitError(err, &exitErr) {
		return false, nil
	}
	return false, err
}

func (g GitDriver) Fetch(ctx context.Context, path, remoteName string) error {
	args := []string{"fetch"}
	if remoteName != "" {
		args = append(args, remoteName)
	}
	return g.run(ctx, path, args...)
}

func (g GitDriver) Pull(ctx context.Context, path string) error {
	return g.run(ctx, path, "pull")
}

func (g GitDriver) Checkout(ctx context.Context, path, revision string, create bool) error {
	args := []string{"checkout"}
	if create {
		args = append(args, "-b")
	}
	args = append(args, revision)
	return g.run(ctx, path, args...)
}

func (g GitDriver) ResetHard(ctx context.Context, path, commit string) error {
	return g.run(ctx, path, "reset", "--hard", commit)
}

func (g GitDriver) Commit(ctx context.Context, path, message string) error {
	return g.run(ctx, path, "commit", "-a", "-m", message)
}

func (g GitDriver) RevisionIsBranch(ctx context.Context, path, rev string) (bool, error) {
	err := g.run(ctx, path, "ls-remote", "--heads", "--exit-code", ".", rev)
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if isExitError(err, &exitErr) {
		return false, nil
	}
	return false, err
}

func (g GitDriver) UncommittedChanges(ctx context.Context, path string) (bool, error) {
	unstaged := g.run(ctx, path, "diff", "--quiet", "--exit-code") != nil
	staged := g.run(ctx, path, "diff", "--cached", "--quiet", "--exit-code") != nil
	return unstaged || staged, nil
}

func (g GitDriver) CurrentBranch(ctx context.Context, path string) (string, error) {
	branch, err := g.output(ctx, path, "rev-parse", "--symbolic-full-name", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	if branch == "HEAD" {
		return g.output(ctx, path, "rev-parse", "HEAD")
	}
	return branch, nil
}

func (g GitDriver) CurrentCommit(ctx context.Context, path string) (string, error) {
	return g.output(ctx, path, "rev-parse", "HEAD")
}

func (GitDriver) Remove(path string) error {
	return os.RemoveAll(path)
}

// isExitError reports whether err wraps an *exec.ExitError (a git command
// that ran and returned non-zero, as opposed to failing to execute at
// all), distinguishing "ref not found" from a genuine driver failure.
func isExitError(err error, target **exec.ExitError) bool {
	type unwrapper interface{ Unwrap() error }
	for e := err; e != nil; {
		if ee, ok := e.(*exec.ExitError); ok {
			*target = ee
			return true
		}
		u, ok := e.(unwrapper)
		if !ok {
			return false
		}
		e = u.Unwrap()
	}
	return false
}
