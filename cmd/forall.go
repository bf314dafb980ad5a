package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/codethinklabs/frepo/internal/groupfilter"
	"github.com/codethinklabs/frepo/internal/manifest"
	"github.com/codethinklabs/frepo/internal/ui"
	"github.com/spf13/cobra"
)

// forallEnvKeys are the variables forall controls explicitly; any inherited
// value is stripped before a project's own values (if any) are set.
var forallEnvKeys = []string{"REPO_PROJECT", "REPO_PATH", "REPO_REMOTE", "REPO_RREV", "REPO_LREV"}

func baseForallEnv() []string {
	base := os.Environ()
	out := base[:0:0]
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		skip := false
		for _, k := range forallEnvKeys {
			if key == k {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, kv)
		}
	}
	return out
}

var forallCmd = &cobra.Command{
	Use:                "forall -c <command>...",
	Short:              "Run a command in every project",
	DisableFlagParsing: true,
	RunE:               runForall,
}

// forallArgs is the result of scanning forall's argv by hand: -c consumes
// every token after it as the command to run, so pflag's normal parsing
// (which would try to interpret "-s" in "git status -sb" as forall's own
// flag) cannot be used once -c is seen.
type forallArgs struct {
	groups  string
	print   bool
	command []string
}

func parseForallArgs(args []string) (forallArgs, error) {
	var fa forallArgs
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-g", "--groups":
			if i+1 >= len(args) {
				return fa, fmt.Errorf("-g requires a group filter argument")
			}
			i++
			fa.groups = args[i]
		case "-p", "--print":
			fa.print = true
		case "-c", "--command":
			fa.command = args[i+1:]
			return fa, validateForallArgs(fa)
		case "-h", "--help":
			return fa, flagHelpRequested{}
		default:
			return fa, fmt.Errorf("unexpected argument '%s'", args[i])
		}
	}
	return fa, validateForallArgs(fa)
}

func validateForallArgs(fa forallArgs) error {
	if len(fa.command) == 0 {
		return fmt.Errorf("-c <command>... is required")
	}
	return nil
}

// flagHelpRequested signals forall was invoked with -h/--help; runForall
// prints usage and exits cleanly rather than treating it as a user error.
type flagHelpRequested struct{}

func (flagHelpRequested) Error() string { return "help requested" }

func runForall(cmd *cobra.Command, args []string) error {
	fa, err := parseForallArgs(args)
	if err != nil {
		if _, ok := err.(flagHelpRequested); ok {
			return cmd.Help()
		}
		return err
	}

	log := newPrinter()

	ws, err := loadWorkspace()
	if err != nil {
		return err
	}

	filter := ws.Settings.GroupFilter
	if fa.groups != "" {
		filter = groupfilter.Parse(fa.groups, true)
	}
	filtered := manifest.Filter(ws.Manifest, filter)

	return forallRun(ws.Root, filtered, fa, log)
}

// forallRun iterates projects sequentially, building each command's
// environment explicitly rather than mutating the process environment, per
// the "forall should launch each subprocess with an explicitly-built
// environment" design note. A chdir-equivalent failure (the project
// directory not existing) aborts the remaining iteration; a non-zero exit
// from the command itself is ignored and iteration continues.
func forallRun(root string, m *manifest.Manifest, fa forallArgs, log *ui.Printer) error {
	for _, p := range m.Projects {
		if fa.print {
			log.Header("project %s\n", p.Path)
		}

		dir := filepath.Join(root, p.Path)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return fmt.Errorf("project directory %s does not exist", p.Path)
		}

		env := append(baseForallEnv(),
			"REPO_PROJECT="+p.Name,
			"REPO_PATH="+p.Path,
		)
		if p.RemoteName != "" {
			env = append(env, "REPO_REMOTE="+p.RemoteName)
		}
		if p.Revision != "" {
			env = append(env, "REPO_RREV="+p.Revision)
		}
		// REPO_LREV is always unset; baseForallEnv already stripped any
		// inherited value.

		c := exec.Command(fa.command[0], fa.command[1:]...)
		c.Dir = dir
		c.Env = env
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		_ = c.Run() // non-zero exits from individual projects don't abort the loop
	}
	return nil
}
