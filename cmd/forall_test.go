package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/codethinklabs/frepo/internal/manifest"
	"github.com/codethinklabs/frepo/internal/ui"
)

func TestParseForallArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    forallArgs
		wantErr bool
	}{
		{
			name: "command only",
			args: []string{"-c", "git", "status"},
			want: forallArgs{command: []string{"git", "status"}},
		},
		{
			name: "groups and print before command",
			args: []string{"-g", "app,-docs", "-p", "-c", "git", "status", "-sb"},
			want: forallArgs{groups: "app,-docs", print: true, command: []string{"git", "status", "-sb"}},
		},
		{
			name:    "missing command",
			args:    []string{"-g", "app"},
			wantErr: true,
		},
		{
			name:    "dangling -g",
			args:    []string{"-g"},
			wantErr: true,
		},
		{
			name:    "unknown flag",
			args:    []string{"--bogus"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseForallArgs(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseForallArgs(%v) returned no error", tt.args)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseForallArgs(%v): %v", tt.args, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseForallArgs(%v) = %+v, want %+v", tt.args, got, tt.want)
			}
		})
	}
}

func TestParseForallArgsHelp(t *testing.T) {
	_, err := parseForallArgs([]string{"-h"})
	if _, ok := err.(flagHelpRequested); !ok {
		t.Fatalf("expected flagHelpRequested, got %v", err)
	}
}

func TestBaseForallEnvStripsControlledKeys(t *testing.T) {
	t.Setenv("REPO_PROJECT", "stale")
	t.Setenv("REPO_LREV", "stale")
	t.Setenv("FREPO_KEEP_ME", "kept")

	env := baseForallEnv()
	for _, kv := range env {
		if len(kv) >= len("REPO_PROJECT=") && kv[:len("REPO_PROJECT=")] == "REPO_PROJECT=" {
			t.Errorf("baseForallEnv() leaked REPO_PROJECT: %q", kv)
		}
		if len(kv) >= len("REPO_LREV=") && kv[:len("REPO_LREV=")] == "REPO_LREV=" {
			t.Errorf("baseForallEnv() leaked REPO_LREV: %q", kv)
		}
	}

	found := false
	for _, kv := range env {
		if kv == "FREPO_KEEP_ME=kept" {
			found = true
		}
	}
	if !found {
		t.Error("baseForallEnv() dropped an unrelated inherited variable")
	}
}

func TestForallRunExecutesCommandPerProjectWithExplicitEnv(t *testing.T) {
	root := t.TempDir()
	for _, path := range []string{"proj-a", "proj-b"} {
		if err := os.MkdirAll(filepath.Join(root, path), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", path, err)
		}
	}

	m := &manifest.Manifest{
		Projects: []manifest.Project{
			{Name: "remote/proj-a", Path: "proj-a", RemoteName: "origin", Revision: "main"},
			{Name: "remote/proj-b", Path: "proj-b", RemoteName: "origin", Revision: "main"},
		},
	}

	logPath := filepath.Join(root, "log.txt")
	fa := forallArgs{
		print:   true,
		command: []string{"sh", "-c", `printf '%s|%s|%s\n' "$REPO_PROJECT" "$REPO_PATH" "$REPO_RREV" >> "` + logPath + `"`},
	}

	var out, errOut bytes.Buffer
	log := ui.New(&out, &errOut)

	if err := forallRun(root, m, fa, log); err != nil {
		t.Fatalf("forallRun: %v", err)
	}

	logged, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	want := "remote/proj-a|proj-a|main\nremote/proj-b|proj-b|main\n"
	if string(logged) != want {
		t.Errorf("forall log = %q, want %q", string(logged), want)
	}

	if !bytes.Contains(out.Bytes(), []byte("proj-a")) || !bytes.Contains(out.Bytes(), []byte("proj-b")) {
		t.Errorf("forall -p output missing project headers: %q", out.String())
	}
}

func TestForallRunAbortsWhenProjectDirMissing(t *testing.T) {
	root := t.TempDir()
	m := &manifest.Manifest{Projects: []manifest.Project{{Name: "remote/missing", Path: "missing"}}}
	fa := forallArgs{command: []string{"true"}}
	log := ui.New(&bytes.Buffer{}, &bytes.Buffer{})

	if err := forallRun(root, m, fa, log); err == nil {
		t.Fatal("forallRun did not error for a missing project directory")
	}
}

func TestForallRunIgnoresNonZeroExit(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "p"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	m := &manifest.Manifest{Projects: []manifest.Project{{Name: "remote/p", Path: "p"}}}
	fa := forallArgs{command: []string{"sh", "-c", "exit 7"}}
	log := ui.New(&bytes.Buffer{}, &bytes.Buffer{})

	if err := forallRun(root, m, fa, log); err != nil {
		t.Fatalf("forallRun should ignore a non-zero exit, got %v", err)
	}
}
