package cmd

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/codethinklabs/frepo/internal/groupfilter"
	"github.com/codethinklabs/frepo/internal/manifest"
	"gopkg.in/yaml.v3"
)

func TestPrintListYAML(t *testing.T) {
	m := &manifest.Manifest{
		Projects: []manifest.Project{
			{
				Path:       "apps/frontend",
				Name:       "org/frontend",
				RemoteName: "origin",
				Revision:   "main",
				Groups:     groupfilter.List{{Name: "app"}, {Name: "web"}},
			},
		},
	}

	f, err := os.CreateTemp(t.TempDir(), "list-*.yaml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	defer f.Close()

	if err := printListYAML(f, m); err != nil {
		t.Fatalf("printListYAML: %v", err)
	}

	if _, err := f.Seek(0, 0); err != nil {
		t.Fatalf("seek: %v", err)
	}
	var out []yamlProject
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&out); err != nil {
		t.Fatalf("decode yaml output: %v", err)
	}

	if len(out) != 1 {
		t.Fatalf("expected 1 project, got %d", len(out))
	}
	p := out[0]
	if p.Path != "apps/frontend" || p.Name != "org/frontend" || p.RemoteName != "origin" || p.Revision != "main" {
		t.Errorf("unexpected project projection: %+v", p)
	}
	if len(p.Groups) != 2 || p.Groups[0] != "app" || p.Groups[1] != "web" {
		t.Errorf("unexpected groups: %v", p.Groups)
	}
}

func TestPrintListYAMLEmptyManifest(t *testing.T) {
	var buf bytes.Buffer
	f, err := os.CreateTemp(t.TempDir(), "list-*.yaml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	defer f.Close()

	if err := printListYAML(f, &manifest.Manifest{}); err != nil {
		t.Fatalf("printListYAML: %v", err)
	}

	if _, err := f.Seek(0, 0); err != nil {
		t.Fatalf("seek: %v", err)
	}
	data := make([]byte, 64)
	n, _ := f.Read(data)
	buf.Write(data[:n])
	if !strings.Contains(buf.String(), "[]") {
		t.Errorf("expected empty yaml sequence, got %q", buf.String())
	}
}
