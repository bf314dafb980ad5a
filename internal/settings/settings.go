// Package settings reads and writes a workspace's .frepo/config.ini, the
// key=value file recording anything that differs from frepo's defaults:
// an alternate manifest repository or file name, mirror mode, and a
// standing group filter applied to every sync.
package settings

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/codethinklabs/frepo/internal/groupfilter"
)

// Defaults, matching the original implementation's manifest_repo_default
// and manifest_name_default constants.
const (
	DefaultManifestRepo = "manifest"
	DefaultManifestName = "default.xml"
)

// Settings holds one workspace's stored configuration.
type Settings struct {
	ManifestRepo string
	ManifestName string
	ManifestURL  string
	Mirror       bool
	GroupFilter  groupfilter.List

	groupFilterString string // group-filter value as read by Load; Save writes GroupFilter instead
}

// New returns Settings at their defaults.
func New() *Settings {
	return &Settings{ManifestRepo: DefaultManifestRepo, ManifestName: DefaultManifestName}
}

// ManifestPath returns the workspace-relative path to the live manifest
// file: ManifestRepo/ManifestName.
func (s *Settings) ManifestPath() string {
	return filepath.Join(s.ManifestRepo, s.ManifestName)
}

// Load parses the config file at path. A missing file is not an error: it
// simply yields the defaults, since an unconfigured workspace has none.
func Load(path string) (*Settings, error) {
	s := New()

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open settings %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "manifest-repo":
			if value != "" {
				s.ManifestRepo = value
			}
		case "manifest-name":
			if value != "" {
				s.ManifestName = value
			}
		case "manifest-url":
			if value != "" {
				s.ManifestURL = value
			}
		case "mirror":
			if value == "0" || value == "1" {
				s.Mirror = value == "1"
			}
		case "group-filter":
			s.groupFilterString = value
			s.GroupFilter = groupfilter.Parse(value, true)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}

	return s, nil
}

// Save persists s to path, writing only keys that differ from the
// defaults, matching the original implementation's "all-default means no
// file needed" behavior: a freshly initialized workspace with no overrides
// writes nothing.
func Save(path string, s *Settings) error {
	if s.ManifestRepo == DefaultManifestRepo &&
		s.ManifestName == DefaultManifestName &&
		s.ManifestURL == "" &&
		!s.Mirror &&
		len(s.GroupFilter) == 0 {
		return nil
	}

	var b strings.Builder
	if s.ManifestRepo != DefaultManifestRepo {
		fmt.Fprintf(&b, "manifest-repo=%s\n", s.ManifestRepo)
	}
	if s.ManifestName != DefaultManifestName {
		fmt.Fprintf(&b, "manifest-name=%s\n", s.ManifestName)
	}
	if s.ManifestURL != "" {
		fmt.Fprintf(&b, "manifest-url=%s\n", s.ManifestURL)
	}
	if s.Mirror {
		fmt.Fprintf(&b, "mirror=1\n")
	}
	if len(s.GroupFilter) > 0 {
		names := make([]string, len(s.GroupFilter))
		for i, g := range s.GroupFilter {
			if g.Exclude {
				names[i] = "-" + g.Name
			} else {
				names[i] = g.Name
			}
		}
		fmt.Fprintf(&b, "group-filter=%s\n", strings.Join(names, ","))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}
