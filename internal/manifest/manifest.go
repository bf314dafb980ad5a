// Package manifest parses and derives frepo manifests: the declarative XML
// document enumerating remotes, defaults, and projects that a workspace
// syncs against.
package manifest

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/codethinklabs/frepo/internal/groupfilter"
)

// Remote is a named base URL referenced by projects.
type Remote struct {
	Name  string
	Fetch string
}

// Copyfile describes a file to copy from inside a project's working tree to
// a workspace-relative destination after each sync.
type Copyfile struct {
	Source string
	Dest   string
}

// Project is one managed repository identified by its workspace-relative
// Path. RemoteURL and RemoteName are resolved from the project's own
// remote= attribute or the manifest's <default>; Revision inherits from
// <default> when the project omits it.
type Project struct {
	Path       string
	Name       string
	RemoteURL  string
	RemoteName string
	Revision   string
	Copyfiles  []Copyfile
	Groups     groupfilter.List
}

// Manifest is an immutable (after construction) collection of remotes and
// projects. Derived manifests (Copy, Subtract, Filter) never share project
// slices with their parent.
type Manifest struct {
	Remotes  []Remote
	Projects []Project
}

// xmlTag is a generic parsed XML element, the Go analogue of the original
// implementation's xml_tag_t tokenizer output: a name, its attributes, and
// child elements, decoded with encoding/xml.Decoder token-by-token so that
// unrecognized tags can be told apart (error at manifest level, warning on
// project sub-tags) rather than silently dropped the way a single
// xml.Unmarshal call would behave.
type xmlTag struct {
	Name  string
	Attrs map[string]string
	Tags  []*xmlTag
}

func (t *xmlTag) field(name string) (string, bool) {
	v, ok := t.Attrs[name]
	return v, ok
}

// decodeDocument reads the root element and its tree of children from r.
func decodeDocument(r io.Reader) (*xmlTag, error) {
	dec := xml.NewDecoder(r)

	var root *xmlTag
	stack := []*xmlTag{}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse xml: %w", err)
		}

		switch se := tok.(type) {
		case xml.StartElement:
			tag := &xmlTag{Name: se.Name.Local, Attrs: map[string]string{}}
			for _, a := range se.Attr {
				tag.Attrs[a.Name.Local] = a.Value
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Tags = append(parent.Tags, tag)
			} else {
				root = tag
			}
			stack = append(stack, tag)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		}
	}

	if root == nil {
		return nil, fmt.Errorf("empty xml document")
	}
	return root, nil
}

// Parse parses an XML manifest read from r. Inside the root <manifest>
// element it recognizes <remote>, <default>, and <project>; any other
// top-level tag is a fatal error. Inside <project>, any sub-tag other than
// <copyfile> produces a warning (collected in the returned []string) and is
// ignored.
func Parse(r io.Reader) (*Manifest, []string, error) {
	doc, err := decodeDocument(r)
	if err != nil {
		return nil, nil, err
	}
	if doc.Name != "manifest" {
		return nil, nil, fmt.Errorf("no <manifest> root in xml document")
	}

	var warnings []string

	var remotes []Remote
	for _, tag := range doc.Tags {
		switch tag.Name {
		case "remote":
			name, hasName := tag.field("name")
			fetch, hasFetch := tag.field("fetch")
			if !hasName || !hasFetch {
				return nil, nil, fmt.Errorf("remote tag missing 'name' or 'fetch'")
			}
			remotes = append(remotes, Remote{Name: name, Fetch: fetch})
		case "project", "default":
			// Handled in the second pass below.
		default:
			return nil, nil, fmt.Errorf("unrecognized tag '%s' in manifest", tag.Name)
		}
	}

	findRemote := func(name string) (Remote, bool) {
		for _, r := range remotes {
			if r.Name == name {
				return r, true
			}
		}
		return Remote{}, false
	}

	var defaultRemote *Remote
	if len(remotes) > 0 {
		defaultRemote = &remotes[0]
	}
	defaultRevision := ""

	for _, tag := range doc.Tags {
		if tag.Name != "default" {
			continue
		}
		if rev, ok := tag.field("revision"); ok {
			defaultRevision = rev
		}
		if name, ok := tag.field("remote"); ok {
			r, found := findRemote(name)
			if !found {
				return nil, nil, fmt.Errorf("invalid remote name '%s' in default tag", name)
			}
			defaultRemote = &r
		}
	}

	var projects []Project
	for _, tag := range doc.Tags {
		if tag.Name != "project" {
			continue
		}

		p := Project{}
		p.Path, _ = tag.field("path")
		p.Name, _ = tag.field("name")

		if remoteName, ok := tag.field("remote"); ok {
			r, found := findRemote(remoteName)
			if !found {
				return nil, nil, fmt.Errorf("invalid remote name '%s' in project tag", remoteName)
			}
			p.RemoteURL = r.Fetch
			p.RemoteName = r.Name
		} else if defaultRemote != nil {
			p.RemoteURL = defaultRemote.Fetch
			p.RemoteName = defaultRemote.Name
		}

		if rev, ok := tag.field("revision"); ok {
			p.Revision = rev
		} else {
			p.Revision = defaultRevision
		}

		for _, sub := range tag.Tags {
			if sub.Name != "copyfile" {
				warnings = append(warnings, fmt.Sprintf("unknown project sub-tag '%s'", sub.Name))
				continue
			}
			src, hasSrc := sub.field("src")
			dest, hasDest := sub.field("dest")
			if !hasSrc {
				return nil, nil, fmt.Errorf("copyfile tag missing 'src' field")
			}
			if !hasDest {
				return nil, nil, fmt.Errorf("copyfile tag missing 'dest' field")
			}
			p.Copyfiles = append(p.Copyfiles, Copyfile{Source: src, Dest: dest})
		}

		if groups, ok := tag.field("groups"); ok {
			p.Groups = groupfilter.Parse(groups, false)
		}

		if p.Path == "" || p.Name == "" || p.RemoteURL == "" || p.Revision == "" {
			return nil, nil, fmt.Errorf("invalid project tag, missing field (path=%q name=%q)", p.Path, p.Name)
		}

		projects = append(projects, p)
	}

	return &Manifest{Remotes: remotes, Projects: projects}, warnings, nil
}

// Read parses the manifest stored at path.
func Read(path string) (*Manifest, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open manifest %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Copy returns an independent manifest with deep-copied copyfile and group
// slices.
func Copy(a *Manifest) *Manifest {
	if a == nil {
		return nil
	}
	out := &Manifest{
		Remotes:  append([]Remote(nil), a.Remotes...),
		Projects: make([]Project, len(a.Projects)),
	}
	for i, p := range a.Projects {
		out.Projects[i] = p
		out.Projects[i].Copyfiles = append([]Copyfile(nil), p.Copyfiles...)
		out.Projects[i].Groups = groupfilter.Copy(p.Groups)
	}
	return out
}

// Subtract returns a new manifest whose projects are those of a whose Path
// does not appear in b, preserving a's order. Remotes are copied from a.
// Subtract(a, nil) behaves like Copy(a); if the result would contain no
// projects, it returns nil.
func Subtract(a, b *Manifest) *Manifest {
	if a == nil {
		return nil
	}
	if b == nil {
		return Copy(a)
	}

	present := make(map[string]bool, len(b.Projects))
	for _, p := range b.Projects {
		present[p.Path] = true
	}

	out := &Manifest{Remotes: append([]Remote(nil), a.Remotes...)}
	for _, p := range a.Projects {
		if present[p.Path] {
			continue
		}
		np := p
		np.Copyfiles = append([]Copyfile(nil), p.Copyfiles...)
		np.Groups = groupfilter.Copy(p.Groups)
		out.Projects = append(out.Projects, np)
	}

	if len(out.Projects) == 0 {
		return nil
	}
	return out
}

// Filter returns a new manifest containing exactly the projects of m that
// the group filter algebra (see internal/groupfilter) includes under
// filter.
func Filter(m *Manifest, filter groupfilter.List) *Manifest {
	if m == nil {
		return nil
	}

	out := &Manifest{Remotes: append([]Remote(nil), m.Remotes...)}
	for _, p := range m.Projects {
		if !groupfilter.Includes(filter, p.Groups) {
			continue
		}
		np := p
		np.Copyfiles = append([]Copyfile(nil), p.Copyfiles...)
		np.Groups = groupfilter.Copy(p.Groups)
		out.Projects = append(out.Projects, np)
	}
	return out
}

// Find returns the project with the given path, if present.
func (m *Manifest) Find(path string) (*Project, bool) {
	for i := range m.Projects {
		if m.Projects[i].Path == path {
			return &m.Projects[i], true
		}
	}
	return nil, false
}

// CurrentCommitFunc resolves a project's current commit id; used by
// WriteSnapshot to pin each project's revision. Implemented by
// internal/vcs.Driver.CurrentCommit in production.
type CurrentCommitFunc func(path string) (string, error)

// WriteSnapshot serializes m to w as XML: one <remote> per remote, one
// <project> per project with revision= replaced by its current commit
// (obtained via currentCommit), groups= emitted when non-empty, and each
// copyfile as a nested <copyfile> element.
func WriteSnapshot(w io.Writer, m *Manifest, currentCommit CurrentCommitFunc) error {
	bw := newIndentWriter(w)

	bw.printf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	bw.printf("<manifest>\n")

	for _, r := range m.Remotes {
		bw.printf("\t<remote name=%s fetch=%s/>\n", quote(r.Name), quote(r.Fetch))
	}

	for _, p := range m.Projects {
		revision, err := currentCommit(p.Path)
		if err != nil {
			return fmt.Errorf("get current revision of %s during snapshot: %w", p.Path, err)
		}

		bw.printf("\t<project path=%s name=%s revision=%s remote=%s",
			quote(p.Path), quote(p.Name), quote(revision), quote(p.RemoteName))

		if len(p.Groups) > 0 {
			names := make([]string, len(p.Groups))
			for i, g := range p.Groups {
				names[i] = g.Name
			}
			bw.printf(" groups=%s", quote(strings.Join(names, ",")))
		}

		if len(p.Copyfiles) > 0 {
			bw.printf(">\n")
			for _, c := range p.Copyfiles {
				bw.printf("\t\t<copyfile src=%s dest=%s/>\n", quote(c.Source), quote(c.Dest))
			}
			bw.printf("\t</project>\n")
		} else {
			bw.printf("/>\n")
		}
	}

	bw.printf("</manifest>\n")
	return bw.err
}

func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	xml.EscapeText(&b, []byte(s))
	b.WriteByte('"')
	return b.String()
}

type indentWriter struct {
	w   io.Writer
	err error
}

func newIndentWriter(w io.Writer) *indentWriter {
	return &indentWriter{w: w}
}

func (iw *indentWriter) printf(format string, args ...interface{}) {
	if iw.err != nil {
		return
	}
	_, iw.err = fmt.Fprintf(iw.w, format, args...)
}
