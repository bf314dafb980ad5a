package urljoin

import "testing"

func TestJoin(t *testing.T) {
	cases := []struct {
		name string
		base string
		path string
		want string
	}{
		{"absolute path returned unchanged", "http://h/a/b", "/x/y", "/x/y"},
		{"scheme-qualified path returned unchanged", "http://h/a/b", "git://other/repo", "git://other/repo"},
		{"empty base returns path", "", "some/path", "some/path"},
		{"dot-slash appends under base", "http://h/a/b", "./c", "http://h/a/b/c"},
		{"dot-dot-slash pops one component", "http://h/a/b", "../c", "http://h/a/c"},
		{"plain relative path appends under base", "http://h/a/b", "c", "http://h/a/b/c"},
		{"trailing slash base does not double up", "http://h/a/b/", "c", "http://h/a/b/c"},
		{"bare dot path yields base", "http://h/a/b", ".", "http://h/a/b"},
		{"bare dot-dot path pops base", "http://h/a/b", "..", "http://h/a"},
		{"non-uri base preserved as plain path", "manifest/default", "../c", "manifest/c"},
		{"double pop", "http://h/a/b/c", "../../d", "http://h/a/d"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Join(tc.base, tc.path); got != tc.want {
				t.Errorf("Join(%q, %q) = %q, want %q", tc.base, tc.path, got, tc.want)
			}
		})
	}
}

func TestJoinEmptyPath(t *testing.T) {
	if got := Join("http://h/a", ""); got != "" {
		t.Errorf("Join with empty path = %q, want empty", got)
	}
}
