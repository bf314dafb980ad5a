// Package urljoin composes a project's fetch URL from a manifest's base URL
// and a project-relative remote path.
package urljoin

import "strings"

// Join computes the effective fetch URL for path relative to base.
//
// path is returned unchanged when it is absolute (begins with "/") or
// scheme-qualified (contains ":"), or when base is empty. Otherwise any
// optional "scheme://" prefix on base is preserved verbatim, leading "./"
// and "../" segments of path are consumed against the remainder of base
// (each "../" pops one path component, directory-name style), and the
// result is concatenated with a single separating slash. A path that
// reduces to nothing (".", "..") yields the reduced base with no trailing
// slash.
func Join(base, path string) string {
	if path == "" {
		return path
	}

	if base == "" || strings.HasPrefix(path, "/") || strings.Contains(path, ":") {
		return path
	}

	scheme := ""
	rest := base
	if i := strings.Index(base, "://"); i >= 0 {
		scheme = base[:i+3]
		rest = base[i+3:]
	}

	dir := rest
	for {
		switch {
		case strings.HasPrefix(path, "./"):
			path = path[2:]
			continue
		case path == ".":
			path = ""
		case strings.HasPrefix(path, "../"):
			dir = popComponent(dir)
			path = path[3:]
			continue
		case path == "..":
			dir = popComponent(dir)
			path = ""
		default:
		}
		break
	}

	if dir == "." {
		dir = ""
	}

	needsSlash := dir != "" && path != "" && !strings.HasSuffix(dir, "/")

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString(dir)
	if needsSlash {
		b.WriteString("/")
	}
	b.WriteString(path)
	return b.String()
}

// popComponent removes the final path component of dir, mirroring POSIX
// dirname(3): "a/b/c" -> "a/b", "a" -> ".", "" -> ".".
func popComponent(dir string) string {
	dir = strings.TrimRight(dir, "/")
	if dir == "" {
		return "."
	}
	i := strings.LastIndex(dir, "/")
	if i < 0 {
		return "."
	}
	if i == 0 {
		return "/"
	}
	return dir[:i]
}
