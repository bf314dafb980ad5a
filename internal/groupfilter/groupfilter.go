// Package groupfilter implements the group-tag include/exclude algebra used
// to select a subset of manifest projects.
package groupfilter

import "strings"

// Tag is a named group label. In a project's group list Exclude is always
// false; in a filter list Exclude distinguishes "-name" from "name"/"+name".
type Tag struct {
	Name    string
	Exclude bool
}

// List is an ordered list of Tags. A later Add for an identical name
// supersedes any earlier entry for that name (last insertion wins), which
// is how both project group lists and filter lists are built.
type List []Tag

// Match returns the first entry in the list with the given name.
func Match(name string, list List) (Tag, bool) {
	for _, t := range list {
		if t.Name == name {
			return t, true
		}
	}
	return Tag{}, false
}

// Add inserts name into the list, removing any prior entry for the same
// name first so the new entry's position and Exclude value take effect.
func Add(list List, name string, exclude bool) List {
	list = Remove(list, name)
	return append(list, Tag{Name: name, Exclude: exclude})
}

// Remove deletes every entry matching name from the list.
func Remove(list List, name string) List {
	out := list[:0:0]
	for _, t := range list {
		if t.Name != name {
			out = append(out, t)
		}
	}
	return out
}

// Copy returns an independent copy of list.
func Copy(list List) List {
	if list == nil {
		return nil
	}
	out := make(List, len(list))
	copy(out, list)
	return out
}

// Parse parses a comma-separated filter string. filter=true allows "+name"
// (include) and "-name" (exclude) prefixes in addition to a bare "name"
// (include); filter=false (a project's groups="a,b,c" attribute) treats
// every entry as a bare name: a leading "+" or "-" is not rejected but kept
// as part of the name, and the entry is never an exclude. Order is
// preserved; a later entry for an identical name supersedes an earlier one.
func Parse(groups string, filter bool) List {
	var list List
	for _, raw := range strings.Split(groups, ",") {
		if raw == "" {
			continue
		}

		exclude := false
		name := raw
		if filter {
			switch {
			case strings.HasPrefix(raw, "+"):
				name = raw[1:]
			case strings.HasPrefix(raw, "-"):
				exclude = true
				name = raw[1:]
			}
		}

		list = Add(list, name, exclude)
	}
	return list
}

// Includes decides whether a project with the given group list is selected
// by this filter list, per the algorithm:
//
//  1. include_default = true unless the filter contains "-default".
//  2. include_all = false unless the filter contains "+all"/"all".
//  3. included starts at include_all.
//  4. If groups is empty, or groups contains "default", included |= include_default.
//  5. Otherwise each filter entry matching a project group sets
//     included = !entry.Exclude, in filter order (last match wins).
func Includes(filter List, groups List) bool {
	includeDefault := true
	if t, ok := Match("default", filter); ok {
		includeDefault = !t.Exclude
	}

	includeAll := false
	if t, ok := Match("all", filter); ok {
		includeAll = !t.Exclude
	}

	included := includeAll

	if len(groups) == 0 {
		return included || includeDefault
	}
	if _, ok := Match("default", groups); ok {
		return included || includeDefault
	}

	for _, f := range filter {
		if _, ok := Match(f.Name, groups); ok {
			included = !f.Exclude
		}
	}

	return included
}
