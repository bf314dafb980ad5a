package groupfilter

import "testing"

func TestParseOrderAndOverride(t *testing.T) {
	list := Parse("a,+b,-c,a", true)
	if len(list) != 3 {
		t.Fatalf("expected 3 entries after dedup, got %d: %+v", len(list), list)
	}
	// "a" reinserted last keeps its new position (last-match-wins on insert).
	if list[len(list)-1].Name != "a" {
		t.Errorf("expected last entry to be re-inserted 'a', got %+v", list)
	}
	if t2, ok := Match("c", list); !ok || !t2.Exclude {
		t.Errorf("expected 'c' to be an exclude entry, got %+v", t2)
	}
}

func TestParseNonFilterRejectsPrefixAsLiteral(t *testing.T) {
	list := Parse("docs,-net", false)
	if len(list) != 2 {
		t.Fatalf("expected 2 groups, got %+v", list)
	}
	if list[1].Name != "-net" {
		t.Errorf("expected '-net' kept as a literal group name, got %+v", list[1])
	}
	for _, g := range list {
		if g.Exclude {
			t.Errorf("project group list entries must never be marked exclude: %+v", g)
		}
	}
}

func TestIncludesEmptyFilterKeepsEmptyOrDefaultGroups(t *testing.T) {
	var filter List
	if !Includes(filter, nil) {
		t.Error("empty groups should be included under an empty filter")
	}
	if !Includes(filter, Parse("default", false)) {
		t.Error("groups containing 'default' should be included under an empty filter")
	}
	if Includes(filter, Parse("docs", false)) {
		t.Error("a non-default-labeled project should not be included under an empty filter")
	}
}

func TestIncludesMinusDefault(t *testing.T) {
	filter := Parse("-default", true)
	if Includes(filter, nil) {
		t.Error("empty group list must be excluded when -default is set")
	}
	if Includes(filter, Parse("default", false)) {
		t.Error("a project labeled only 'default' must be excluded when -default is set")
	}
}

func TestIncludesPlusAllMinusX(t *testing.T) {
	filter := Parse("+all,-docs", true)

	p1 := Parse("default", false)
	p2 := Parse("docs", false)
	p3 := Parse("net", false)

	if !Includes(filter, p1) {
		t.Error("p1 (default) should be included under +all,-docs")
	}
	if Includes(filter, p2) {
		t.Error("p2 (docs) should be excluded under +all,-docs")
	}
	if !Includes(filter, p3) {
		t.Error("p3 (net) should be included under +all,-docs")
	}
}

func TestIncludesPlusAll(t *testing.T) {
	filter := Parse("+all", true)
	if !Includes(filter, Parse("anything", false)) {
		t.Error("+all must include every project regardless of its groups")
	}
	if !Includes(filter, nil) {
		t.Error("+all must include a project with no groups")
	}
}
