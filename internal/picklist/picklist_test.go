package picklist

import (
	"reflect"
	"testing"
)

func ids(items []Item) []string {
	out := []string{}
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

var abc = []Item{{ID: "c", Name: "C"}, {ID: "a", Name: "A"}, {ID: "b", Name: "B"}}

func TestLoadAndFilterScenario(t *testing.T) {
	p := New(abc, []string{"b"})
	v := p.View()
	if got := ids(v.Selected); !reflect.DeepEqual(got, []string{"b"}) {
		t.Fatalf("selected=%v", got)
	}
	if got := ids(v.Available); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Fatalf("available=%v", got)
	}

	p.Filter("c")
	v = p.View()
	if got := ids(v.Available); !reflect.DeepEqual(got, []string{"c"}) {
		t.Fatalf("filtered available=%v", got)
	}
	if got := ids(v.Selected); !reflect.DeepEqual(got, []string{"b"}) {
		t.Fatalf("selected changed under filter: %v", got)
	}
	if v.AvailableCount != 2 || v.SelectedCount != 1 {
		t.Fatalf("counts=%d/%d", v.SelectedCount, v.AvailableCount)
	}
}

func TestToggleIsInvolution(t *testing.T) {
	catalog := []Item{
		{ID: "stripe", Name: "Stripe"}, {ID: "airbnb", Name: "Airbnb"}, {ID: "figma", Name: "Figma"},
		{ID: "23andme", Name: "23andMe"}, {ID: "notion", Name: "Notion"}, {ID: "datadog", Name: "Datadog"},
	}
	for _, start := range [][]string{nil, {"figma"}, {"stripe", "airbnb"}} {
		for _, it := range catalog {
			p := New(catalog, start)
			before := p.View()
			p.Toggle(it.ID)
			after := p.View()
			if reflect.DeepEqual(before, after) {
				t.Fatalf("toggle %s did not move", it.ID)
			}
			p.Toggle(it.ID)
			if again := p.View(); !reflect.DeepEqual(before, again) {
				t.Fatalf("toggle %s twice from %v:\n got %+v\nwant %+v", it.ID, start, again, before)
			}
		}
	}
}

func TestSortedInsertion(t *testing.T) {
	p := New(abc, []string{"a", "b", "c"})
	p.Toggle("b")
	p.Toggle("c")
	p.Toggle("a")
	if got := ids(p.View().Available); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("available=%v", got)
	}
}

func TestUnknownIDsIgnored(t *testing.T) {
	p := New(abc, []string{"zzz", "a"})
	if got := p.SelectedIDs(); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("selected=%v", got)
	}
	if p.Toggle("zzz") {
		t.Fatal("toggle of unknown id reported a move")
	}
}

func TestSelectAllRespectsFilterAndClearAll(t *testing.T) {
	catalog := []Item{{ID: "gitlab", Name: "GitLab"}, {ID: "github", Name: "GitHub"}, {ID: "lyft", Name: "Lyft"}}
	p := New(catalog, nil)
	p.Filter("GIT")
	p.SelectAll()
	if got := p.SelectedIDs(); !reflect.DeepEqual(got, []string{"github", "gitlab"}) {
		t.Fatalf("selected=%v", got)
	}
	if got := ids(p.View().Available); len(got) != 0 {
		t.Fatalf("visible available=%v", got)
	}
	p.Filter("")
	if got := ids(p.View().Available); !reflect.DeepEqual(got, []string{"lyft"}) {
		t.Fatalf("available=%v", got)
	}

	p.ClearAll()
	v := p.View()
	if len(v.Selected) != 0 || v.Placeholder != Placeholder {
		t.Fatalf("after clear: %+v", v)
	}
	if v.AvailableCount != 3 {
		t.Fatalf("available count=%d", v.AvailableCount)
	}
}

func TestPlaceholderOnlyWhenEmpty(t *testing.T) {
	if v := New(abc, nil).View(); v.Placeholder != Placeholder {
		t.Fatalf("placeholder=%q", v.Placeholder)
	}
	if v := New(abc, []string{"a"}).View(); v.Placeholder != "" {
		t.Fatalf("placeholder=%q", v.Placeholder)
	}
}
