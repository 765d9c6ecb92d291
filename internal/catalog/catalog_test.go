package catalog

import (
	"errors"
	"path/filepath"
	"runtime"
	"testing"
)

func TestParse(t *testing.T) {
	c, err := Parse([]byte(`
companies:
  - id: stripe
    name: Stripe
  - id: spacex
locations:
  - id: any
  - id: united_states
jobTypes:
  - {id: product, name: Product Manager}
experienceLevels:
  - {id: entry}
`))
	if err != nil {
		t.Fatal(err)
	}
	if got := c.Companies[1].Name; got != "Spacex" {
		t.Fatalf("derived name=%q", got)
	}
	if got := c.Locations[1].Name; got != "United States" {
		t.Fatalf("derived name=%q", got)
	}
	if !c.HasCompany("stripe") || c.HasCompany("nope") {
		t.Fatal("HasCompany")
	}
}

func TestParseRejects(t *testing.T) {
	cases := map[string]string{
		"no companies": "locations: [{id: any}]",
		"no any":       "companies: [{id: a}]\nlocations: [{id: remote}]",
		"duplicate":    "companies: [{id: a}, {id: a}]\nlocations: [{id: any}]",
		"empty id":     "companies: [{name: A}]\nlocations: [{id: any}]",
		"bad board":    "companies: [{id: a, board: workday}]\nlocations: [{id: any}]",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); !errors.Is(err, ErrInvalid) {
			t.Errorf("%s: want ErrInvalid, got %v", name, err)
		}
	}
	if _, err := Parse([]byte("companies: [")); err == nil {
		t.Error("malformed yaml accepted")
	}
}

func TestShippedCatalog(t *testing.T) {
	_, file, _, _ := runtime.Caller(0)
	c, err := Load(filepath.Join(filepath.Dir(file), "..", "..", "config", "catalog.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Companies) < 50 {
		t.Fatalf("companies=%d", len(c.Companies))
	}
	if len(c.JobTypes) == 0 || len(c.ExperienceLevels) == 0 {
		t.Fatal("missing checkbox groups")
	}
	if e, ok := c.Company("cockroach"); !ok || e.Token != "cockroachlabs" || e.Board != BoardGreenhouse {
		t.Fatalf("cockroach=%+v", e)
	}
}

func TestCompanyBoardDefaults(t *testing.T) {
	c, err := Parse([]byte(`
companies:
  - id: stripe
  - {id: netflix, board: lever}
  - {id: openai, board: ashby, token: OpenAI}
locations: [{id: any}]
`))
	if err != nil {
		t.Fatal(err)
	}
	want := []Entry{
		{ID: "stripe", Name: "Stripe", Board: BoardGreenhouse, Token: "stripe"},
		{ID: "netflix", Name: "Netflix", Board: BoardLever, Token: "netflix"},
		{ID: "openai", Name: "Openai", Board: BoardAshby, Token: "OpenAI"},
	}
	for i, w := range want {
		if c.Companies[i] != w {
			t.Errorf("company %d = %+v, want %+v", i, c.Companies[i], w)
		}
	}
}
