// Package catalog loads the static option lists the editor renders: companies,
// locations, job types and experience levels.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AnyLocation is the exclusive location option.
const AnyLocation = "any"

// Job boards a company can publish on.
const (
	BoardGreenhouse = "greenhouse"
	BoardLever      = "lever"
	BoardAshby      = "ashby"
)

// Entry is one option. Board and Token only apply to companies: the digest
// reads postings from Board using Token, which defaults to the id.
type Entry struct {
	ID    string `yaml:"id"              json:"id"`
	Name  string `yaml:"name"            json:"name"`
	Board string `yaml:"board,omitempty" json:"-"`
	Token string `yaml:"token,omitempty" json:"-"`
}

type Catalog struct {
	Companies        []Entry `yaml:"companies"        json:"companies"`
	Locations        []Entry `yaml:"locations"        json:"locations"`
	JobTypes         []Entry `yaml:"jobTypes"         json:"jobTypes"`
	ExperienceLevels []Entry `yaml:"experienceLevels" json:"experienceLevels"`
}

var ErrInvalid = errors.New("invalid catalog")

func Load(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(b)
}

func Parse(b []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate fills missing display names from ids and rejects empty or duplicate lists.
func (c *Catalog) Validate() error {
	if len(c.Companies) == 0 {
		return fmt.Errorf("%w: no companies", ErrInvalid)
	}
	for name, list := range map[string][]Entry{
		"companies":        c.Companies,
		"locations":        c.Locations,
		"jobTypes":         c.JobTypes,
		"experienceLevels": c.ExperienceLevels,
	} {
		seen := map[string]bool{}
		for i := range list {
			id := strings.TrimSpace(list[i].ID)
			if id == "" {
				return fmt.Errorf("%w: %s[%d] has no id", ErrInvalid, name, i)
			}
			if seen[id] {
				return fmt.Errorf("%w: duplicate %s id %q", ErrInvalid, name, id)
			}
			seen[id] = true
			list[i].ID = id
			if list[i].Name == "" {
				list[i].Name = displayName(id)
			}
		}
	}
	for i := range c.Companies {
		e := &c.Companies[i]
		switch e.Board {
		case "":
			e.Board = BoardGreenhouse
		case BoardGreenhouse, BoardLever, BoardAshby:
		default:
			return fmt.Errorf("%w: company %q has unknown board %q", ErrInvalid, e.ID, e.Board)
		}
		if e.Token == "" {
			e.Token = e.ID
		}
	}
	if !c.HasLocation(AnyLocation) {
		return fmt.Errorf("%w: locations must include %q", ErrInvalid, AnyLocation)
	}
	return nil
}

func (c *Catalog) HasLocation(id string) bool {
	for _, e := range c.Locations {
		if e.ID == id {
			return true
		}
	}
	return false
}

func (c *Catalog) HasCompany(id string) bool {
	_, ok := c.Company(id)
	return ok
}

func (c *Catalog) Company(id string) (Entry, bool) {
	for _, e := range c.Companies {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// displayName turns "united_states" into "United States".
func displayName(id string) string {
	words := strings.FieldsFunc(id, func(r rune) bool { return r == '_' || r == '-' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
