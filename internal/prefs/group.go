// Package prefs is the preference editor: the company picklist, the three
// checkbox groups and the load/save protocol against the user's record.
package prefs

import "github.com/tazhibayda/dailyjobs/internal/catalog"

type Option struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Checked bool   `json:"checked"`
}

// Group is an independent multi-select. Checked ids keep catalog order.
type Group struct {
	options []catalog.Entry
	checked map[string]bool
}

func NewGroup(options []catalog.Entry) *Group {
	return &Group{options: options, checked: map[string]bool{}}
}

func (g *Group) known(id string) bool {
	for _, o := range g.options {
		if o.ID == id {
			return true
		}
	}
	return false
}

// Check sets one option. It returns false for ids outside the group.
func (g *Group) Check(id string, checked bool) bool {
	if !g.known(id) {
		return false
	}
	if checked {
		g.checked[id] = true
	} else {
		delete(g.checked, id)
	}
	return true
}

func (g *Group) Set(ids []string) {
	g.checked = map[string]bool{}
	for _, id := range ids {
		if g.known(id) {
			g.checked[id] = true
		}
	}
}

func (g *Group) IsChecked(id string) bool { return g.checked[id] }

func (g *Group) Checked() []string {
	out := []string{}
	for _, o := range g.options {
		if g.checked[o.ID] {
			out = append(out, o.ID)
		}
	}
	return out
}

func (g *Group) View() []Option {
	out := make([]Option, len(g.options))
	for i, o := range g.options {
		out[i] = Option{ID: o.ID, Name: o.Name, Checked: g.checked[o.ID]}
	}
	return out
}

// LocationGroup adds one rule: "any" excludes every other location, on each change.
type LocationGroup struct {
	Group
}

func NewLocationGroup(options []catalog.Entry) *LocationGroup {
	return &LocationGroup{Group: *NewGroup(options)}
}

func (g *LocationGroup) Check(id string, checked bool) bool {
	if !g.known(id) {
		return false
	}
	if checked {
		if id == catalog.AnyLocation {
			g.checked = map[string]bool{}
		} else {
			delete(g.checked, catalog.AnyLocation)
		}
	}
	return g.Group.Check(id, checked)
}

// Set loads stored ids; a stored set holding "any" collapses to just "any".
func (g *LocationGroup) Set(ids []string) {
	g.Group.Set(ids)
	if g.checked[catalog.AnyLocation] {
		g.checked = map[string]bool{catalog.AnyLocation: true}
	}
}
