// Package picklist partitions a company catalog into Selected and Available groups.
// Everything here is a pure in-memory transform; rendering lives in the page package.
package picklist

import (
	"sort"
	"strings"
)

const Placeholder = "No companies selected"

type Item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func less(a, b Item) bool {
	an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
	if an != bn {
		return an < bn
	}
	return a.ID < b.ID
}

// Picklist is not safe for concurrent use.
type Picklist struct {
	byID      map[string]Item
	selected  []Item
	available []Item
	term      string
}

// New partitions catalog by the selected ids. Ids missing from the catalog are dropped.
func New(catalog []Item, selected []string) *Picklist {
	p := &Picklist{byID: make(map[string]Item, len(catalog))}
	for _, it := range catalog {
		p.byID[it.ID] = it
	}
	p.Reset(selected)
	return p
}

// Reset re-partitions against the same catalog and clears the filter.
func (p *Picklist) Reset(selected []string) {
	want := make(map[string]bool, len(selected))
	for _, id := range selected {
		want[id] = true
	}
	p.selected = p.selected[:0]
	p.available = p.available[:0]
	for _, it := range p.byID {
		if want[it.ID] {
			p.selected = append(p.selected, it)
		} else {
			p.available = append(p.available, it)
		}
	}
	sort.Slice(p.selected, func(i, j int) bool { return less(p.selected[i], p.selected[j]) })
	sort.Slice(p.available, func(i, j int) bool { return less(p.available[i], p.available[j]) })
	p.term = ""
}

func insert(list []Item, it Item) []Item {
	i := sort.Search(len(list), func(i int) bool { return !less(list[i], it) })
	list = append(list, Item{})
	copy(list[i+1:], list[i:])
	list[i] = it
	return list
}

func remove(list []Item, id string) ([]Item, bool) {
	for i, it := range list {
		if it.ID == id {
			return append(list[:i], list[i+1:]...), true
		}
	}
	return list, false
}

// Toggle moves id to the other group at its sorted position. Unknown ids are ignored.
func (p *Picklist) Toggle(id string) bool {
	it, ok := p.byID[id]
	if !ok {
		return false
	}
	var moved bool
	if p.selected, moved = remove(p.selected, id); moved {
		p.available = insert(p.available, it)
		return true
	}
	p.available, _ = remove(p.available, id)
	p.selected = insert(p.selected, it)
	return true
}

// Filter restricts the visible Available items. Selected stays fully visible.
func (p *Picklist) Filter(term string) { p.term = strings.TrimSpace(term) }

func (p *Picklist) Term() string { return p.term }

func (p *Picklist) visible() []Item {
	if p.term == "" {
		return append([]Item(nil), p.available...)
	}
	t := strings.ToLower(p.term)
	var out []Item
	for _, it := range p.available {
		if strings.Contains(strings.ToLower(it.Name), t) {
			out = append(out, it)
		}
	}
	return out
}

// SelectAll toggles every visible Available item.
func (p *Picklist) SelectAll() {
	for _, it := range p.visible() {
		p.Toggle(it.ID)
	}
}

func (p *Picklist) ClearAll() {
	for _, it := range append([]Item(nil), p.selected...) {
		p.Toggle(it.ID)
	}
}

// SelectedIDs is what a save writes, in display order.
func (p *Picklist) SelectedIDs() []string {
	out := make([]string, len(p.selected))
	for i, it := range p.selected {
		out[i] = it.ID
	}
	return out
}

func (p *Picklist) IsSelected(id string) bool {
	for _, it := range p.selected {
		if it.ID == id {
			return true
		}
	}
	return false
}

type View struct {
	Selected       []Item `json:"selected"`
	Available      []Item `json:"available"`
	SelectedCount  int    `json:"selectedCount"`
	AvailableCount int    `json:"availableCount"`
	Filter         string `json:"filter,omitempty"`
	Placeholder    string `json:"placeholder,omitempty"`
}

func (p *Picklist) View() View {
	v := View{
		Selected:       append([]Item{}, p.selected...),
		Available:      p.visible(),
		SelectedCount:  len(p.selected),
		AvailableCount: len(p.available),
		Filter:         p.term,
	}
	if v.Available == nil {
		v.Available = []Item{}
	}
	if len(p.selected) == 0 {
		v.Placeholder = Placeholder
	}
	return v
}
