package prefs

import (
	"context"
	"fmt"
	"time"

	"github.com/tazhibayda/dailyjobs/internal/catalog"
	"github.com/tazhibayda/dailyjobs/internal/domain"
	"github.com/tazhibayda/dailyjobs/internal/metrics"
	"github.com/tazhibayda/dailyjobs/internal/picklist"
)

// Store is the slice of the record repository the editor needs.
type Store interface {
	GetRecord(ctx context.Context, uid string) (*domain.Record, error)
	SavePreferences(ctx context.Context, uid string, p domain.PreferenceSet) error
}

type Editor struct {
	store Store

	Companies  *picklist.Picklist
	JobTypes   *Group
	Experience *Group
	Locations  *LocationGroup
	SaveButton *SaveControl
}

func NewEditor(store Store, cat *catalog.Catalog, savedFor time.Duration) *Editor {
	items := make([]picklist.Item, len(cat.Companies))
	for i, c := range cat.Companies {
		items[i] = picklist.Item{ID: c.ID, Name: c.Name}
	}
	return &Editor{
		store:      store,
		Companies:  picklist.New(items, nil),
		JobTypes:   NewGroup(cat.JobTypes),
		Experience: NewGroup(cat.ExperienceLevels),
		Locations:  NewLocationGroup(cat.Locations),
		SaveButton: NewSaveControl(savedFor),
	}
}

// Load rehydrates every widget from the stored record. A missing record loads as
// all-empty. On error the current state is left as it was.
func (e *Editor) Load(ctx context.Context, uid string) error {
	rec, err := e.store.GetRecord(ctx, uid)
	if err != nil {
		return fmt.Errorf("get record %s: %w", uid, err)
	}
	e.Apply(rec.PreferenceSet())
	return nil
}

func (e *Editor) Apply(p domain.PreferenceSet) {
	e.Companies.Reset(p.Preferences)
	e.JobTypes.Set(p.JobTypes)
	e.Experience.Set(p.ExperienceLevels)
	e.Locations.Set(p.LocationPreferences)
}

// Current is the rendered state a save writes.
func (e *Editor) Current() domain.PreferenceSet {
	return domain.PreferenceSet{
		Preferences:         e.Companies.SelectedIDs(),
		JobTypes:            e.JobTypes.Checked(),
		ExperienceLevels:    e.Experience.Checked(),
		LocationPreferences: e.Locations.Checked(),
	}
}

// Save writes all four sets in one update. Last writer wins.
func (e *Editor) Save(ctx context.Context, uid string) error {
	if err := e.store.SavePreferences(ctx, uid, e.Current()); err != nil {
		metrics.PreferenceSaves.WithLabelValues("failed").Inc()
		e.SaveButton.Failed()
		return fmt.Errorf("save preferences %s: %w", uid, err)
	}
	metrics.PreferenceSaves.WithLabelValues("ok").Inc()
	e.SaveButton.Succeeded()
	return nil
}

type View struct {
	Companies  picklist.View `json:"companies"`
	JobTypes   []Option      `json:"jobTypes"`
	Experience []Option      `json:"experienceLevels"`
	Locations  []Option      `json:"locations"`
	Save       SaveState     `json:"save"`
}

func (e *Editor) View() View {
	return View{
		Companies:  e.Companies.View(),
		JobTypes:   e.JobTypes.View(),
		Experience: e.Experience.View(),
		Locations:  e.Locations.View(),
		Save:       e.SaveButton.State(),
	}
}

func (e *Editor) Close() { e.SaveButton.Stop() }
