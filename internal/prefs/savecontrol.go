package prefs

import (
	"sync"
	"time"
)

const (
	SaveLabel       = "Save Preferences"
	SavedLabel      = "Saved!"
	DefaultSavedFor = 2 * time.Second
)

type SaveState struct {
	Label    string `json:"label"`
	Disabled bool   `json:"disabled"`
}

// SaveControl is the save button's confirmation state. It is presentational:
// Editor.Save never consults it, so a save during the confirmation still goes out.
type SaveControl struct {
	SavedFor time.Duration

	mu    sync.Mutex
	state SaveState
	timer *time.Timer
	gen   int
}

func NewSaveControl(savedFor time.Duration) *SaveControl {
	if savedFor <= 0 {
		savedFor = DefaultSavedFor
	}
	return &SaveControl{SavedFor: savedFor, state: SaveState{Label: SaveLabel}}
}

// Succeeded shows the confirmation and (re)starts the single re-enable timer.
func (c *SaveControl) Succeeded() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.state = SaveState{Label: SavedLabel, Disabled: true}
	gen := c.gen
	c.timer = time.AfterFunc(c.SavedFor, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gen == gen {
			c.state = SaveState{Label: SaveLabel}
			c.timer = nil
		}
	})
}

// Failed re-enables immediately for a retry.
func (c *SaveControl) Failed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.state = SaveState{Label: SaveLabel}
}

func (c *SaveControl) State() SaveState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *SaveControl) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *SaveControl) stopLocked() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
