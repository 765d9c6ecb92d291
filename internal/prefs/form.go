package prefs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tazhibayda/dailyjobs/internal/catalog"
	"github.com/tazhibayda/dailyjobs/internal/domain"
)

// ErrValidation marks form problems caught before any provider or store call.
var ErrValidation = errors.New("validation failed")

type SignUpForm struct {
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	Password        string   `json:"password"`
	ConfirmPassword string   `json:"confirmPassword"`
	Companies       []string `json:"companies"`
	JobTypes        []string `json:"jobTypes"`
	Experience      []string `json:"experienceLevels"`
	Locations       []string `json:"locations"`
}

func invalid(msg string) error { return fmt.Errorf("%w: %s", ErrValidation, msg) }

// Validate checks the form against the catalog and returns the initial preferences.
func (f SignUpForm) Validate(cat *catalog.Catalog) (domain.PreferenceSet, error) {
	if strings.TrimSpace(f.Name) == "" || strings.TrimSpace(f.Email) == "" || f.Password == "" || f.ConfirmPassword == "" {
		return domain.PreferenceSet{}, invalid("Please fill in all fields.")
	}
	if f.Password != f.ConfirmPassword {
		return domain.PreferenceSet{}, invalid("Passwords do not match.")
	}
	var companies []string
	for _, id := range f.Companies {
		if cat.HasCompany(id) {
			companies = append(companies, id)
		}
	}
	if len(companies) == 0 {
		return domain.PreferenceSet{}, invalid("Please select at least one company.")
	}

	jt, ex, loc := NewGroup(cat.JobTypes), NewGroup(cat.ExperienceLevels), NewLocationGroup(cat.Locations)
	jt.Set(f.JobTypes)
	ex.Set(f.Experience)
	for _, id := range f.Locations {
		loc.Check(id, true)
	}
	return domain.PreferenceSet{
		Preferences:         companies,
		JobTypes:            jt.Checked(),
		ExperienceLevels:    ex.Checked(),
		LocationPreferences: loc.Checked(),
	}, nil
}

// Message is the user-facing part of a validation error.
func Message(err error) string {
	return strings.TrimPrefix(err.Error(), ErrValidation.Error()+": ")
}
