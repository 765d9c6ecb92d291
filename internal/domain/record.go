package domain

import "time"

// Record is the one preference document per identity (collection "users", _id = identity id).
type Record struct {
	UID                 string     `bson:"_id"                           json:"uid"`
	Email               string     `bson:"email,omitempty"               json:"email,omitempty"`
	Name                string     `bson:"name,omitempty"                json:"name,omitempty"`
	EmailVerified       bool       `bson:"emailVerified"                 json:"emailVerified"`
	Preferences         []string   `bson:"preferences"                   json:"preferences"`
	JobTypes            []string   `bson:"jobTypes"                      json:"jobTypes"`
	ExperienceLevels    []string   `bson:"experienceLevels"              json:"experienceLevels"`
	LocationPreferences []string   `bson:"locationPreferences"           json:"locationPreferences"`
	LastSignIn          *time.Time `bson:"lastSignIn,omitempty"          json:"lastSignIn,omitempty"`
	CreatedAt           *time.Time `bson:"createdAt,omitempty"           json:"createdAt,omitempty"`
	UpdatedAt           *time.Time `bson:"updatedAt,omitempty"           json:"updatedAt,omitempty"`
}

// PreferenceSet is the part of a Record written by a save.
type PreferenceSet struct {
	Preferences         []string `json:"preferences"`
	JobTypes            []string `json:"jobTypes"`
	ExperienceLevels    []string `json:"experienceLevels"`
	LocationPreferences []string `json:"locationPreferences"`
}

func (r *Record) PreferenceSet() PreferenceSet {
	if r == nil {
		return PreferenceSet{}
	}
	return PreferenceSet{
		Preferences:         r.Preferences,
		JobTypes:            r.JobTypes,
		ExperienceLevels:    r.ExperienceLevels,
		LocationPreferences: r.LocationPreferences,
	}
}

// Profile is the identity mirror EnsureRecord keeps up to date on every sign-in.
type Profile struct {
	Email    string
	Name     string
	Verified bool
}
