package domain

import "time"

// Job is one posting in the "jobs" collection. JobID is "<company>_<board id>" and unique.
type Job struct {
	JobID           string    `bson:"job_id"                     json:"jobId"`
	Company         string    `bson:"company"                    json:"company"` // catalog company id
	CompanyName     string    `bson:"company_name"               json:"companyName"`
	Title           string    `bson:"title"                      json:"title"`
	Location        string    `bson:"location"                   json:"location"`
	Countries       []string  `bson:"countries"                  json:"countries"` // catalog location ids
	Department      string    `bson:"department,omitempty"       json:"department,omitempty"`
	URL             string    `bson:"url"                        json:"url"`
	RoleType        string    `bson:"role_type"                  json:"roleType"`
	ExperienceLevel string    `bson:"experience_level,omitempty" json:"experienceLevel,omitempty"`
	Board           string    `bson:"board"                      json:"board"`
	LastUpdated     time.Time `bson:"last_updated"               json:"lastUpdated"`
	AddedToDB       time.Time `bson:"added_to_db"                json:"addedToDb"`
}
