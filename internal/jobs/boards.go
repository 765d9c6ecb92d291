package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tazhibayda/dailyjobs/internal/catalog"
	"github.com/tazhibayda/dailyjobs/internal/domain"
)

// Board fetches the current product and program postings of one company.
// Postings of other role types are dropped.
type Board interface {
	Fetch(ctx context.Context, company catalog.Entry) ([]domain.Job, error)
}

// Default public board APIs.
const (
	GreenhouseURL = "https://boards-api.greenhouse.io/v1/boards"
	LeverURL      = "https://api.lever.co/v0/postings"
	AshbyURL      = "https://api.ashbyhq.com/posting-api/job-board"
)

// NewBoards returns the three supported boards keyed by catalog board name.
func NewBoards(timeout time.Duration) map[string]Board {
	c := &http.Client{Timeout: timeout}
	return map[string]Board{
		catalog.BoardGreenhouse: &Greenhouse{BaseURL: GreenhouseURL, HTTP: c},
		catalog.BoardLever:      &Lever{BaseURL: LeverURL, HTTP: c},
		catalog.BoardAshby:      &Ashby{BaseURL: AshbyURL, HTTP: c},
	}
}

func getJSON(ctx context.Context, c *http.Client, u string, v any) error {
	if c == nil {
		c = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", u, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", u, err)
	}
	return nil
}

// newJob fills the fields every board shares. It returns false for titles
// that are neither product nor program roles.
func newJob(company catalog.Entry, board, id, title, location string) (domain.Job, bool) {
	role := RoleType(title)
	if role == "" {
		return domain.Job{}, false
	}
	return domain.Job{
		JobID:           company.ID + "_" + id,
		Company:         company.ID,
		CompanyName:     company.Name,
		Title:           strings.TrimSpace(title),
		Location:        location,
		Countries:       Countries(location),
		RoleType:        role,
		ExperienceLevel: ExperienceLevel(title),
		Board:           board,
	}, true
}

type Greenhouse struct {
	BaseURL string
	HTTP    *http.Client
}

type greenhouseDoc struct {
	Jobs []struct {
		ID          int64  `json:"id"`
		Title       string `json:"title"`
		UpdatedAt   string `json:"updated_at"`
		AbsoluteURL string `json:"absolute_url"`
		Location    struct {
			Name string `json:"name"`
		} `json:"location"`
		Departments []struct {
			Name string `json:"name"`
		} `json:"departments"`
	} `json:"jobs"`
}

func (g *Greenhouse) Fetch(ctx context.Context, company catalog.Entry) ([]domain.Job, error) {
	var doc greenhouseDoc
	if err := getJSON(ctx, g.HTTP, g.BaseURL+"/"+url.PathEscape(company.Token)+"/jobs", &doc); err != nil {
		return nil, err
	}
	var out []domain.Job
	for _, p := range doc.Jobs {
		j, ok := newJob(company, catalog.BoardGreenhouse, fmt.Sprint(p.ID), p.Title, p.Location.Name)
		if !ok {
			continue
		}
		if len(p.Departments) > 0 {
			j.Department = p.Departments[0].Name
		}
		j.URL = p.AbsoluteURL
		j.LastUpdated = parseTime(p.UpdatedAt)
		out = append(out, j)
	}
	return out, nil
}

type Lever struct {
	BaseURL string
	HTTP    *http.Client
}

type leverPosting struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	HostedURL  string `json:"hostedUrl"`
	CreatedAt  int64  `json:"createdAt"`
	UpdatedAt  int64  `json:"updatedAt"`
	Categories struct {
		Team     string `json:"team"`
		Location string `json:"location"`
	} `json:"categories"`
}

func (l *Lever) Fetch(ctx context.Context, company catalog.Entry) ([]domain.Job, error) {
	var doc []leverPosting
	if err := getJSON(ctx, l.HTTP, l.BaseURL+"/"+url.PathEscape(company.Token)+"?mode=json", &doc); err != nil {
		return nil, err
	}
	var out []domain.Job
	for _, p := range doc {
		ms := p.UpdatedAt
		if ms == 0 {
			ms = p.CreatedAt
		}
		if ms == 0 {
			continue
		}
		j, ok := newJob(company, catalog.BoardLever, p.ID, p.Text, p.Categories.Location)
		if !ok {
			continue
		}
		j.Department = p.Categories.Team
		j.URL = p.HostedURL
		j.LastUpdated = time.UnixMilli(ms).UTC()
		out = append(out, j)
	}
	return out, nil
}

type Ashby struct {
	BaseURL string
	HTTP    *http.Client
}

type ashbyDoc struct {
	Jobs []struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		Department  string `json:"department"`
		Location    string `json:"location"`
		IsRemote    bool   `json:"isRemote"`
		PublishedAt string `json:"publishedAt"`
		JobURL      string `json:"jobUrl"`
	} `json:"jobs"`
}

func (a *Ashby) Fetch(ctx context.Context, company catalog.Entry) ([]domain.Job, error) {
	var doc ashbyDoc
	if err := getJSON(ctx, a.HTTP, a.BaseURL+"/"+url.PathEscape(company.Token), &doc); err != nil {
		return nil, err
	}
	var out []domain.Job
	for _, p := range doc.Jobs {
		loc := p.Location
		if loc == "" {
			loc = "Remote"
		}
		j, ok := newJob(company, catalog.BoardAshby, p.ID, p.Title, loc)
		if !ok {
			continue
		}
		if p.IsRemote && !contains(j.Countries, "remote") {
			j.Countries = Countries(loc + "; Remote")
		}
		j.Department = p.Department
		j.URL = p.JobURL
		j.LastUpdated = parseTime(p.PublishedAt)
		out = append(out, j)
	}
	return out, nil
}

// parseTime reads RFC 3339 timestamps with or without fractional seconds. Zero on failure.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
