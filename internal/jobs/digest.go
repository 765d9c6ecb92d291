// Package jobs reads product and program postings off company job boards,
// stores the new ones and publishes one digest per subscriber.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tazhibayda/dailyjobs/internal/catalog"
	"github.com/tazhibayda/dailyjobs/internal/domain"
	"github.com/tazhibayda/dailyjobs/internal/log"
	"github.com/tazhibayda/dailyjobs/internal/metrics"
	"github.com/tazhibayda/dailyjobs/internal/queue"
)

type Store interface {
	InsertJob(ctx context.Context, j *domain.Job) (bool, error)
	ListSubscribers(ctx context.Context) ([]domain.Record, error)
}

const (
	DefaultWorkers = 4
	DefaultMaxAge  = 72 * time.Hour
)

// Runner performs one digest cycle per Run.
type Runner struct {
	Catalog  *catalog.Catalog
	Boards   map[string]Board
	Store    Store
	Pub      queue.Publisher
	Exchange string

	// Workers bounds concurrent board fetches.
	Workers int
	// MaxAge skips postings last updated longer ago. Postings without a timestamp are kept.
	MaxAge time.Duration
	Now    func() time.Time
}

type Report struct {
	Companies int `json:"companies"`
	Failed    int `json:"failed"`
	Fetched   int `json:"fetched"`
	New       int `json:"new"`
	Digests   int `json:"digests"`
}

func (r *Runner) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

// Run fetches every catalog company, stores unseen postings and publishes a
// digest to each subscriber, including subscribers with no matches.
// Board failures are counted and skipped; a subscriber listing failure aborts.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	rep := Report{Companies: len(r.Catalog.Companies)}
	fetched, failed := r.fetchAll(ctx)
	rep.Fetched, rep.Failed = len(fetched), failed
	if err := ctx.Err(); err != nil {
		return rep, err
	}

	fresh, err := r.storeNew(ctx, fetched)
	rep.New = len(fresh)
	if err != nil {
		return rep, err
	}

	subs, err := r.Store.ListSubscribers(ctx)
	if err != nil {
		return rep, fmt.Errorf("list subscribers: %w", err)
	}
	for _, s := range subs {
		ev := queue.DigestReady{UserID: s.UID, Email: s.Email, Name: s.Name, Jobs: digestJobs(Match(fresh, s))}
		if err := r.Pub.Publish(ctx, r.Exchange, queue.KeyDigestReady, ev, ""); err != nil {
			metrics.Digests.WithLabelValues("failed").Inc()
			log.WithDD(ctx, nil, zap.String("uid", s.UID), zap.Error(err)).Error("publish digest")
			continue
		}
		metrics.Digests.WithLabelValues("published").Inc()
		rep.Digests++
	}
	log.WithDD(ctx, nil,
		zap.Int("companies", rep.Companies),
		zap.Int("failed", rep.Failed),
		zap.Int("fetched", rep.Fetched),
		zap.Int("new", rep.New),
		zap.Int("digests", rep.Digests),
	).Info("digest cycle complete")
	return rep, nil
}

func (r *Runner) fetchAll(ctx context.Context) ([]domain.Job, int) {
	workers := r.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	companies := make(chan catalog.Entry)
	var (
		mu     sync.Mutex
		all    []domain.Job
		failed int
		wg     sync.WaitGroup
	)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for c := range companies {
				jobs, err := r.fetch(ctx, c)
				mu.Lock()
				if err != nil {
					failed++
				} else {
					all = append(all, jobs...)
				}
				mu.Unlock()
			}
		}()
	}
	for _, c := range r.Catalog.Companies {
		select {
		case companies <- c:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(companies)
	wg.Wait()
	return all, failed
}

var errNoBoard = errors.New("no such job board")

func (r *Runner) fetch(ctx context.Context, c catalog.Entry) ([]domain.Job, error) {
	b, ok := r.Boards[c.Board]
	if !ok {
		log.L().Error("unknown board", zap.String("company", c.ID), zap.String("board", c.Board))
		return nil, errNoBoard
	}
	jobs, err := b.Fetch(ctx, c)
	if err != nil {
		metrics.BoardFetches.WithLabelValues(c.Board, "failed").Inc()
		log.WithDD(ctx, nil, zap.String("company", c.ID), zap.Error(err)).Warn("fetch board")
		return nil, err
	}
	metrics.BoardFetches.WithLabelValues(c.Board, "ok").Inc()
	return jobs, nil
}

// storeNew inserts recent postings and returns the ones not seen before.
func (r *Runner) storeNew(ctx context.Context, jobs []domain.Job) ([]domain.Job, error) {
	maxAge := r.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	cutoff := r.now().Add(-maxAge)
	var fresh []domain.Job
	for i := range jobs {
		j := &jobs[i]
		if !j.LastUpdated.IsZero() && j.LastUpdated.Before(cutoff) {
			continue
		}
		isNew, err := r.Store.InsertJob(ctx, j)
		if err != nil {
			return fresh, fmt.Errorf("insert job %s: %w", j.JobID, err)
		}
		if isNew {
			metrics.JobsNew.Inc()
			fresh = append(fresh, *j)
		}
	}
	return fresh, nil
}

// Match returns the jobs a subscriber asked for, ordered by company then title.
//
// Companies must match. An empty job type list means every type. Experience
// and location only narrow when both the subscriber and the posting say
// something: postings without a level or a recognised country always pass,
// as does a subscriber with no location or with "any".
func Match(jobs []domain.Job, rec domain.Record) []domain.Job {
	companies := setOf(rec.Preferences)
	types := setOf(rec.JobTypes)
	levels := setOf(rec.ExperienceLevels)
	places := setOf(rec.LocationPreferences)
	anyPlace := len(places) == 0 || places[catalog.AnyLocation]

	var out []domain.Job
	for _, j := range jobs {
		if !companies[j.Company] {
			continue
		}
		if len(types) > 0 && !types[j.RoleType] {
			continue
		}
		if len(levels) > 0 && j.ExperienceLevel != "" && !levels[j.ExperienceLevel] {
			continue
		}
		if !anyPlace && len(j.Countries) > 0 && !overlaps(places, j.Countries) {
			continue
		}
		out = append(out, j)
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].CompanyName != out[b].CompanyName {
			return out[a].CompanyName < out[b].CompanyName
		}
		return out[a].Title < out[b].Title
	})
	return out
}

func digestJobs(jobs []domain.Job) []queue.DigestJob {
	out := make([]queue.DigestJob, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, queue.DigestJob{Company: j.CompanyName, Title: j.Title, Location: j.Location, URL: j.URL})
	}
	return out
}

func setOf(list []string) map[string]bool {
	m := make(map[string]bool, len(list))
	for _, s := range list {
		m[s] = true
	}
	return m
}

func overlaps(set map[string]bool, list []string) bool {
	for _, s := range list {
		if set[s] {
			return true
		}
	}
	return false
}
