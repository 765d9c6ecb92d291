package page

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/tazhibayda/dailyjobs/internal/identity"
	"github.com/tazhibayda/dailyjobs/internal/log"
	"github.com/tazhibayda/dailyjobs/internal/metrics"
)

// Registry owns the open pages and evicts the ones nobody has touched for IdleTTL.
type Registry struct {
	Deps    Deps
	IdleTTL time.Duration

	mu    sync.Mutex
	pages map[string]*Controller
	cron  *cron.Cron
}

func NewRegistry(deps Deps, idleTTL time.Duration) *Registry {
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}
	return &Registry{Deps: deps, IdleTTL: idleTTL, pages: map[string]*Controller{}}
}

func (r *Registry) Create() *Controller {
	c := NewController(uuid.NewString(), r.Deps)
	r.mu.Lock()
	r.pages[c.ID] = c
	n := len(r.pages)
	r.mu.Unlock()
	metrics.ActivePages.Set(float64(n))
	return c
}

func (r *Registry) Get(id string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.pages[id]
	return c, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pages)
}

// CompleteFederated routes a Google callback to the page named in its state.
func (r *Registry) CompleteFederated(ctx context.Context, state, code string) (*Controller, error) {
	id, err := r.Deps.Provider.ParseFederatedState(state)
	if err != nil {
		return nil, identity.ErrPopupClosed
	}
	c, ok := r.Get(id)
	if !ok {
		return nil, ErrUnknownPage
	}
	return c, c.CompleteFederated(ctx, state, code)
}

// Sweep closes pages idle for longer than IdleTTL and returns how many it closed.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	var idle []*Controller
	for id, c := range r.pages {
		if c.idleSince(now) > r.IdleTTL {
			idle = append(idle, c)
			delete(r.pages, id)
		}
	}
	n := len(r.pages)
	r.mu.Unlock()

	for _, c := range idle {
		c.Close()
	}
	metrics.ActivePages.Set(float64(n))
	return len(idle)
}

// Start schedules the sweep, e.g. spec "@every 1m".
func (r *Registry) Start(spec string) error {
	if r.cron != nil {
		return errors.New("sweep already started")
	}
	cr := cron.New()
	if _, err := cr.AddFunc(spec, func() {
		if n := r.Sweep(r.Deps.now()); n > 0 {
			log.L().Info("evicted idle pages", zap.Int("count", n))
		}
	}); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	r.cron = cr
	cr.Start()
	return nil
}

// Stop halts the sweep and closes every page.
func (r *Registry) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
	r.mu.Lock()
	pages := r.pages
	r.pages = map[string]*Controller{}
	r.mu.Unlock()
	for _, c := range pages {
		c.Close()
	}
	metrics.ActivePages.Set(0)
}
