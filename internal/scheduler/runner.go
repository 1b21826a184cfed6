// Package scheduler runs the loader on demand and on a cron schedule,
// making sure only one load run executes at a time.
package scheduler

import (
	"context"
	"sync"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/apperrors"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/model"
)

const runKey = "load"

// Loader is the part of service.LoaderService the runner drives.
type Loader interface {
	Load(ctx context.Context, seeds []string) model.LoadSummary
	DefaultSeeds() []string
}

// Runner serializes loader runs. Callers that arrive while a run is in
// progress join it and receive its summary.
type Runner struct {
	loader Loader
	group  singleflight.Group
	log    *logrus.Logger

	// active counts executing runs, starting marks a background run that
	// has been accepted but whose Run call has not returned yet.
	state    sync.Mutex
	active   int
	starting bool

	mu   sync.RWMutex
	last *model.LoadSummary
}

// NewRunner creates a Runner for loader.
func NewRunner(loader Loader, logger *logrus.Logger) *Runner {
	return &Runner{loader: loader, log: logger}
}

// Run executes a load for seeds, or for the configured default seeds when
// seeds is empty. The flag is true when the summary belongs to a run that
// was already in progress.
//
// The run is detached from ctx cancellation so that a dropped HTTP request
// does not abort a half-finished load.
func (r *Runner) Run(ctx context.Context, seeds []string) (model.LoadSummary, bool) {
	v, _, shared := r.group.Do(runKey, func() (interface{}, error) {
		return r.execute(context.WithoutCancel(ctx), seeds), nil
	})
	return v.(model.LoadSummary), shared
}

// Start launches a run in the background.
// Returns ErrLoadInProgress when a run is already executing or starting.
func (r *Runner) Start(seeds []string) error {
	r.state.Lock()
	if r.active > 0 || r.starting {
		r.state.Unlock()
		return apperrors.ErrLoadInProgress
	}
	r.starting = true
	r.state.Unlock()

	go func() {
		defer func() {
			r.state.Lock()
			r.starting = false
			r.state.Unlock()
		}()
		if _, shared := r.Run(context.Background(), seeds); shared {
			r.log.Debug("background load joined a run in progress")
		}
	}()
	return nil
}

func (r *Runner) execute(ctx context.Context, seeds []string) model.LoadSummary {
	if len(seeds) == 0 {
		seeds = r.loader.DefaultSeeds()
	}

	r.state.Lock()
	r.active++
	r.state.Unlock()
	defer func() {
		r.state.Lock()
		r.active--
		r.state.Unlock()
	}()

	summary := r.loader.Load(ctx, seeds)

	r.mu.Lock()
	r.last = &summary
	r.mu.Unlock()
	return summary
}

// LoadTickers loads tickers and returns those among them that ended the run
// stored, whether newly, updated, or already present. It has the shape of
// chat.LoadFunc. When another run was already executing, the result is
// taken from that run.
func (r *Runner) LoadTickers(ctx context.Context, tickers []string) []string {
	if len(tickers) == 0 {
		return nil
	}
	summary, _ := r.Run(ctx, tickers)

	stored := lo.Union(summary.Succeeded, summary.Updated, summary.Unchanged)
	return lo.Filter(tickers, func(t string, _ int) bool {
		return lo.Contains(stored, t)
	})
}

// Running reports whether a run is executing or about to start.
func (r *Runner) Running() bool {
	r.state.Lock()
	defer r.state.Unlock()
	return r.active > 0 || r.starting
}

// LastRun returns the summary of the most recent completed run.
func (r *Runner) LastRun() (model.LoadSummary, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.last == nil {
		return model.LoadSummary{}, false
	}
	return *r.last, true
}
