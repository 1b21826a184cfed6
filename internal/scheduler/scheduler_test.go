package scheduler_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/apperrors"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/logging"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/model"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/scheduler"
)

// blockingLoader counts runs and blocks each one until release is closed.
type blockingLoader struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}

	mu    sync.Mutex
	seeds [][]string
}

func newBlockingLoader() *blockingLoader {
	return &blockingLoader{started: make(chan struct{}, 10), release: make(chan struct{})}
}

func (l *blockingLoader) Load(_ context.Context, seeds []string) model.LoadSummary {
	l.calls.Add(1)
	l.mu.Lock()
	l.seeds = append(l.seeds, seeds)
	l.mu.Unlock()

	l.started <- struct{}{}
	<-l.release
	return model.LoadSummary{RunID: "run", Seeds: seeds, Succeeded: seeds}
}

func (l *blockingLoader) DefaultSeeds() []string { return []string{"MDIZX", "TSVPX"} }

func TestRunner_Run(t *testing.T) {
	t.Run("uses default seeds when none are given", func(t *testing.T) {
		loader := newBlockingLoader()
		close(loader.release)
		runner := scheduler.NewRunner(loader, logging.Discard())

		summary, shared := runner.Run(context.Background(), nil)

		assert.False(t, shared)
		assert.Equal(t, []string{"MDIZX", "TSVPX"}, summary.Seeds)

		last, ok := runner.LastRun()
		require.True(t, ok)
		assert.Equal(t, "run", last.RunID)
		assert.False(t, runner.Running())
	})

	t.Run("concurrent callers share one run", func(t *testing.T) {
		loader := newBlockingLoader()
		runner := scheduler.NewRunner(loader, logging.Discard())

		var wg sync.WaitGroup
		results := make([]bool, 2)

		wg.Add(1)
		go func() {
			defer wg.Done()
			_, results[0] = runner.Run(context.Background(), []string{"MDIZX"})
		}()
		<-loader.started
		assert.True(t, runner.Running())

		wg.Add(1)
		go func() {
			defer wg.Done()
			_, results[1] = runner.Run(context.Background(), []string{"OTHER"})
		}()

		// Give the second caller time to join the in-flight call.
		time.Sleep(50 * time.Millisecond)
		close(loader.release)
		wg.Wait()

		assert.Equal(t, int32(1), loader.calls.Load())
		assert.True(t, results[0])
		assert.True(t, results[1])
	})

	t.Run("run survives caller cancellation", func(t *testing.T) {
		loader := newBlockingLoader()
		close(loader.release)
		runner := scheduler.NewRunner(loader, logging.Discard())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		summary, _ := runner.Run(ctx, []string{"MDIZX"})

		assert.Equal(t, []string{"MDIZX"}, summary.Succeeded)
	})
}

func TestRunner_Start(t *testing.T) {
	t.Run("rejects a second start while running", func(t *testing.T) {
		loader := newBlockingLoader()
		runner := scheduler.NewRunner(loader, logging.Discard())

		require.NoError(t, runner.Start([]string{"MDIZX"}))
		<-loader.started

		err := runner.Start([]string{"MDIZX"})
		assert.ErrorIs(t, err, apperrors.ErrLoadInProgress)

		close(loader.release)
		assert.Eventually(t, func() bool {
			_, ok := runner.LastRun()
			return ok && !runner.Running()
		}, time.Second, 10*time.Millisecond)
		assert.Equal(t, int32(1), loader.calls.Load())
	})

	t.Run("rejects a start while a synchronous run executes", func(t *testing.T) {
		loader := newBlockingLoader()
		runner := scheduler.NewRunner(loader, logging.Discard())

		done := make(chan struct{})
		go func() {
			defer close(done)
			runner.Run(context.Background(), []string{"MDIZX"})
		}()
		<-loader.started

		assert.ErrorIs(t, runner.Start(nil), apperrors.ErrLoadInProgress)
		close(loader.release)
		<-done
	})

	t.Run("back to back starts never stay running", func(t *testing.T) {
		runner := scheduler.NewRunner(partialLoader{}, logging.Discard())

		for i := 0; i < 200; i++ {
			require.Eventually(t, func() bool {
				return runner.Start([]string{"MDIZX"}) == nil
			}, time.Second, time.Millisecond, "start %d", i)
		}
		assert.Eventually(t, func() bool { return !runner.Running() }, time.Second, time.Millisecond)
		assert.NoError(t, runner.Start(nil))
	})

	t.Run("no last run before the first completes", func(t *testing.T) {
		runner := scheduler.NewRunner(newBlockingLoader(), logging.Discard())

		_, ok := runner.LastRun()
		assert.False(t, ok)
	})
}

func TestNew(t *testing.T) {
	runner := scheduler.NewRunner(newBlockingLoader(), logging.Discard())

	t.Run("accepts cron expressions and descriptors", func(t *testing.T) {
		for _, spec := range []string{"0 6 * * 1-5", "@daily", "@every 12h"} {
			s, err := scheduler.New(spec, runner, logging.Discard())
			require.NoError(t, err, spec)

			s.Start()
			<-s.Stop().Done()
		}
	})

	t.Run("rejects invalid expressions", func(t *testing.T) {
		_, err := scheduler.New("every tuesday", runner, logging.Discard())
		assert.Error(t, err)
	})
}

// partialLoader stores only MDIZX.
type partialLoader struct{}

func (partialLoader) Load(_ context.Context, seeds []string) model.LoadSummary {
	return model.LoadSummary{Seeds: seeds, Unchanged: []string{"MDIZX"}, Failed: []string{"NOPE"}}
}

func (partialLoader) DefaultSeeds() []string { return nil }

func TestRunner_LoadTickers(t *testing.T) {
	runner := scheduler.NewRunner(partialLoader{}, logging.Discard())

	t.Run("returns stored tickers only", func(t *testing.T) {
		got := runner.LoadTickers(context.Background(), []string{"NOPE", "MDIZX"})
		assert.Equal(t, []string{"MDIZX"}, got)
	})

	t.Run("nothing to load", func(t *testing.T) {
		assert.Empty(t, runner.LoadTickers(context.Background(), nil))
	})
}
