package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler triggers a default-seed load run on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	runner *Runner
	log    *logrus.Logger
}

// New creates a Scheduler running runner on spec, a standard five field cron
// expression or a descriptor such as "@daily".
func New(spec string, runner *Runner, logger *logrus.Logger) (*Scheduler, error) {
	cronLog := cron.PrintfLogger(logger.WithField("component", "scheduler"))
	c := cron.New(
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	s := &Scheduler{cron: c, runner: runner, log: logger}
	if _, err := c.AddFunc(spec, s.refresh); err != nil {
		return nil, fmt.Errorf("invalid load schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) refresh() {
	summary, shared := s.runner.Run(context.Background(), nil)
	s.log.WithFields(logrus.Fields{
		"run_id":    summary.RunID,
		"shared":    shared,
		"succeeded": len(summary.Succeeded),
		"updated":   len(summary.Updated),
		"failed":    len(summary.Failed),
	}).Info("scheduled refresh finished")
}

// Start begins running the schedule in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and returns a context that is done once a
// running refresh has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
