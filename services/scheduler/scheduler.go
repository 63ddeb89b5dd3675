// Package scheduler runs the periodic background jobs: outbox reconciliation and session expiry.
package scheduler

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/kipimo/core"
	"github.com/trezcool/kipimo/core/attempt"
)

// Jobs is implemented by attempt.Service.
type Jobs interface {
	Reconcile(ctx context.Context) (attempt.ReconcileResult, error)
	SubmitExpired(ctx context.Context) (attempt.ExpiryResult, error)
}

type Scheduler struct {
	cron    *cron.Cron
	jobs    Jobs
	logger  core.Logger
	timeout time.Duration
}

// New registers the jobs on their configured cron specs. A run is skipped while the previous one is still going.
func New(conf *core.Config, jobs Jobs, logger core.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		jobs:    jobs,
		logger:  logger,
		timeout: time.Minute,
	}
	if _, err := s.cron.AddFunc(conf.Worker.ReconcileSpec, s.reconcile); err != nil {
		return nil, errors.Wrapf(err, "scheduling reconcile (%s)", conf.Worker.ReconcileSpec)
	}
	if _, err := s.cron.AddFunc(conf.Worker.ExpirySpec, s.expire); err != nil {
		return nil, errors.Wrapf(err, "scheduling expiry (%s)", conf.Worker.ExpirySpec)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", map[string]interface{}{"jobs": len(s.cron.Entries())})
}

// Stop stops scheduling and waits for running jobs, until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "waiting for scheduled jobs")
	}
}

func (s *Scheduler) reconcile() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	res, err := s.jobs.Reconcile(ctx)
	if err != nil {
		s.logger.Error("reconciling pending updates", err)
		return
	}
	if res != (attempt.ReconcileResult{}) {
		s.logger.Info("reconciled pending updates", map[string]interface{}{
			"applied":    res.Applied,
			"failed":     res.Failed,
			"aggregated": res.Aggregated,
		})
	}
}

func (s *Scheduler) expire() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	res, err := s.jobs.SubmitExpired(ctx)
	if err != nil {
		s.logger.Error("submitting expired sessions", err)
		return
	}
	if res != (attempt.ExpiryResult{}) {
		s.logger.Info("submitted expired sessions", map[string]interface{}{
			"submitted": res.Submitted,
			"failed":    res.Failed,
		})
	}
}
