package recurring

import (
	"context"
	"errors"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Runner drives the scheduler on a daily cron schedule. The HTTP trigger
// endpoint remains available alongside it; the conditional schedule advance
// keeps concurrent triggers from double-generating.
type Runner struct {
	scheduler *Scheduler
	spec      string
	cron      *cron.Cron
	logger    zerolog.Logger
	mu        sync.Mutex
	running   bool
}

// NewRunner creates a Runner with the given cron spec, e.g. "0 6 * * *".
func NewRunner(scheduler *Scheduler, spec string, logger zerolog.Logger) *Runner {
	return &Runner{
		scheduler: scheduler,
		spec:      spec,
		cron:      cron.New(),
		logger:    logger.With().Str("component", "recurring-runner").Logger(),
	}
}

// Start begins the daily generation schedule.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return errors.New("recurring runner already running")
	}

	_, err := r.cron.AddFunc(r.spec, r.run)
	if err != nil {
		return err
	}

	r.cron.Start()
	r.running = true
	r.logger.Info().Str("spec", r.spec).Msg("recurring runner started")
	return nil
}

// Stop stops the runner gracefully, returning a context that is done once
// any in-flight run has finished.
func (r *Runner) Stop() context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}

	r.running = false
	r.logger.Info().Msg("stopping recurring runner")
	return r.cron.Stop()
}

func (r *Runner) run() {
	summary := r.scheduler.ProcessDue(context.Background())
	if summary.Failed > 0 {
		r.logger.Warn().
			Int("processed", summary.Processed).
			Int("failed", summary.Failed).
			Strs("errors", summary.Errors).
			Msg("scheduled recurring run had failures")
	}
}
