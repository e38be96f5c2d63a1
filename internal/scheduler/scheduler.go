// Package scheduler triggers crawl cycles on a cron expression.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is one scheduled unit of work. It should return promptly once ctx is done.
type Job func(ctx context.Context)

// Scheduler runs a Job immediately and then on every tick of its schedule.
// A tick that fires while the previous run is still going is skipped.
type Scheduler struct {
	spec     string
	schedule cron.Schedule
	job      Job
	logger   zerolog.Logger
}

// New parses spec as a standard five-field cron expression (descriptors such as @every are accepted)
func New(spec string, job Job, logger zerolog.Logger) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return &Scheduler{spec: spec, schedule: schedule, job: job, logger: logger}, nil
}

// Run blocks until ctx is done and every started run has returned.
func (s *Scheduler) Run(ctx context.Context) error {
	cl := cronLogger{logger: s.logger}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl)))

	run := cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		s.job(ctx)
	})
	// Shared by the first run and the cron ticks so they never overlap
	guarded := cron.SkipIfStillRunning(cl)(run)

	c.Schedule(s.schedule, guarded)
	c.Start()
	s.logger.Info().Str("cron", s.spec).Time("next", s.schedule.Next(time.Now())).Msg("Scheduler started")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		guarded.Run()
	}()

	<-ctx.Done()
	s.logger.Info().Msg("Stopping scheduler")
	<-c.Stop().Done()
	wg.Wait()
	return nil
}

// cronLogger adapts zerolog to cron.Logger
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}

var _ cron.Logger = cronLogger{}
