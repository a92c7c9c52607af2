package chrono

import (
	"context"
	"fmt"

	"bakpdlbot/internal/components/telemetry"

	"github.com/robfig/cron/v3"
)

// Job is a unit of background work, a returned error is reported as broken
// under the job's name.
type Job func(ctx context.Context) error

// Scheduler runs jobs on cron schedules evaluated in the club's timezone.
type Scheduler struct {
	cron *cron.Cron
	tel  telemetry.API
}

// NewScheduler starts an empty scheduler, jobs that are still running when
// the previous tick fires are skipped rather than stacked.
func NewScheduler(tel telemetry.API) *Scheduler {
	logger := cronLogger{tel: tel}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithLocation(amsterdam),
		cron.WithChain(cron.SkipIfStillRunning(logger)),
	)
	c.Start()
	return &Scheduler{cron: c, tel: tel}
}

// Schedule registers job under `name` with a standard cron spec (or a
// descriptor like "@hourly"). The job receives ctx on every run.
func (s *Scheduler) Schedule(ctx context.Context, spec, name string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		if ctx.Err() != nil {
			return
		}
		s.tel.ReportDebug("cron: running job", name)
		err := job(ctx)
		if err != nil {
			s.tel.ReportBroken(name, err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	return nil
}

// Stop stops the scheduler and waits for running jobs to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

type cronLogger struct {
	tel telemetry.API
}

func (l cronLogger) pairs(keysAndValues []any) []any {
	params := make([]any, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		params = append(params, fmt.Sprintf("%v=%v", keysAndValues[i], keysAndValues[i+1]))
	}
	return params
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.tel.ReportDebug("cron: "+msg, l.pairs(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	params := append([]any{fmt.Errorf("%s: %w", msg, err)}, l.pairs(keysAndValues)...)
	l.tel.ReportBroken("cron", params...)
}
