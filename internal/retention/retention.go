// Package retention prunes old readings on a cron schedule.
package retention

import (
	"context"
	"errors"
	"fmt"
	"time"

	"controlling_fermenter/internal/logger"

	"github.com/robfig/cron/v3"
)

// Pruner deletes readings recorded before cutoff.
type Pruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule parses a five-field cron expression or a descriptor such as "@daily".
func ParseSchedule(expr string) (cron.Schedule, error) {
	s, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("retention schedule %q: %w", expr, err)
	}
	return s, nil
}

type Job struct {
	pruner  Pruner
	maxAge  time.Duration
	timeout time.Duration
	now     func() time.Time
	log     *logger.Logger
}

func NewJob(p Pruner, maxAge time.Duration, log *logger.Logger) (*Job, error) {
	if maxAge <= 0 {
		return nil, errors.New("retention: max age must be positive")
	}
	return &Job{pruner: p, maxAge: maxAge, timeout: time.Minute, now: time.Now, log: logger.OrNop(log)}, nil
}

// Prune deletes everything older than maxAge and returns the number of rows removed.
func (j *Job) Prune(ctx context.Context) (int64, error) {
	cutoff := j.now().UTC().Add(-j.maxAge)
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	n, err := j.pruner.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		j.log.Errorw("retention_prune_failed", "cutoff", cutoff, "err", err)
		return 0, err
	}
	j.log.Infow("retention_pruned", "cutoff", cutoff, "deleted", n)
	return n, nil
}

// Run prunes on every activation of expr until ctx is canceled.
// It waits for a prune in progress before returning.
func (j *Job) Run(ctx context.Context, expr string) error {
	sched, err := ParseSchedule(expr)
	if err != nil {
		return err
	}

	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(sched, cron.FuncJob(func() {
		_, _ = j.Prune(ctx)
	}))

	c.Start()
	j.log.Infow("retention_scheduled", "schedule", expr, "max_age", j.maxAge, "next", sched.Next(j.now()))
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
