package ingest

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/gorhill/cronexpr"
)

// Janitor prunes finished jobs older than the retention on a cron schedule.
type Janitor struct {
	jobs      JobStore
	expr      *cronexpr.Expression
	retention time.Duration
	logger    *log.Logger
	now       func() time.Time
}

// NewJanitor parses schedule (5-field cron or @hourly/@daily style).
func NewJanitor(jobs JobStore, schedule string, retention time.Duration, logger *log.Logger) (*Janitor, error) {
	expr, err := cronexpr.Parse(schedule)
	if err != nil {
		return nil, fmt.Errorf("janitor schedule %q: %w", schedule, err)
	}
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Janitor{jobs: jobs, expr: expr, retention: retention, logger: logger, now: time.Now}, nil
}

// Next returns the first run strictly after t.
func (j *Janitor) Next(t time.Time) time.Time { return j.expr.Next(t) }

// Sweep prunes once.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	n, err := j.jobs.Prune(ctx, j.now().Add(-j.retention))
	if err != nil {
		j.logger.Printf("job prune failed: %v", err)
		return n, err
	}
	if n > 0 {
		j.logger.Printf("pruned %d finished jobs", n)
	}
	return n, nil
}

// Start runs Sweep at each scheduled time until ctx is done.
func (j *Janitor) Start(ctx context.Context) {
	go func() {
		for {
			next := j.expr.Next(j.now())
			if next.IsZero() {
				return
			}
			timer := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				_, _ = j.Sweep(ctx)
			}
		}
	}()
}
