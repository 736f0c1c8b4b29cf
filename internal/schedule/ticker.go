// Package schedule turns the configured poll interval into a cancellable wait.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultInterval is the pause between two poll cycles.
const DefaultInterval = 10 * time.Minute

// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Ticker waits until the next poll is due.
type Ticker struct {
	sched cron.Schedule
	now   func() time.Time
	desc  string
}

// NewTicker builds a ticker from a schedule string. An empty string means DefaultInterval.
func NewTicker(raw string, loc *time.Location) (*Ticker, error) {
	if raw == "" {
		return Every(DefaultInterval), nil
	}
	spec, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	if spec.Kind == SpecInterval {
		return Every(spec.Every), nil
	}
	sched, err := parser.Parse(spec.Cron)
	if err != nil {
		return nil, fmt.Errorf("invalid cron %q: %w", spec.Cron, err)
	}
	if loc != nil {
		if ss, ok := sched.(*cron.SpecSchedule); ok {
			ss.Location = loc
		}
	}
	return &Ticker{sched: sched, now: time.Now, desc: spec.Cron}, nil
}

// Every returns a ticker with a fixed delay (rounded to whole seconds, min 1s).
func Every(d time.Duration) *Ticker {
	return &Ticker{sched: cron.Every(d), now: time.Now, desc: "every " + d.String()}
}

func (t *Ticker) String() string { return t.desc }

// Next reports when the wait started now would end.
func (t *Ticker) Next() time.Time { return t.sched.Next(t.now()) }

// Wait blocks until the next activation or until ctx is done.
func (t *Ticker) Wait(ctx context.Context) error {
	now := t.now()
	d := t.sched.Next(now).Sub(now)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
