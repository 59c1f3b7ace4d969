package pyre

import (
	"context"
	"fmt"
	"time"

	"pyrediff/internal/environment"
)

// profileLogReader is the slice of Session the driver needs.
type profileLogReader interface {
	ProfileIncrementalUpdates(ctx context.Context) ([]ProfileRecord, error)
}

// PollPolicy bounds the driver's wait for an update's profile record.
//
// The checker emits one incremental_updates record per settled update, but
// only asynchronously; log-length growth is the sole completion signal, so
// the driver polls. The reference behavior is an unbounded 1-second loop;
// MaxAttempts > 0 turns it into a bounded wait for callers that cannot
// tolerate inheriting a checker hang.
type PollPolicy struct {
	// Interval between polls. Zero means DefaultPollInterval.
	Interval time.Duration
	// MaxAttempts caps polls per update step; 0 means poll forever.
	MaxAttempts int
	// Sleep is injectable for tests. Nil means a context-aware real sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

const DefaultPollInterval = time.Second

func (p PollPolicy) sleep(ctx context.Context) error {
	interval := p.Interval
	if interval == 0 {
		interval = DefaultPollInterval
	}
	if p.Sleep != nil {
		return p.Sleep(ctx, interval)
	}
	timer := time.NewTimer(interval)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpdateDriver applies a mutation sequence to the sandbox, waiting after
// each step until the checker has logged the corresponding update.
type UpdateDriver struct {
	profiles profileLogReader
	env      environment.Environment
	workdir  string
	policy   PollPolicy
}

func NewUpdateDriver(session *Session, policy PollPolicy) *UpdateDriver {
	return &UpdateDriver{
		profiles: session,
		env:      session.env,
		workdir:  session.workdir,
		policy:   policy,
	}
}

// Drive applies steps in order and returns the full incremental-update log
// observed after the last step settled.
//
// After applying step N (0-based) it polls the incremental_updates log
// until its length exceeds N. Steps are never reordered or overlapped:
// later mutations may be defined relative to the state earlier ones left
// behind.
func (d *UpdateDriver) Drive(ctx context.Context, steps []UpdateStep) ([]ProfileRecord, error) {
	var logs []ProfileRecord
	for expected, step := range steps {
		if err := step.Apply(ctx, d.env, d.workdir); err != nil {
			return nil, fmt.Errorf("applying update step %d: %w", expected, err)
		}
		attempts := 0
		for {
			var err error
			logs, err = d.profiles.ProfileIncrementalUpdates(ctx)
			if err != nil {
				return nil, err
			}
			if len(logs) > expected {
				break
			}
			attempts++
			if d.policy.MaxAttempts > 0 && attempts >= d.policy.MaxAttempts {
				return nil, fmt.Errorf("update %d never appeared in the profile log after %d polls", expected, attempts)
			}
			if err := d.policy.sleep(ctx); err != nil {
				return nil, fmt.Errorf("waiting for update %d: %w", expected, err)
			}
		}
	}
	return logs, nil
}
