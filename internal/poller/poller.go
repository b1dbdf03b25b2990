// Package poller waits on long-running remote jobs at a fixed interval and
// fetches the finished asset.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/truonghoc/studio/internal/llm"
)

// DefaultInterval is the spacing between status queries.
const DefaultInterval = 5 * time.Second

// State is a job's position in the polling lifecycle.
type State string

const (
	Submitted State = "submitted"
	Polling   State = "polling"
	Done      State = "done"
	Failed    State = "failed"
)

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool { return s == Done || s == Failed }

var (
	// ErrNoResultLocator is returned when a job completes without pointing
	// at its output.
	ErrNoResultLocator = errors.New("job completed without a result locator")
	// ErrNilHandle is returned when the submission or a query yields no handle.
	ErrNilHandle = errors.New("nil job handle")
)

// JobError is a failure reported by the remote service on a completed job.
type JobError struct {
	Name    string
	Message string
}

func (e *JobError) Error() string {
	if e.Name == "" {
		return "remote job failed: " + e.Message
	}
	return fmt.Sprintf("remote job %s failed: %s", e.Name, e.Message)
}

// Querier refreshes a job handle.
type Querier func(ctx context.Context, op *llm.Operation) (*llm.Operation, error)

// Fetcher dereferences a result locator.
type Fetcher func(ctx context.Context, uri string) ([]byte, string, error)

// Policy controls how a job is waited on.
type Policy struct {
	Interval time.Duration
	// MaxTransientFailures is how many consecutive failed status queries are
	// tolerated before giving up. Zero means the first failure is terminal.
	MaxTransientFailures int
	// Sleep suspends for d or until ctx is done. Tests swap in a fake clock.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy polls every five seconds and tolerates no failures.
func DefaultPolicy() Policy {
	return Policy{Interval: DefaultInterval, Sleep: Sleep}
}

// Sleep waits for d or until ctx is cancelled.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Result is the fetched asset of a completed job.
type Result struct {
	Data     []byte
	MIMEType string
	URI      string
	Queries  int
}

// Poller drives a single job from submission to a terminal state.
type Poller struct {
	policy  Policy
	observe func(State)
}

// New creates a Poller, filling unset policy fields with defaults.
func New(policy Policy) *Poller {
	if policy.Interval <= 0 {
		policy.Interval = DefaultInterval
	}
	if policy.Sleep == nil {
		policy.Sleep = Sleep
	}
	if policy.MaxTransientFailures < 0 {
		policy.MaxTransientFailures = 0
	}
	return &Poller{policy: policy}
}

// WithObserver returns a copy of p that reports every state transition to fn.
func (p *Poller) WithObserver(fn func(State)) *Poller {
	cp := *p
	cp.observe = fn
	return &cp
}

// Policy returns the effective policy.
func (p *Poller) Policy() Policy { return p.policy }

// Run waits until op reports completion, then fetches its result exactly
// once. It never fetches before completion and imposes no deadline of its
// own; cancel ctx to abandon the wait.
//
// The fetch is part of the Polling state: Done is reported only once the
// asset is in hand, so a failed fetch moves Polling to Failed and Done is
// never followed by another state.
func (p *Poller) Run(ctx context.Context, op *llm.Operation, query Querier, fetch Fetcher) (*Result, error) {
	p.transition(Submitted)
	if op == nil {
		p.transition(Failed)
		return nil, ErrNilHandle
	}
	p.transition(Polling)

	queries, failures := 0, 0
	for !op.Done {
		if err := p.policy.Sleep(ctx, p.policy.Interval); err != nil {
			p.transition(Failed)
			return nil, fmt.Errorf("wait for job: %w", err)
		}

		next, err := query(ctx, op)
		queries++
		if err == nil && next == nil {
			err = ErrNilHandle
		}
		if err != nil {
			if ctx.Err() != nil {
				p.transition(Failed)
				return nil, fmt.Errorf("query job status: %w", err)
			}
			failures++
			if failures > p.policy.MaxTransientFailures {
				p.transition(Failed)
				return nil, fmt.Errorf("query job status (attempt %d): %w", queries, err)
			}
			slog.Warn("job status query failed, will retry",
				"job", op.Name, "failures", failures, "error", err)
			continue
		}
		failures = 0
		op = next
		slog.Debug("job status", "job", op.Name, "done", op.Done, "queries", queries)
	}

	if op.Error != "" {
		p.transition(Failed)
		return nil, &JobError{Name: op.Name, Message: op.Error}
	}
	if op.ResultURI == "" {
		p.transition(Failed)
		return nil, ErrNoResultLocator
	}

	data, mimeType, err := fetch(ctx, op.ResultURI)
	if err != nil {
		p.transition(Failed)
		return nil, fmt.Errorf("fetch job result: %w", err)
	}
	p.transition(Done)
	return &Result{Data: data, MIMEType: mimeType, URI: op.ResultURI, Queries: queries}, nil
}

func (p *Poller) transition(s State) {
	if p.observe != nil {
		p.observe(s)
	}
}
