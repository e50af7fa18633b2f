package filter

import (
	"context"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/types"
)

const DefaultTimeout = 2 * time.Minute

type asyncOptions struct {
	workers int
	timeout time.Duration
	limiter *rate.Limiter
}

type AsyncOption interface {
	apply(*asyncOptions)
}

type workersOption int

func (w workersOption) apply(opts *asyncOptions) {
	opts.workers = int(w)
}

// WithWorkers bounds the number of concurrent evaluations. Values below 1 mean runtime.NumCPU().
func WithWorkers(n int) AsyncOption {
	return workersOption(n)
}

type timeoutOption time.Duration

func (t timeoutOption) apply(opts *asyncOptions) {
	opts.timeout = time.Duration(t)
}

// WithTimeout bounds a single evaluation. Zero disables the bound.
func WithTimeout(d time.Duration) AsyncOption {
	return timeoutOption(d)
}

type limiterOption struct {
	*rate.Limiter
}

func (l limiterOption) apply(opts *asyncOptions) {
	opts.limiter = l.Limiter
}

// WithLimiter makes every evaluation wait for a token from l first.
func WithLimiter(l *rate.Limiter) AsyncOption {
	return limiterOption{Limiter: l}
}

// AsyncFilter evaluates the wrapped filter concurrently across a bounded worker pool. The wrapped
// filter must be safe for concurrent use.
type AsyncFilter struct {
	Filter

	workers int
	timeout time.Duration
	limiter *rate.Limiter
}

func NewAsync(f Filter, opts ...AsyncOption) *AsyncFilter {
	o := &asyncOptions{
		workers: runtime.NumCPU(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt.apply(o)
	}
	if o.workers < 1 {
		o.workers = runtime.NumCPU()
	}

	return &AsyncFilter{
		Filter:  f,
		workers: o.workers,
		timeout: o.timeout,
		limiter: o.limiter,
	}
}

func (a *AsyncFilter) Passes(ctx context.Context, r *types.Record) (bool, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return false, errors.Wrap(err, "wait for limiter")
		}
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	type result struct {
		passed bool
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		passed, err := a.Filter.Passes(ctx, r)
		ch <- result{passed: passed, err: err}
	}()

	select {
	case res := <-ch:
		return res.passed, res.err
	case <-ctx.Done():
		return false, errors.Wrapf(ctx.Err(), "evaluate record %d", r.ID)
	}
}

// Evaluate starts one task per record on a fresh pool and returns once every task has finished.
func (a *AsyncFilter) Evaluate(ctx context.Context, records []*types.Record) []Outcome {
	outcomes := make([]Outcome, len(records))

	var g errgroup.Group
	g.SetLimit(a.workers)
	for i, r := range records {
		g.Go(func() error {
			passed, err := a.Passes(ctx, r)
			outcomes[i] = Outcome{Record: r, Passed: passed, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}
