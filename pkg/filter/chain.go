package filter

import (
	"context"

	"github.com/pkg/errors"

	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/types"
)

// Evaluator produces a FilterResult for a single record.
type Evaluator interface {
	Apply(ctx context.Context, r *types.Record) (types.FilterResult, error)
}

var _ BatchEvaluator = (*Chain)(nil)

// Chain is an ordered conjunction of filters. Order only decides which failing filter is reported.
type Chain struct {
	filters []Filter
}

func NewChain(filters ...Filter) *Chain {
	return &Chain{filters: filters}
}

func (c *Chain) Filters() []Filter {
	return c.filters
}

func (c *Chain) Len() int {
	return len(c.filters)
}

// Apply runs the filters in order and stops at the first rejection.
func (c *Chain) Apply(ctx context.Context, r *types.Record) (types.FilterResult, error) {
	for _, f := range c.filters {
		passed, err := f.Passes(ctx, r)
		if err != nil {
			return types.FilterResult{}, errors.Wrapf(err, "filter %s", f.Name())
		}
		if !passed {
			return types.FilterResult{Status: types.FilterStatusFailed, FailedAt: f.Name()}, nil
		}
	}
	return types.FilterResult{Status: types.FilterStatusPassed}, nil
}

// Evaluate runs every record through the chain stage by stage, so batch filters see all surviving
// records at once. Records whose evaluation errored are UNEVALUATED and carry the error.
func (c *Chain) Evaluate(ctx context.Context, records []*types.Record) map[int]types.FilterResult {
	results := make(map[int]types.FilterResult, len(records))

	alive := records
	for _, f := range c.filters {
		if len(alive) == 0 {
			break
		}

		next := make([]*types.Record, 0, len(alive))
		for _, o := range Evaluate(ctx, f, alive) {
			switch {
			case o.Err != nil:
				results[o.Record.ID] = types.FilterResult{Status: types.FilterStatusUnevaluated, Err: errors.Wrapf(o.Err, "filter %s", f.Name())}
			case o.Passed:
				next = append(next, o.Record)
			default:
				results[o.Record.ID] = types.FilterResult{Status: types.FilterStatusFailed, FailedAt: f.Name()}
			}
		}
		alive = next
	}

	for _, r := range alive {
		results[r.ID] = types.FilterResult{Status: types.FilterStatusPassed}
	}
	return results
}
