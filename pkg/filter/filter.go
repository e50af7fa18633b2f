package filter

import (
	"context"

	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/types"
)

// Filter is a named predicate over records. Passes must be safe to call repeatedly. An error aborts
// the verdict for that record only.
type Filter interface {
	Name() string
	Passes(ctx context.Context, r *types.Record) (bool, error)
}

// BatchFilter is a Filter that can evaluate a whole batch at once.
type BatchFilter interface {
	Filter
	Evaluate(ctx context.Context, records []*types.Record) []Outcome
}

type Outcome struct {
	Record *types.Record
	Passed bool
	Err    error
}

type funcFilter struct {
	name string
	fn   func(context.Context, *types.Record) (bool, error)
}

func (f funcFilter) Name() string {
	return f.name
}

func (f funcFilter) Passes(ctx context.Context, r *types.Record) (bool, error) {
	return f.fn(ctx, r)
}

// Func adapts fn to a Filter called name.
func Func(name string, fn func(context.Context, *types.Record) (bool, error)) Filter {
	return funcFilter{name: name, fn: fn}
}

// Evaluate runs f over records and returns one outcome per record, in input order.
func Evaluate(ctx context.Context, f Filter, records []*types.Record) []Outcome {
	if bf, ok := f.(BatchFilter); ok {
		return bf.Evaluate(ctx, records)
	}

	outcomes := make([]Outcome, 0, len(records))
	for _, r := range records {
		passed, err := f.Passes(ctx, r)
		outcomes = append(outcomes, Outcome{Record: r, Passed: passed, Err: err})
	}
	return outcomes
}

// FilterAll splits records into those f keeps and those it rejects. Records already FAILED are
// rejected without evaluation. Records whose evaluation errored appear in neither slice; their
// errors are keyed by record id. The input slice and the records' statuses are left untouched.
func FilterAll(ctx context.Context, f Filter, records []*types.Record) ([]*types.Record, []*types.Record, map[int]error) {
	var (
		kept, rejected []*types.Record
		pending        []*types.Record
	)
	for _, r := range records {
		if r.FilterStatus == types.FilterStatusFailed {
			rejected = append(rejected, r)
			continue
		}
		pending = append(pending, r)
	}

	errs := make(map[int]error)
	for _, o := range Evaluate(ctx, f, pending) {
		switch {
		case o.Err != nil:
			errs[o.Record.ID] = o.Err
		case o.Passed:
			kept = append(kept, o.Record)
		default:
			rejected = append(rejected, o.Record)
		}
	}
	return kept, rejected, errs
}
