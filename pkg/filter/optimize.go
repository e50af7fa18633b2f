package filter

import (
	"cmp"
	"context"
	"iter"
	"slices"

	"github.com/pkg/errors"

	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/types"
)

type optimizeOptions struct {
	equivalent func(a, b *types.Record) bool
	priority   func(*types.Record) int
	byPriority bool
	caching    bool
}

type OptimizeOption interface {
	apply(*optimizeOptions)
}

type equivalenceOption func(a, b *types.Record) bool

func (e equivalenceOption) apply(opts *optimizeOptions) {
	opts.equivalent = e
}

// WithEquivalence sets the relation deciding which records are bound to receive the same verdict.
// It must be an equivalence relation.
func WithEquivalence(fn func(a, b *types.Record) bool) OptimizeOption {
	return equivalenceOption(fn)
}

type priorityOption func(*types.Record) int

func (p priorityOption) apply(opts *optimizeOptions) {
	opts.priority = p
}

func WithPriority(fn func(*types.Record) int) OptimizeOption {
	return priorityOption(fn)
}

type withoutPriorityOption struct{}

func (withoutPriorityOption) apply(opts *optimizeOptions) {
	opts.byPriority = false
}

// WithoutPriority evaluates every record regardless of what already passed.
func WithoutPriority() OptimizeOption {
	return withoutPriorityOption{}
}

type withoutCachingOption struct{}

func (withoutCachingOption) apply(opts *optimizeOptions) {
	opts.caching = false
}

// WithoutCaching makes every record its own representative and ignores previously filtered records.
func WithoutCaching() OptimizeOption {
	return withoutCachingOption{}
}

// Optimize filters one vulnerability's new records with as few evaluations as possible.
//
// Records are visited by priority, highest first. A record whose priority is below that of a record
// that already passed is UNEVALUATED. Every other record takes the verdict of its class
// representative: a previously filtered equivalent record if there is one, else the lowest id new
// member of the class. A representative is evaluated at most once per call. Representatives that
// need evaluation within one priority tier are evaluated together, so a BatchEvaluator sees the
// whole tier at once.
//
// A record whose evaluation errored is UNEVALUATED and carries the error.
func Optimize(ctx context.Context, ev Evaluator, newRecords, existing []*types.Record, opts ...OptimizeOption) (map[int]types.FilterResult, error) {
	o := &optimizeOptions{
		equivalent: types.EquivalentUnderFiltering,
		priority:   func(r *types.Record) int { return r.Priority() },
		byPriority: true,
		caching:    true,
	}
	for _, opt := range opts {
		opt.apply(o)
	}

	var previous []*types.Record
	if o.caching {
		for _, r := range existing {
			if r.IsFiltered() {
				previous = append(previous, r)
			}
		}
	}

	reps, fromPrevious := representatives(newRecords, previous, o)

	runningMax := -1
	for _, r := range previous {
		if r.FilterStatus == types.FilterStatusPassed {
			runningMax = max(runningMax, o.priority(r))
		}
	}

	ordered := slices.Clone(newRecords)
	slices.SortStableFunc(ordered, func(a, b *types.Record) int {
		return cmp.Or(cmp.Compare(o.priority(b), o.priority(a)), cmp.Compare(a.ID, b.ID))
	})

	results := make(map[int]types.FilterResult, len(newRecords))
	cache := make(map[int]types.FilterResult)
	for tier := range tiers(ordered, o.priority) {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "optimize filtering")
		}

		p := o.priority(tier[0])
		if o.byPriority && p < runningMax {
			for _, r := range tier {
				results[r.ID] = types.FilterResult{Status: types.FilterStatusUnevaluated}
			}
			continue
		}

		var (
			waiting []*types.Record
			pending []*types.Record
			queued  = make(map[int]bool)
		)
		for _, r := range tier {
			rep := reps[r.ID]
			if res, ok := cache[rep.ID]; ok {
				results[r.ID] = res
				continue
			}
			if fromPrevious[rep.ID] {
				res := types.FilterResult{Status: rep.FilterStatus}
				cache[rep.ID] = res
				results[r.ID] = res
				if res.Status == types.FilterStatusPassed {
					runningMax = max(runningMax, p)
				}
				continue
			}
			waiting = append(waiting, r)
			if !queued[rep.ID] {
				queued[rep.ID] = true
				pending = append(pending, rep)
			}
		}
		if len(pending) == 0 {
			continue
		}

		evaluated := evaluate(ctx, ev, pending)
		for _, rep := range pending {
			if res := evaluated[rep.ID]; res.Err == nil {
				cache[rep.ID] = res
			}
		}
		for _, r := range waiting {
			rep := reps[r.ID]
			res := evaluated[rep.ID]
			if res.Err != nil {
				res.Err = errors.Wrapf(res.Err, "evaluate record %d", rep.ID)
			}
			results[r.ID] = res
			if res.Status == types.FilterStatusPassed {
				runningMax = max(runningMax, p)
			}
		}
	}

	return results, nil
}

// BatchEvaluator produces FilterResults for many records in one call. Records whose evaluation
// errored are UNEVALUATED and carry the error.
type BatchEvaluator interface {
	Evaluator
	Evaluate(ctx context.Context, records []*types.Record) map[int]types.FilterResult
}

func evaluate(ctx context.Context, ev Evaluator, records []*types.Record) map[int]types.FilterResult {
	if bev, ok := ev.(BatchEvaluator); ok {
		return bev.Evaluate(ctx, records)
	}

	results := make(map[int]types.FilterResult, len(records))
	for _, r := range records {
		res, err := ev.Apply(ctx, r)
		if err != nil {
			res = types.FilterResult{Status: types.FilterStatusUnevaluated, Err: err}
		}
		results[r.ID] = res
	}
	return results
}

// tiers yields runs of equal priority from records sorted by priority.
func tiers(records []*types.Record, priority func(*types.Record) int) iter.Seq[[]*types.Record] {
	return func(yield func([]*types.Record) bool) {
		for i := 0; i < len(records); {
			j := i + 1
			for j < len(records) && priority(records[j]) == priority(records[i]) {
				j++
			}
			if !yield(records[i:j]) {
				return
			}
			i = j
		}
	}
}

// representatives maps every new record id to its class representative. The second return value
// marks representatives taken from previous.
func representatives(newRecords, previous []*types.Record, o *optimizeOptions) (map[int]*types.Record, map[int]bool) {
	byID := func(a, b *types.Record) int { return cmp.Compare(a.ID, b.ID) }

	candidates := slices.Clone(newRecords)
	slices.SortFunc(candidates, byID)
	prev := slices.Clone(previous)
	slices.SortFunc(prev, byID)

	reps := make(map[int]*types.Record, len(newRecords))
	fromPrevious := make(map[int]bool)
	for _, r := range candidates {
		if !o.caching {
			reps[r.ID] = r
			continue
		}

		if i := slices.IndexFunc(prev, func(p *types.Record) bool { return o.equivalent(r, p) }); i >= 0 {
			reps[r.ID] = prev[i]
			fromPrevious[prev[i].ID] = true
			continue
		}

		reps[r.ID] = r
		if i := slices.IndexFunc(candidates, func(c *types.Record) bool { return o.equivalent(r, c) }); i >= 0 {
			reps[r.ID] = candidates[i]
		}
	}
	return reps, fromPrevious
}
