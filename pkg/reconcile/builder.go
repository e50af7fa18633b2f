package reconcile

import (
	"cmp"
	"context"
	"log/slog"
	"slices"

	"github.com/pkg/errors"

	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/composite"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/filter"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/types"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/wave"
)

// Builder filters one vulnerability's records in waves and reconciles the ones that pass.
type Builder struct {
	chain      *filter.Chain
	reconciler *Reconciler
	optimize   bool
	opts       []filter.OptimizeOption
}

// NewBuilder returns a Builder. With optimize unset every wave member is run through the chain.
func NewBuilder(chain *filter.Chain, reconciler *Reconciler, optimize bool, opts ...filter.OptimizeOption) *Builder {
	return &Builder{chain: chain, reconciler: reconciler, optimize: optimize, opts: opts}
}

type Result struct {
	Description *composite.Description
	// Updated holds the records whose filter status changed.
	Updated []*types.Record
	// Reconciled holds the records merged into Description.
	Reconciled []*types.Record
}

// Build filters records, which must all belong to the vulnerability of existing, and merges the
// passing ones into existing. existing may be nil.
func (b *Builder) Build(ctx context.Context, existing *composite.Description, records []*types.Record) (Result, error) {
	s := wave.New(records)
	if n := s.SetNewToUnevaluated(); n > 0 {
		slog.Debug("Mark new records unevaluated", "count", n)
	}

	first := s.FirstWave()
	if err := b.run(ctx, first, s.Records()); err != nil {
		return Result{}, errors.Wrap(err, "run first wave")
	}

	var second []*types.Record
	for _, r := range s.SecondWave() {
		if !slices.Contains(first, r) {
			second = append(second, r)
		}
	}
	if err := b.run(ctx, second, s.Records()); err != nil {
		return Result{}, errors.Wrap(err, "run second wave")
	}

	passed := s.ToReconcile()
	return Result{
		Description: b.reconciler.Reconcile(existing, passed),
		Updated:     s.ToUpdate(),
		Reconciled:  passed,
	}, nil
}

func (b *Builder) run(ctx context.Context, candidates, all []*types.Record) error {
	if len(candidates) == 0 {
		return nil
	}

	var results map[int]types.FilterResult
	if b.optimize {
		var previous []*types.Record
		for _, r := range all {
			if r.IsFiltered() && !slices.Contains(candidates, r) {
				previous = append(previous, r)
			}
		}

		var err error
		results, err = filter.Optimize(ctx, b.chain, candidates, previous, b.opts...)
		if err != nil {
			return errors.Wrap(err, "optimize")
		}
	} else {
		results = b.chain.Evaluate(ctx, candidates)
	}

	rs := slices.Clone(candidates)
	slices.SortStableFunc(rs, func(a, b *types.Record) int {
		return cmp.Or(cmp.Compare(b.Priority(), a.Priority()), cmp.Compare(a.ID, b.ID))
	})
	for _, r := range rs {
		apply(r, results[r.ID])
	}
	return nil
}

func apply(r *types.Record, res types.FilterResult) {
	l := slog.With("cve", r.CVEID, "source", r.SourceURL, "id", r.ID)
	switch {
	case res.Err != nil:
		l.Warn("Leave record unevaluated after filter error", "err", res.Err)
	case res.Status == types.FilterStatusUnevaluated:
		l.Info("Skip low priority source")
	case res.Status == types.FilterStatusPassed:
		l.Info("Passed all quality filters")
	case res.Status == types.FilterStatusFailed && res.FailedAt == "":
		l.Info("Rejected as equivalent to a previously rejected source")
	case res.Status == types.FilterStatusFailed:
		l.Info("Rejected by filter", "filter", res.FailedAt)
	}
	r.FilterStatus = res.Status
}
