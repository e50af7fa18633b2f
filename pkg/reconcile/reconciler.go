package reconcile

import (
	"cmp"
	"log/slog"
	"slices"

	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/composite"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/types"
)

// Reconciler folds passing records into a vulnerability's description.
type Reconciler struct {
	synth Synthesizer
	opts  []composite.Option
}

func NewReconciler(s Synthesizer, opts ...composite.Option) *Reconciler {
	return &Reconciler{synth: s, opts: opts}
}

// Reconcile merges records into existing, which may be nil. With no records existing is returned as
// is. A description built only from low priority sources is reset once a high priority record arrives.
func (rc *Reconciler) Reconcile(existing *composite.Description, records []*types.Record) *composite.Description {
	if len(records) == 0 {
		return existing
	}

	rs := slices.Clone(records)
	slices.SortFunc(rs, func(a, b *types.Record) int {
		return cmp.Compare(a.ID, b.ID)
	})

	if existing != nil && !existing.UsesHighPriority() && slices.ContainsFunc(rs, (*types.Record).IsHighPriority) {
		slog.Info("Reset description built from low priority sources", "cve", existing.CVEID)
		existing.Reset()
	}

	switch rc.synth.Strategy(existing, rs) {
	case Resynth:
		return rc.resynthesize(existing, rs)
	case Bulk:
		if existing == nil {
			return rc.resynthesize(nil, rs)
		}
		existing.Merge(rc.synth.Bulk(existing, rs), rs...)
		return existing
	default:
		d := existing
		if d == nil {
			d = composite.FromRecord(rs[0], rc.opts...)
			rs = rs[1:]
		}
		for _, r := range rs {
			d.Merge(rc.synth.Single(d, r), r)
		}
		return d
	}
}

func (rc *Reconciler) resynthesize(existing *composite.Description, records []*types.Record) *composite.Description {
	if existing == nil {
		return composite.New(records[0].CVEID, rc.synth.FromScratch(records), records, rc.opts...)
	}
	existing.Resynthesize(rc.synth.FromScratch(append(existing.Sources(), records...)), records...)
	return existing
}
