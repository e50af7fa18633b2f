package wave

import (
	"cmp"
	"slices"

	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/types"
)

// Set holds every known record of one vulnerability and decides which of them are offered to the
// filters in each wave.
type Set struct {
	records []*types.Record
}

// New builds a Set over the union of previously filtered and newly arrived records.
func New(records []*types.Record) *Set {
	rs := slices.Clone(records)
	slices.SortFunc(rs, func(a, b *types.Record) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return &Set{records: rs}
}

func (s *Set) Records() []*types.Record {
	return s.records
}

// HasPassedHighPriority reports whether a high priority record already passed.
func (s *Set) HasPassedHighPriority() bool {
	return slices.ContainsFunc(s.records, func(r *types.Record) bool {
		return r.FilterStatus == types.FilterStatusPassed && r.IsHighPriority()
	})
}

// FirstWave returns the unfiltered high priority records.
func (s *Set) FirstWave() []*types.Record {
	return s.collect(func(r *types.Record) bool {
		return !r.IsFiltered() && r.IsHighPriority()
	})
}

// SecondWave returns every unfiltered record, or nothing once a high priority record has passed.
func (s *Set) SecondWave() []*types.Record {
	if s.HasPassedHighPriority() {
		return nil
	}
	return s.collect(func(r *types.Record) bool {
		return !r.IsFiltered()
	})
}

// SetNewToUnevaluated moves every NEW record to UNEVALUATED and returns how many moved.
func (s *Set) SetNewToUnevaluated() int {
	n := 0
	for _, r := range s.records {
		if r.FilterStatus == types.FilterStatusNew {
			r.FilterStatus = types.FilterStatusUnevaluated
			n++
		}
	}
	return n
}

// ToUpdate returns the records whose status differs from the last stored one.
func (s *Set) ToUpdate() []*types.Record {
	return s.collect(func(r *types.Record) bool {
		return r.FilterStatusChanged()
	})
}

// ToReconcile returns the changed records that ended PASSED.
func (s *Set) ToReconcile() []*types.Record {
	return s.collect(func(r *types.Record) bool {
		return r.FilterStatusChanged() && r.FilterStatus == types.FilterStatusPassed
	})
}

func (s *Set) collect(fn func(*types.Record) bool) []*types.Record {
	var out []*types.Record
	for _, r := range s.records {
		if fn(r) {
			out = append(out, r)
		}
	}
	return out
}
