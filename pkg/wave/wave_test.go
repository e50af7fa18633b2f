package wave_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/types"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/wave"
)

func ids(rs []*types.Record) []int {
	var out []int
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}

func stored(id int, st types.SourceType, status types.FilterStatus) *types.Record {
	r := &types.Record{ID: id, SourceType: st, FilterStatus: status}
	r.MarkPersisted()
	return r
}

func TestSet_Waves(t *testing.T) {
	tests := []struct {
		name       string
		records    []*types.Record
		wantFirst  []int
		wantSecond []int
	}{
		{
			name: "no passed high priority record",
			records: []*types.Record{
				stored(1, types.SourceTypeCNA, types.FilterStatusFailed),
				stored(2, types.SourceTypeThirdParty, types.FilterStatusPassed),
				stored(3, types.SourceTypeUser, types.FilterStatusNew),
				stored(4, types.SourceTypeOther, types.FilterStatusUnevaluated),
				stored(5, types.SourceTypeBugBounty, types.FilterStatusNew),
			},
			wantFirst:  []int{3},
			wantSecond: []int{3, 4, 5},
		},
		{
			name: "existing passed high priority record gates the second wave",
			records: []*types.Record{
				stored(1, types.SourceTypeSA, types.FilterStatusPassed),
				stored(2, types.SourceTypeCNA, types.FilterStatusNew),
				stored(3, types.SourceTypeOther, types.FilterStatusNew),
			},
			wantFirst:  []int{2},
			wantSecond: nil,
		},
		{
			name:       "empty",
			wantFirst:  nil,
			wantSecond: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := wave.New(tt.records)
			if diff := cmp.Diff(tt.wantFirst, ids(s.FirstWave())); diff != "" {
				t.Errorf("FirstWave() (-expected +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantSecond, ids(s.SecondWave())); diff != "" {
				t.Errorf("SecondWave() (-expected +got):\n%s", diff)
			}
		})
	}
}

func TestSet_Updates(t *testing.T) {
	records := []*types.Record{
		stored(4, types.SourceTypeCNA, types.FilterStatusNew),
		stored(1, types.SourceTypeCNA, types.FilterStatusNew),
		stored(2, types.SourceTypeOther, types.FilterStatusNew),
		stored(3, types.SourceTypeOther, types.FilterStatusPassed),
	}
	s := wave.New(records)

	if n := s.SetNewToUnevaluated(); n != 3 {
		t.Errorf("SetNewToUnevaluated() = %d, want %d", n, 3)
	}

	records[0].FilterStatus = types.FilterStatusPassed
	records[1].FilterStatus = types.FilterStatusFailed

	if diff := cmp.Diff([]int{1, 2, 4}, ids(s.ToUpdate())); diff != "" {
		t.Errorf("ToUpdate() (-expected +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{4}, ids(s.ToReconcile())); diff != "" {
		t.Errorf("ToReconcile() (-expected +got):\n%s", diff)
	}
}
