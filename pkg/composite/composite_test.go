package composite_test

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"

	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/composite"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/provenance"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/types"
)

var fixed = time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)

func clock() composite.Option {
	return composite.WithClock(composite.ClockFunc(func() time.Time { return fixed }))
}

func records(n int) []*types.Record {
	rs := make([]*types.Record, 0, n)
	for i := 1; i <= n; i++ {
		rs = append(rs, &types.Record{ID: i, CVEID: "CVE-2023-0001", SourceType: types.SourceTypeOther})
	}
	return rs
}

func TestDescription_Merge(t *testing.T) {
	rs := records(9)
	d, err := composite.Load(1, "CVE-2023-0001", "old text", fixed.Add(-time.Hour), "(((1,2,3),4,5),6)", rs[:6], clock())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	d.Merge("new text", rs[6:]...)

	if diff := cmp.Diff("((((1,2,3),4,5),6),7,8,9)", d.BuildString()); diff != "" {
		t.Errorf("BuildString() (-expected +got):\n%s", diff)
	}
	if diff := cmp.Diff("new text", d.Text); diff != "" {
		t.Errorf("Text (-expected +got):\n%s", diff)
	}
	if !d.CreatedAt.Equal(fixed) {
		t.Errorf("CreatedAt = %v, want %v", d.CreatedAt, fixed)
	}
	if got := len(d.Sources()); got != 9 {
		t.Errorf("len(Sources()) = %d, want %d", got, 9)
	}
}

func TestDescription_Resynthesize(t *testing.T) {
	rs := records(9)
	d, err := composite.Load(1, "CVE-2023-0001", "old text", fixed, "(((1,2,3),4,5),6)", rs[:6], clock())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	d.Resynthesize("new text", rs[6:]...)

	if diff := cmp.Diff("(1,2,3,4,5,6,7,8,9)", d.BuildString()); diff != "" {
		t.Errorf("BuildString() (-expected +got):\n%s", diff)
	}
}

func TestDescription_ResynthesizeIsOrderIndependent(t *testing.T) {
	rs := records(12)
	r := rand.New(rand.NewPCG(3, 4))

	var trees []*provenance.Tree
	for i := 0; i < 10; i++ {
		perm := make([]*types.Record, len(rs))
		copy(perm, rs)
		r.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })

		d := composite.New("CVE-2023-0001", "", perm[:4], clock())
		d.Resynthesize("text", perm[4:]...)
		trees = append(trees, d.Tree())
	}

	for i := 1; i < len(trees); i++ {
		if !trees[0].EqualUpToOrder(trees[i]) {
			t.Errorf("tree %d = %s, want equal up to order to %s", i, trees[i], trees[0])
		}
	}
}

func TestDescription_Snapshot(t *testing.T) {
	rs := records(4)
	d := composite.New("CVE-2023-0001", "text", rs[:2], clock())
	d.ID = 10

	s, err := d.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if s.ID != 0 {
		t.Errorf("Snapshot().ID = %d, want 0", s.ID)
	}
	if !s.Tree().EqualUpToOrder(d.Tree()) {
		t.Errorf("Snapshot().Tree() = %s, want %s", s.Tree(), d.Tree())
	}

	s.Merge("other", rs[2:]...)
	if diff := cmp.Diff("(1,2)", d.BuildString()); diff != "" {
		t.Errorf("original BuildString() after snapshot merge (-expected +got):\n%s", diff)
	}
	if got := len(d.Sources()); got != 2 {
		t.Errorf("len(original Sources()) = %d, want %d", got, 2)
	}
}

func TestLoad(t *testing.T) {
	rs := records(3)

	tests := []struct {
		name        string
		buildString string
		sources     []*types.Record
		want        string
		wantErr     bool
		wantErrIs   error
	}{
		{
			name:        "legacy bare leaf",
			buildString: "1",
			sources:     rs[:1],
			want:        "(1)",
		},
		{
			name:        "nested",
			buildString: "((1,2),3)",
			sources:     rs,
			want:        "((1,2),3)",
		},
		{
			name:        "malformed",
			buildString: "((1,2),3",
			sources:     rs,
			wantErr:     true,
			wantErrIs:   provenance.ErrSyntax,
		},
		{
			name:        "unknown leaf",
			buildString: "(1,2,3)",
			sources:     rs[:2],
			wantErr:     true,
			wantErrIs:   provenance.ErrUnknownLeaf,
		},
		{
			name:        "source missing from tree",
			buildString: "(1,2)",
			sources:     rs,
			wantErr:     true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := composite.Load(1, "CVE-2023-0001", "text", fixed, tt.buildString, tt.sources, clock())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErrIs != nil && !errors.Is(err, tt.wantErrIs) {
				t.Fatalf("Load() error = %v, want %v", err, tt.wantErrIs)
			}
			if err != nil {
				return
			}
			if diff := cmp.Diff(tt.want, got.BuildString()); diff != "" {
				t.Errorf("BuildString() (-expected +got):\n%s", diff)
			}
		})
	}
}

func TestDescription_UsesHighPriority(t *testing.T) {
	low := &types.Record{ID: 1, SourceType: types.SourceTypeThirdParty}
	high := &types.Record{ID: 2, SourceType: types.SourceTypeCNA}

	d := composite.FromRecord(low, clock())
	if d.UsesHighPriority() {
		t.Errorf("UsesHighPriority() = true, want false")
	}
	d.Merge("text", high)
	if !d.UsesHighPriority() {
		t.Errorf("UsesHighPriority() = false, want true")
	}
	d.Reset()
	if d.UsesHighPriority() || len(d.Sources()) != 0 || d.BuildString() != "()" {
		t.Errorf("after Reset() = (%v, %d, %q), want (false, 0, \"()\")", d.UsesHighPriority(), len(d.Sources()), d.BuildString())
	}
}

func TestDescription_Reset(t *testing.T) {
	now := fixed
	tick := composite.WithClock(composite.ClockFunc(func() time.Time {
		now = now.Add(time.Hour)
		return now
	}))

	d := composite.FromRecord(&types.Record{ID: 4, CVEID: "CVE-2023-0001", Description: "text", SourceType: types.SourceTypeOther}, tick)
	if diff := cmp.Diff("(4)", d.BuildString()); diff != "" {
		t.Errorf("FromRecord() build string. (-expected +got):\n%s", diff)
	}
	created := d.CreatedAt

	d.Reset()
	if !d.CreatedAt.After(created) {
		t.Errorf("Reset() CreatedAt = %v, want after %v", d.CreatedAt, created)
	}
	if d.Text != "" {
		t.Errorf("Reset() Text = %q, want empty", d.Text)
	}
}
