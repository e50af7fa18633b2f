package provenance_test

import (
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"

	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/provenance"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/types"
)

func records(n int) []*types.Record {
	rs := make([]*types.Record, 0, n)
	for i := 1; i <= n; i++ {
		rs = append(rs, &types.Record{ID: i, CVEID: "CVE-2023-0001"})
	}
	return rs
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		s       string
		want    string
		wantErr error
	}{
		{
			name: "nested",
			s:    "(((1,2,3),4,5),6)",
			want: "(((1,2,3),4,5),6)",
		},
		{
			name: "flat",
			s:    "(1,2,3)",
			want: "(1,2,3)",
		},
		{
			name: "legacy bare leaf",
			s:    "5",
			want: "(5)",
		},
		{
			name: "empty root",
			s:    "()",
			want: "()",
		},
		{
			name: "empty inner node",
			s:    "((),1)",
			want: "((),1)",
		},
		{
			name: "whitespace",
			s:    "((1, 2), 3)",
			want: "((1,2),3)",
		},
		{
			name:    "empty string",
			s:       "",
			wantErr: provenance.ErrSyntax,
		},
		{
			name:    "unterminated",
			s:       "((1,2)",
			wantErr: provenance.ErrSyntax,
		},
		{
			name:    "extra close",
			s:       "(1,2))",
			wantErr: provenance.ErrSyntax,
		},
		{
			name:    "adjacent groups",
			s:       "(1)(2)",
			wantErr: provenance.ErrSyntax,
		},
		{
			name:    "empty element",
			s:       "(1,,2)",
			wantErr: provenance.ErrSyntax,
		},
		{
			name:    "non numeric leaf",
			s:       "(1,a)",
			wantErr: provenance.ErrSyntax,
		},
		{
			name:    "unknown leaf",
			s:       "(1,42)",
			wantErr: provenance.ErrUnknownLeaf,
		},
		{
			name:    "unknown bare leaf",
			s:       "42",
			wantErr: provenance.ErrUnknownLeaf,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := provenance.Parse(tt.s, records(9))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got.String()); diff != "" {
				t.Errorf("Parse() (-expected +got):\n%s", diff)
			}
		})
	}
}

func TestTree_AddTopSiblings(t *testing.T) {
	rs := records(9)

	tests := []struct {
		name  string
		start string
		add   []*types.Record
		want  string
	}{
		{
			name:  "nest previous tree",
			start: "(((1,2,3),4,5),6)",
			add:   rs[6:9],
			want:  "((((1,2,3),4,5),6),7,8,9)",
		},
		{
			name:  "empty root",
			start: "()",
			add:   rs[0:2],
			want:  "(1,2)",
		},
		{
			name:  "single leaf stays shallow",
			start: "(1)",
			add:   rs[1:3],
			want:  "(1,2,3)",
		},
		{
			name:  "legacy single leaf stays shallow",
			start: "1",
			add:   rs[1:2],
			want:  "(1,2)",
		},
		{
			name:  "nothing to add",
			start: "((1,2),3)",
			add:   nil,
			want:  "((1,2),3)",
		},
		{
			name:  "flat tree with two leaves nests",
			start: "(1,2)",
			add:   rs[2:3],
			want:  "((1,2),3)",
		},
		{
			name:  "single inner child nests",
			start: "((1,2))",
			add:   rs[2:3],
			want:  "(((1,2)),3)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := provenance.Parse(tt.start, rs)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			tree.AddTopSiblings(tt.add...)
			if diff := cmp.Diff(tt.want, tree.String()); diff != "" {
				t.Errorf("AddTopSiblings() (-expected +got):\n%s", diff)
			}
		})
	}
}

func TestTree_EqualUpToOrder(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want bool
	}{
		{
			name: "identical",
			a:    "((1,2),3)",
			b:    "((1,2),3)",
			want: true,
		},
		{
			name: "reordered children",
			a:    "((1,2),3)",
			b:    "(3,(2,1))",
			want: true,
		},
		{
			name: "different shape",
			a:    "((1,2),3)",
			b:    "(1,2,3)",
			want: false,
		},
		{
			name: "different leaf",
			a:    "(1,2)",
			b:    "(1,3)",
			want: false,
		},
		{
			name: "duplicate leaves need a bijection",
			a:    "(1,1,2)",
			b:    "(1,2,2)",
			want: false,
		},
		{
			name: "leaf vs group",
			a:    "(1,(2))",
			b:    "(1,2)",
			want: false,
		},
		{
			name: "empty",
			a:    "()",
			b:    "()",
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := provenance.EquivalentBuildStrings(tt.a, tt.b, records(3))
			if err != nil {
				t.Fatalf("EquivalentBuildStrings() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("EquivalentBuildStrings(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestTree_RoundTrip(t *testing.T) {
	rs := records(20)
	r := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 50; i++ {
		tree := provenance.New()
		next := 0
		for next < len(rs) {
			n := 1 + r.IntN(4)
			if next+n > len(rs) {
				n = len(rs) - next
			}
			tree.AddTopSiblings(rs[next : next+n]...)
			next += n
		}

		got, err := provenance.Parse(tree.String(), rs)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", tree.String(), err)
		}
		if !got.EqualUpToOrder(tree) {
			t.Errorf("Parse(String()) = %s, want %s", got, tree)
		}
	}
}

func TestTree_Leaves(t *testing.T) {
	tree, err := provenance.Parse("((3,1),(2,(5)),4)", records(5))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if diff := cmp.Diff([]int{1, 2, 3, 4, 5}, tree.Leaves()); diff != "" {
		t.Errorf("Leaves() (-expected +got):\n%s", diff)
	}
	if got := tree.Size(); got != 5 {
		t.Errorf("Size() = %d, want %d", got, 5)
	}
}
