package filter_test

import (
	"context"
	"strings"
	"testing"

	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/filter"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/types"
)

func TestLocalFilters(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		desc   string
		want   bool
	}{
		{name: "blank", filter: filter.BlankDescription, desc: "  \n", want: false},
		{name: "not blank", filter: filter.BlankDescription, desc: "x", want: true},
		{name: "cve only", filter: filter.CVEMatchesDescription, desc: " CVE-2023-0001 ", want: false},
		{name: "not cve only", filter: filter.CVEMatchesDescription, desc: "CVE-2023-0001 allows XSS", want: true},
		{name: "integer", filter: filter.IntegerDescription, desc: "12345", want: false},
		{name: "not integer", filter: filter.IntegerDescription, desc: "12345 bytes", want: true},
		{name: "cve and ghsa", filter: filter.MultipleCVEDescription, desc: "CVE-2023-0001, GHSA-abcd-efgh-ijkl", want: false},
		{name: "cve and ghsa and more", filter: filter.MultipleCVEDescription, desc: "CVE-2023-0001, GHSA-abcd-efgh-ijkl, and 3 more", want: false},
		{name: "two cves and more", filter: filter.MultipleCVEDescription, desc: "CVE-2023-0001, CVE-2023-10002, and 1 more", want: false},
		{name: "sentence mentioning cves", filter: filter.MultipleCVEDescription, desc: "Related to CVE-2023-0001, CVE-2023-0002, and 1 more issue", want: true},
		{name: "too short", filter: filter.DescriptionSize, desc: "short", want: false},
		{name: "too long", filter: filter.DescriptionSize, desc: strings.Repeat("a", filter.MaxDescriptionLength+1), want: false},
		{name: "sized", filter: filter.DescriptionSize, desc: "A buffer overflow in foo.", want: true},
		{name: "mostly digits", filter: filter.CharacterProportion, desc: "1234567890a", want: false},
		{name: "mostly letters", filter: filter.CharacterProportion, desc: "version 1.2.3 crashes", want: true},
		{name: "simple", filter: filter.Simple, desc: "", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := filter.New(tt.filter)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			got, err := f.Passes(context.Background(), &types.Record{ID: 1, CVEID: "CVE-2023-0001", Description: tt.desc})
			if err != nil {
				t.Fatalf("Passes() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("%s.Passes(%q) = %v, want %v", f.Name(), tt.desc, got, tt.want)
			}
		})
	}
}

func TestNew(t *testing.T) {
	if _, err := filter.New("description_size"); err != nil {
		t.Errorf("New() error = %v", err)
	}
	if _, err := filter.New("NO_SUCH_FILTER"); err == nil {
		t.Errorf("New() error = nil, want error")
	}
	if _, err := filter.New(filter.GPT); err == nil {
		t.Errorf("New(%q) error = nil, want error", filter.GPT)
	}
}
