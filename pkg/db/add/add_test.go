package add_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/db/add"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/types"
)

func TestRead(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		want    []types.Record
		wantErr bool
	}{
		{
			name: "array and object",
			files: map[string]string{
				"a.json":     `[{"id":1,"cve_id":"CVE-2024-0001","description":"foo","source_url":"https://example.com/1","source_type":"cna","created_at":"2024-01-01T00:00:00Z"},{"id":2,"cve_id":"CVE-2024-0001","description":"bar","source_url":"https://example.com/2","source_type":"other","filter_status":2}]`,
				"sub/b.json": `{"id":3,"cve_id":"CVE-2024-0002","description":"baz","source_url":"https://example.com/3","source_type":"bug_bounty"}`,
				"README.md":  "ignored",
			},
			want: []types.Record{
				{ID: 1, CVEID: "CVE-2024-0001", Description: "foo", SourceURL: "https://example.com/1", SourceType: types.SourceTypeCNA, CreatedAt: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)},
				{ID: 2, CVEID: "CVE-2024-0001", Description: "bar", SourceURL: "https://example.com/2", SourceType: types.SourceTypeOther, FilterStatus: types.FilterStatusPassed},
				{ID: 3, CVEID: "CVE-2024-0002", Description: "baz", SourceURL: "https://example.com/3", SourceType: types.SourceTypeBugBounty},
			},
		},
		{
			name: "missing id",
			files: map[string]string{
				"a.json": `{"cve_id":"CVE-2024-0001","description":"foo"}`,
			},
			wantErr: true,
		},
		{
			name: "invalid cve id",
			files: map[string]string{
				"a.json": `{"id":1,"cve_id":"GHSA-xxxx","description":"foo"}`,
			},
			wantErr: true,
		},
		{
			name: "broken json",
			files: map[string]string{
				"a.json": `{"id":1,`,
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			for name, body := range tt.files {
				p := filepath.Join(root, name)
				if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
					t.Fatalf("mkdir. err: %v", err)
				}
				if err := os.WriteFile(p, []byte(body), 0644); err != nil {
					t.Fatalf("write file. err: %v", err)
				}
			}

			got, err := add.Read(root)
			if (err != nil) != tt.wantErr {
				t.Errorf("Read() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if diff := cmp.Diff(tt.want, got, cmpopts.IgnoreUnexported(types.Record{})); diff != "" {
				t.Errorf("Read(). (-expected +got):\n%s", diff)
			}
		})
	}
}
