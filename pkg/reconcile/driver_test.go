package reconcile_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/config"
	db "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/db/common"
	dbTypes "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/db/common/types"
	dbInit "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/db/init"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/filter"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/reconcile"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/types"
)

type junkModel struct{}

func (junkModel) TokenCount(_ context.Context, text string) (int, error) {
	return len(strings.Fields(text)), nil
}

func (junkModel) Classify(_ context.Context, text string) (bool, error) {
	return !strings.Contains(text, "junk"), nil
}

func TestReconcile(t *testing.T) {
	dbpath := filepath.Join(t.TempDir(), "nvip.db")
	if err := dbInit.Init(dbInit.WithDBType("boltdb"), dbInit.WithDBPath(dbpath)); err != nil {
		t.Fatalf("init db. err: %v", err)
	}

	put := func(rs ...types.Record) {
		t.Helper()
		dbc, err := (&db.Config{Type: "boltdb", Path: dbpath}).New()
		if err != nil {
			t.Fatalf("new db. err: %v", err)
		}
		if err := dbc.Open(); err != nil {
			t.Fatalf("open db. err: %v", err)
		}
		defer dbc.Close()
		if err := dbc.PutRecords(rs); err != nil {
			t.Fatalf("put records. err: %v", err)
		}
	}
	get := func(cve string) (*dbTypes.Description, []*types.Record, []string) {
		t.Helper()
		dbc, err := (&db.Config{Type: "boltdb", Path: dbpath}).New()
		if err != nil {
			t.Fatalf("new db. err: %v", err)
		}
		if err := dbc.Open(); err != nil {
			t.Fatalf("open db. err: %v", err)
		}
		defer dbc.Close()
		d, err := dbc.GetDescription(cve)
		if err != nil {
			t.Fatalf("get description. err: %v", err)
		}
		rs, err := dbc.GetRecords(cve)
		if err != nil {
			t.Fatalf("get records. err: %v", err)
		}
		jobs, err := dbc.GetJobs()
		if err != nil {
			t.Fatalf("get jobs. err: %v", err)
		}
		return d, rs, jobs
	}

	c := config.Default()
	c.Filter.Filters = []string{filter.BlankDescription, filter.DescriptionSize, filter.GPT}
	c.Concurrency = 2
	opts := []reconcile.Option{
		reconcile.WithDBType("boltdb"),
		reconcile.WithDBPath(dbpath),
		reconcile.WithConfig(c),
		reconcile.WithModel(junkModel{}),
		reconcile.WithClock(fixed),
		reconcile.WithNoProgress(true),
	}

	put(
		types.Record{ID: 1, CVEID: "CVE-2024-0001", Description: "Buffer overflow in libfoo allows remote code execution.", SourceURL: "https://cve.example.org/1", SourceType: types.SourceTypeCNA},
		types.Record{ID: 2, CVEID: "CVE-2024-0001", Description: "Buffer overflow in libfoo, see our writeup.", SourceURL: "https://blog.example.com/2", SourceType: types.SourceTypeOther},
		types.Record{ID: 3, CVEID: "CVE-2024-0002", Description: "junk junk junk junk", SourceURL: "https://blog.example.com/3", SourceType: types.SourceTypeOther},
		types.Record{ID: 4, CVEID: "CVE-2024-0002", Description: "tiny", SourceURL: "https://blog.example.com/4", SourceType: types.SourceTypeOther},
	)

	got, err := reconcile.Reconcile(context.Background(), nil, opts...)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if diff := cmp.Diff(reconcile.Summary{Jobs: 2, Updated: 4, Reconciled: 1, Descriptions: 1}, got); diff != "" {
		t.Errorf("Reconcile(). (-expected +got):\n%s", diff)
	}

	d, rs, jobs := get("CVE-2024-0001")
	if diff := cmp.Diff(&dbTypes.Description{
		ID:          1,
		CVEID:       "CVE-2024-0001",
		Description: "Buffer overflow in libfoo allows remote code execution.",
		CreatedAt:   fixed.Now(),
		BuildString: "(1)",
		SourceIDs:   []int{1},
	}, d); diff != "" {
		t.Errorf("GetDescription(). (-expected +got):\n%s", diff)
	}
	if diff := cmp.Diff([]types.FilterStatus{types.FilterStatusPassed, types.FilterStatusUnevaluated}, statuses(rs)); diff != "" {
		t.Errorf("statuses. (-expected +got):\n%s", diff)
	}
	if len(jobs) != 0 {
		t.Errorf("GetJobs() = %v, want empty", jobs)
	}

	put(types.Record{ID: 5, CVEID: "CVE-2024-0001", Description: "Buffer overflow in libfoo before 1.3 allows remote attackers to execute arbitrary code.", SourceURL: "https://advisory.example.org/5", SourceType: types.SourceTypeSA})

	got, err = reconcile.Reconcile(context.Background(), nil, opts...)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if diff := cmp.Diff(reconcile.Summary{Jobs: 1, Updated: 1, Reconciled: 1, Descriptions: 1}, got); diff != "" {
		t.Errorf("Reconcile(). (-expected +got):\n%s", diff)
	}

	d, rs, _ = get("CVE-2024-0001")
	if diff := cmp.Diff(&dbTypes.Description{
		ID:          2,
		CVEID:       "CVE-2024-0001",
		Description: "Buffer overflow in libfoo before 1.3 allows remote attackers to execute arbitrary code.",
		CreatedAt:   fixed.Now(),
		BuildString: "(1,5)",
		SourceIDs:   []int{1, 5},
	}, d); diff != "" {
		t.Errorf("GetDescription(). (-expected +got):\n%s", diff)
	}
	if diff := cmp.Diff([]types.FilterStatus{types.FilterStatusPassed, types.FilterStatusUnevaluated, types.FilterStatusPassed}, statuses(rs)); diff != "" {
		t.Errorf("statuses. (-expected +got):\n%s", diff)
	}

	got, err = reconcile.Reconcile(context.Background(), []string{"CVE-2024-0002"}, opts...)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if diff := cmp.Diff(reconcile.Summary{Jobs: 1}, got); diff != "" {
		t.Errorf("Reconcile() of an already filtered vulnerability. (-expected +got):\n%s", diff)
	}
}

func TestReconcile_UnknownFilter(t *testing.T) {
	c := config.Default()
	c.Filter.Filters = []string{"NO_SUCH_FILTER"}
	if _, err := reconcile.Reconcile(context.Background(), nil, reconcile.WithConfig(c), reconcile.WithDBPath(filepath.Join(t.TempDir(), "nvip.db")), reconcile.WithNoProgress(true)); err == nil {
		t.Error("Reconcile() with an unknown filter. err: nil, want error")
	}
}

func statuses(rs []*types.Record) []types.FilterStatus {
	var ss []types.FilterStatus
	for _, r := range rs {
		ss = append(ss, r.FilterStatus)
	}
	return ss
}
