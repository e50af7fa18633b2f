package types

import (
	"time"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("not found")

type SearchType string

const (
	SearchRecords     SearchType = "records"
	SearchDescription SearchType = "description"
	SearchJobs        SearchType = "jobs"
	SearchMetadata    SearchType = "metadata"
)

type Metadata struct {
	SchemaVersion uint       `json:"schema_version,omitempty"`
	CreatedBy     string     `json:"created_by,omitempty"`
	LastModified  time.Time  `json:"last_modified,omitempty"`
	Downloaded    *time.Time `json:"downloaded,omitempty"`
}

// Description is one stored version of a vulnerability's composite description. Every update is
// stored under a new ID; the highest ID of a CVE is the current version.
type Description struct {
	ID          int       `json:"id"`
	CVEID       string    `json:"cve_id"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	BuildString string    `json:"build_string"`
	SourceIDs   []int     `json:"source_ids,omitempty"`
}
