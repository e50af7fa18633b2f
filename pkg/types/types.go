package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type SourceType string

const (
	SourceTypeCNA        SourceType = "cna"
	SourceTypeSA         SourceType = "security_advisory"
	SourceTypeUser       SourceType = "user"
	SourceTypeThirdParty SourceType = "third_party"
	SourceTypeBugBounty  SourceType = "bug_bounty"
	SourceTypeOther      SourceType = "other"
)

// HighPriority is the lowest priority tier regarded as a first wave source.
const HighPriority = 2

// Priority returns the tier of the source type. Unknown source types rank with SourceTypeOther.
func (t SourceType) Priority() int {
	switch t {
	case SourceTypeCNA, SourceTypeSA, SourceTypeUser:
		return 2
	case SourceTypeThirdParty, SourceTypeBugBounty:
		return 1
	default:
		return 0
	}
}

type FilterStatus int

const (
	FilterStatusNew FilterStatus = iota
	FilterStatusUnevaluated
	FilterStatusPassed
	FilterStatusFailed
)

// FilterStatusFromCode decodes a persisted status code. Unknown codes are treated as a rejection.
func FilterStatusFromCode(code int) FilterStatus {
	switch s := FilterStatus(code); s {
	case FilterStatusNew, FilterStatusUnevaluated, FilterStatusPassed, FilterStatusFailed:
		return s
	default:
		return FilterStatusFailed
	}
}

func (s FilterStatus) Code() int {
	return int(s)
}

func (s FilterStatus) String() string {
	switch s {
	case FilterStatusNew:
		return "NEW"
	case FilterStatusUnevaluated:
		return "UNEVALUATED"
	case FilterStatusPassed:
		return "PASSED"
	case FilterStatusFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("FilterStatus(%d)", int(s))
	}
}

func (s *FilterStatus) UnmarshalJSON(data []byte) error {
	var code int
	if err := json.Unmarshal(data, &code); err != nil {
		return errors.Wrap(err, "unmarshal filter status")
	}
	*s = FilterStatusFromCode(code)
	return nil
}

type FilterResult struct {
	Status   FilterStatus `json:"status"`
	FailedAt string       `json:"failed_at,omitempty"`
	Err      error        `json:"-"`
}

// Record is one source's report of a vulnerability. ID is assigned by the crawler, is never reused
// and is the only link between a provenance tree leaf and the record.
type Record struct {
	ID           int          `json:"id"`
	CVEID        string       `json:"cve_id"`
	Description  string       `json:"description"`
	SourceURL    string       `json:"source_url"`
	SourceType   SourceType   `json:"source_type"`
	CreatedAt    time.Time    `json:"created_at,omitzero"`
	FilterStatus FilterStatus `json:"filter_status"`

	persisted FilterStatus
}

func (r *Record) Priority() int {
	return r.SourceType.Priority()
}

func (r *Record) IsHighPriority() bool {
	return r.Priority() >= HighPriority
}

// IsFiltered reports whether the record reached a terminal status.
func (r *Record) IsFiltered() bool {
	return r.FilterStatus == FilterStatusPassed || r.FilterStatus == FilterStatusFailed
}

// MarkPersisted records the current status as the last stored value.
func (r *Record) MarkPersisted() {
	r.persisted = r.FilterStatus
}

func (r *Record) FilterStatusChanged() bool {
	return r.FilterStatus != r.persisted
}

// EquivalentUnderFiltering reports whether two records are guaranteed the same filter verdict.
func EquivalentUnderFiltering(a, b *Record) bool {
	return strings.TrimSpace(a.Description) == strings.TrimSpace(b.Description)
}
