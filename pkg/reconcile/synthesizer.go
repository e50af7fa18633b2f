package reconcile

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/composite"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/types"
)

// MergeStrategy decides how new records are folded into a description.
type MergeStrategy string

const (
	// OneByOne folds records in one at a time: f(f(f(E, n1), n2), n3).
	OneByOne MergeStrategy = "UPDATE_ONE_BY_ONE"
	// Bulk folds every record in at once on equal footing: f(E, n1, n2, n3).
	Bulk MergeStrategy = "UPDATE_BULK"
	// Resynth rebuilds from the existing sources and the new records: f(e1, e2, n1, n2).
	Resynth MergeStrategy = "RESYNTH"
)

func ParseMergeStrategy(s string) (MergeStrategy, error) {
	switch m := MergeStrategy(strings.ToUpper(strings.TrimSpace(s))); m {
	case OneByOne, Bulk, Resynth:
		return m, nil
	default:
		return "", errors.Errorf("unexpected merge strategy. accepts: %q, actual: %q", []MergeStrategy{OneByOne, Bulk, Resynth}, s)
	}
}

// Synthesizer writes description text. existing may be nil.
type Synthesizer interface {
	Strategy(existing *composite.Description, records []*types.Record) MergeStrategy
	Single(existing *composite.Description, r *types.Record) string
	Bulk(existing *composite.Description, records []*types.Record) string
	FromScratch(records []*types.Record) string
}

// Simple keeps whichever description it prefers pairwise: the one from a known source when sources
// are considered, otherwise the longer one.
type Simple struct {
	known           map[string]struct{}
	considerSources bool
	strategy        MergeStrategy
}

func NewSimple(knownSources []string, considerSources bool, strategy MergeStrategy) *Simple {
	known := make(map[string]struct{}, len(knownSources))
	for _, s := range knownSources {
		known[host(s)] = struct{}{}
	}
	if strategy == "" {
		strategy = OneByOne
	}
	return &Simple{known: known, considerSources: considerSources, strategy: strategy}
}

func (s *Simple) Strategy(*composite.Description, []*types.Record) MergeStrategy {
	return s.strategy
}

func (s *Simple) Single(existing *composite.Description, r *types.Record) string {
	if existing == nil {
		return r.Description
	}
	var sources []string
	for _, src := range existing.Sources() {
		sources = append(sources, src.SourceURL)
	}
	if s.prefer(existing.Text, sources, r.Description, r.SourceURL) {
		return r.Description
	}
	return existing.Text
}

// Bulk folds records into the existing text pairwise. Only the sources of texts that were taken
// count as the current text's sources.
func (s *Simple) Bulk(existing *composite.Description, records []*types.Record) string {
	var (
		text    string
		sources []string
	)
	if existing != nil {
		text = existing.Text
		for _, src := range existing.Sources() {
			sources = append(sources, src.SourceURL)
		}
	}
	for _, r := range records {
		if s.prefer(text, sources, r.Description, r.SourceURL) {
			text = r.Description
			sources = append(sources, r.SourceURL)
		}
	}
	return text
}

func (s *Simple) FromScratch(records []*types.Record) string {
	return s.Bulk(nil, records)
}

// prefer reports whether the new description should replace the current one.
func (s *Simple) prefer(current string, currentSources []string, next, nextSource string) bool {
	if s.considerSources {
		currentKnown := false
		for _, src := range currentSources {
			if s.isKnown(src) {
				currentKnown = true
				break
			}
		}
		switch nextKnown := s.isKnown(nextSource); {
		case currentKnown && !nextKnown:
			return false
		case !currentKnown && nextKnown:
			return true
		}
	}
	return len(current) < len(next)
}

func (s *Simple) isKnown(source string) bool {
	_, ok := s.known[host(source)]
	return ok
}

func host(source string) string {
	s := strings.TrimSpace(source)
	if u, err := url.Parse(s); err == nil && u.Host != "" {
		return strings.ToLower(u.Hostname())
	}
	return strings.ToLower(strings.TrimSuffix(s, "/"))
}
