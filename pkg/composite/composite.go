package composite

import (
	"maps"
	"slices"
	"time"

	"github.com/pkg/errors"

	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/provenance"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/types"
)

// Clock supplies creation timestamps.
type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

var SystemClock Clock = systemClock{}

type options struct {
	clock Clock
}

type Option interface {
	apply(*options)
}

type clockOption struct {
	Clock
}

func (o clockOption) apply(opts *options) {
	opts.clock = o.Clock
}

func WithClock(c Clock) Option {
	return clockOption{Clock: c}
}

// Description is the canonical description of one vulnerability together with the records it was
// built from. ID 0 means the description has not been stored yet.
type Description struct {
	ID        int
	CVEID     string
	Text      string
	CreatedAt time.Time

	sources map[int]*types.Record
	tree    *provenance.Tree
	clock   Clock
}

func newDescription(cveID, text string, opts []Option) *Description {
	o := &options{clock: SystemClock}
	for _, opt := range opts {
		opt.apply(o)
	}
	return &Description{
		CVEID:     cveID,
		Text:      text,
		CreatedAt: o.clock.Now(),
		sources:   make(map[int]*types.Record),
		tree:      provenance.New(),
		clock:     o.clock,
	}
}

// New builds a description whose tree is a flat list over sources.
func New(cveID, text string, sources []*types.Record, opts ...Option) *Description {
	d := newDescription(cveID, text, opts)
	for _, r := range sources {
		d.sources[r.ID] = r
	}
	d.tree = provenance.FromRecords(d.Sources()...)
	return d
}

// FromRecord builds a description taken verbatim from a single record.
func FromRecord(r *types.Record, opts ...Option) *Description {
	return New(r.CVEID, r.Description, []*types.Record{r}, opts...)
}

// Load reconstructs a stored description. The leaves of buildString must be exactly the ids of sources.
func Load(id int, cveID, text string, createdAt time.Time, buildString string, sources []*types.Record, opts ...Option) (*Description, error) {
	d := newDescription(cveID, text, opts)
	d.ID = id
	d.CreatedAt = createdAt
	for _, r := range sources {
		d.sources[r.ID] = r
	}

	t, err := provenance.Parse(buildString, sources)
	if err != nil {
		return nil, errors.Wrapf(err, "load description of %s", cveID)
	}

	leaves := slices.Compact(t.Leaves())
	ids := slices.Sorted(maps.Keys(d.sources))
	if !slices.Equal(leaves, ids) {
		return nil, errors.Errorf("load description of %s: build string references %v, but sources are %v", cveID, leaves, ids)
	}
	d.tree = t

	return d, nil
}

// Merge records an incremental update: the records join the sources, the tree gains them as top
// siblings, and text replaces the description.
func (d *Description) Merge(text string, records ...*types.Record) {
	added := d.addSources(records)
	d.tree.AddTopSiblings(added...)
	d.Text = text
	d.CreatedAt = d.clock.Now()
}

// Resynthesize records a rebuild from the full source set. Any nesting history is discarded.
func (d *Description) Resynthesize(text string, records ...*types.Record) {
	d.addSources(records)
	d.tree = provenance.FromRecords(d.Sources()...)
	d.Text = text
	d.CreatedAt = d.clock.Now()
}

func (d *Description) addSources(records []*types.Record) []*types.Record {
	added := make([]*types.Record, 0, len(records))
	for _, r := range records {
		if _, ok := d.sources[r.ID]; ok {
			continue
		}
		d.sources[r.ID] = r
		added = append(added, r)
	}
	return added
}

// Snapshot returns an unsaved copy sharing the source records but not the tree.
func (d *Description) Snapshot() (*Description, error) {
	srcs := d.Sources()
	t, err := provenance.Parse(d.tree.String(), srcs)
	if err != nil {
		return nil, errors.Wrapf(err, "snapshot description of %s", d.CVEID)
	}
	return &Description{
		CVEID:     d.CVEID,
		Text:      d.Text,
		CreatedAt: d.clock.Now(),
		sources:   maps.Clone(d.sources),
		tree:      t,
		clock:     d.clock,
	}, nil
}

// Reset drops every source and the description text and restamps the creation time.
func (d *Description) Reset() {
	d.Text = ""
	d.sources = make(map[int]*types.Record)
	d.tree = provenance.New()
	d.CreatedAt = d.clock.Now()
}

func (d *Description) UsesHighPriority() bool {
	for _, r := range d.sources {
		if r.IsHighPriority() {
			return true
		}
	}
	return false
}

// Sources returns the source records ordered by id.
func (d *Description) Sources() []*types.Record {
	rs := slices.Collect(maps.Values(d.sources))
	slices.SortFunc(rs, func(a, b *types.Record) int {
		return a.ID - b.ID
	})
	return rs
}

func (d *Description) BuildString() string {
	return d.tree.String()
}

func (d *Description) Tree() *provenance.Tree {
	return d.tree
}
