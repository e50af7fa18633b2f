package reconcile

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	progressbar "github.com/schollz/progressbar/v3"
	bolt "go.etcd.io/bbolt"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/composite"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/config"
	configTypes "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/config/types"
	db "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/db/common"
	dbTypes "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/db/common/types"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/filter"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/filter/classifier"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/types"
	utilos "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/util/os"
)

type options struct {
	dbtype string
	dbpath string
	dbopts db.DBOptions

	config     configTypes.Config
	model      classifier.Model
	clock      composite.Clock
	noProgress bool

	debug bool
}

type Option interface {
	apply(*options)
}

type dbtypeOption string

func (o dbtypeOption) apply(opts *options) {
	opts.dbtype = string(o)
}

func WithDBType(dbtype string) Option {
	return dbtypeOption(dbtype)
}

type dbpathOption string

func (o dbpathOption) apply(opts *options) {
	opts.dbpath = string(o)
}

func WithDBPath(dbpath string) Option {
	return dbpathOption(dbpath)
}

type dboptsOption db.DBOptions

func (o dboptsOption) apply(opts *options) {
	opts.dbopts = db.DBOptions(o)
}

func WithDBOptions(dbopts db.DBOptions) Option {
	return dboptsOption(dbopts)
}

type configOption configTypes.Config

func (o configOption) apply(opts *options) {
	opts.config = configTypes.Config(o)
}

func WithConfig(c configTypes.Config) Option {
	return configOption(c)
}

type modelOption struct {
	classifier.Model
}

func (o modelOption) apply(opts *options) {
	opts.model = o.Model
}

// WithModel sets the model behind the GPT filter. Without it a Gemini client is created from the
// classifier config.
func WithModel(m classifier.Model) Option {
	return modelOption{Model: m}
}

type clockOption struct {
	composite.Clock
}

func (o clockOption) apply(opts *options) {
	opts.clock = o.Clock
}

func WithClock(c composite.Clock) Option {
	return clockOption{Clock: c}
}

type noProgressOption bool

func (o noProgressOption) apply(opts *options) {
	opts.noProgress = bool(o)
}

func WithNoProgress(noProgress bool) Option {
	return noProgressOption(noProgress)
}

type debugOption bool

func (o debugOption) apply(opts *options) {
	opts.debug = bool(o)
}

func WithDebug(debug bool) Option {
	return debugOption(debug)
}

type Summary struct {
	Jobs         int `json:"jobs"`
	Updated      int `json:"updated"`
	Reconciled   int `json:"reconciled"`
	Descriptions int `json:"descriptions"`
}

// Reconcile filters and reconciles the records of cveIDs, or of every vulnerability with NEW
// records when cveIDs is empty.
func Reconcile(ctx context.Context, cveIDs []string, opts ...Option) (Summary, error) {
	options := &options{
		dbtype: "boltdb",
		dbpath: utilos.DefaultDBPath(),
		dbopts: db.DBOptions{BoltDB: bolt.DefaultOptions},
		config: config.Default(),
		clock:  composite.SystemClock,
		debug:  false,
	}
	for _, o := range opts {
		o.apply(options)
	}
	config.Fill(&options.config)

	l := slog.With("run", uuid.NewString())

	b, err := newBuilder(ctx, options)
	if err != nil {
		return Summary{}, errors.Wrap(err, "new builder")
	}

	dbc, err := (&db.Config{
		Type:    options.dbtype,
		Path:    options.dbpath,
		Debug:   options.debug,
		Options: options.dbopts,
	}).New()
	if err != nil {
		return Summary{}, errors.Wrap(err, "new db connection")
	}
	if err := dbc.Open(); err != nil {
		return Summary{}, errors.Wrap(err, "open db")
	}
	defer dbc.Close() //nolint:errcheck

	l.Info("Get Metadata")
	meta, err := dbc.GetMetadata()
	if err != nil || meta == nil {
		return Summary{}, errors.Wrap(err, "get metadata")
	}
	if meta.SchemaVersion != db.SchemaVersion {
		return Summary{}, errors.Errorf("unexpected schema version. expected: %d, actual: %d", db.SchemaVersion, meta.SchemaVersion)
	}

	jobs := cveIDs
	if len(jobs) == 0 {
		l.Info("Get Jobs")
		jobs, err = dbc.GetJobs()
		if err != nil {
			return Summary{}, errors.Wrap(err, "get jobs")
		}
	}
	l.Info("Reconcile", "jobs", len(jobs), "concurrency", options.config.Concurrency)

	pb := func() *progressbar.ProgressBar {
		if options.noProgress {
			return progressbar.DefaultSilent(int64(len(jobs)))
		}
		return progressbar.Default(int64(len(jobs)), "reconciling")
	}()
	defer pb.Finish() //nolint:errcheck

	var (
		mu      sync.Mutex
		summary = Summary{Jobs: len(jobs)}
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(options.config.Concurrency)
	for _, cve := range jobs {
		g.Go(func() error {
			s, err := reconcile(ctx, l.With("cve", cve), dbc, b, cve, options.clock)
			if err != nil {
				return errors.Wrapf(err, "reconcile %s", cve)
			}

			mu.Lock()
			summary.Updated += s.Updated
			summary.Reconciled += s.Reconciled
			summary.Descriptions += s.Descriptions
			mu.Unlock()

			return pb.Add(1)
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, errors.WithStack(err)
	}

	l.Info("Reconciled", "jobs", summary.Jobs, "updated", summary.Updated, "reconciled", summary.Reconciled, "descriptions", summary.Descriptions)
	return summary, nil
}

func reconcile(ctx context.Context, l *slog.Logger, dbc db.DB, b *Builder, cve string, clock composite.Clock) (Summary, error) {
	rs, err := dbc.GetRecords(cve)
	if err != nil {
		return Summary{}, errors.Wrap(err, "get records")
	}
	if len(rs) == 0 {
		l.Warn("No records found")
		return Summary{}, nil
	}

	existing, err := load(dbc, cve, rs, clock)
	if err != nil {
		return Summary{}, errors.Wrap(err, "load description")
	}

	res, err := b.Build(ctx, existing, rs)
	if err != nil {
		return Summary{}, errors.Wrap(err, "build")
	}

	s := Summary{Updated: len(res.Updated), Reconciled: len(res.Reconciled)}

	if len(res.Updated) > 0 {
		l.Debug("Put Filter Statuses", "count", len(res.Updated))
		if err := dbc.PutFilterStatuses(res.Updated); err != nil {
			return Summary{}, errors.Wrap(err, "put filter statuses")
		}
		for _, r := range res.Updated {
			r.MarkPersisted()
		}
	}

	if len(res.Reconciled) == 0 || res.Description == nil {
		return s, nil
	}

	snap, err := res.Description.Snapshot()
	if err != nil {
		return Summary{}, errors.Wrap(err, "snapshot")
	}
	var ids []int
	for _, r := range snap.Sources() {
		ids = append(ids, r.ID)
	}
	id, err := dbc.PutDescription(dbTypes.Description{
		CVEID:       snap.CVEID,
		Description: snap.Text,
		CreatedAt:   snap.CreatedAt,
		BuildString: snap.BuildString(),
		SourceIDs:   ids,
	})
	if err != nil {
		return Summary{}, errors.Wrap(err, "put description")
	}
	snap.ID = id
	l.Info("Put Description", "id", id, "build", snap.BuildString())
	s.Descriptions++

	return s, nil
}

// load returns the stored description of cve, or nil when there is none.
func load(dbc db.DB, cve string, records []*types.Record, clock composite.Clock) (*composite.Description, error) {
	stored, err := dbc.GetDescription(cve)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "get description")
	}

	byID := make(map[int]*types.Record, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}
	sources := make([]*types.Record, 0, len(stored.SourceIDs))
	for _, id := range stored.SourceIDs {
		r, ok := byID[id]
		if !ok {
			return nil, errors.Errorf("source record %d of description %d is not found", id, stored.ID)
		}
		sources = append(sources, r)
	}

	d, err := composite.Load(stored.ID, stored.CVEID, stored.Description, stored.CreatedAt, stored.BuildString, sources, composite.WithClock(clock))
	if err != nil {
		return nil, errors.Wrapf(err, "load description %d", stored.ID)
	}
	return d, nil
}

func newBuilder(ctx context.Context, o *options) (*Builder, error) {
	chain, err := NewChain(ctx, o.config, o.model)
	if err != nil {
		return nil, errors.Wrap(err, "new filter chain")
	}

	strategy, err := ParseMergeStrategy(o.config.Reconciler.MergeStrategy)
	if err != nil {
		return nil, errors.Wrap(err, "parse merge strategy")
	}
	rc := NewReconciler(NewSimple(o.config.Reconciler.KnownSources, o.config.Reconciler.ConsiderSources, strategy), composite.WithClock(o.clock))

	var optimizeOpts []filter.OptimizeOption
	if o.config.Filter.DisablePriority {
		optimizeOpts = append(optimizeOpts, filter.WithoutPriority())
	}
	if o.config.Filter.DisableCaching {
		optimizeOpts = append(optimizeOpts, filter.WithoutCaching())
	}
	return NewBuilder(chain, rc, true, optimizeOpts...), nil
}

// NewChain builds the filter chain named by c in order. The GPT filter runs on m, or on a Gemini
// client when m is nil, and is evaluated asynchronously.
func NewChain(ctx context.Context, c configTypes.Config, m classifier.Model) (*filter.Chain, error) {
	fs := make([]filter.Filter, 0, len(c.Filter.Filters))
	for _, name := range c.Filter.Filters {
		if !strings.EqualFold(name, filter.GPT) {
			f, err := filter.New(name)
			if err != nil {
				return nil, errors.Wrapf(err, "new %s filter", name)
			}
			fs = append(fs, f)
			continue
		}

		if m == nil {
			g, err := classifier.NewGemini(ctx, os.Getenv(c.Classifier.APIKeyEnv), c.Classifier.Model)
			if err != nil {
				return nil, errors.Wrapf(err, "new gemini client. api key env: %s", c.Classifier.APIKeyEnv)
			}
			m = g
		}

		asyncOpts := []filter.AsyncOption{
			filter.WithWorkers(c.Filter.Async.Workers),
			filter.WithTimeout(c.Filter.Async.Timeout),
		}
		if c.Filter.Async.RequestsPerSecond > 0 {
			asyncOpts = append(asyncOpts, filter.WithLimiter(rate.NewLimiter(rate.Limit(c.Filter.Async.RequestsPerSecond), c.Filter.Async.Burst)))
		}
		fs = append(fs, filter.NewAsync(classifier.New(m, classifier.WithTokenLimit(c.Classifier.TokenLimit)), asyncOpts...))
	}
	return filter.NewChain(fs...), nil
}
