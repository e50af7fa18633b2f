package init

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/db/add"
	db "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/db/common"
	dbTypes "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/db/common/types"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/types"
	utilos "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/util/os"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/version"
)

// file backed dbtypes whose parent directory Init creates
var local = []string{"boltdb", "pebble", "sqlite3"}

type options struct {
	dbtype string
	dbpath string
	dbopts db.DBOptions

	records string

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

type recordsOption string

func (o recordsOption) apply(opts *options) {
	opts.records = string(o)
}

// WithRecords seeds the fresh db with the crawled records found at root, read the same way as add.Add.
func WithRecords(root string) Option {
	return recordsOption(root)
}

type debugOption bool

func (o debugOption) apply(opts *options) {
	opts.debug = bool(o)
}

func WithDebug(debug bool) Option {
	return debugOption(debug)
}

// Init empties the db and writes fresh metadata. Seed records are read before anything is deleted,
// so unreadable input leaves the db as it was.
func Init(opts ...Option) error {
	options := &options{
		dbtype: "boltdb",
		dbpath: utilos.DefaultDBPath(),
		dbopts: db.DBOptions{BoltDB: bolt.DefaultOptions},
		debug:  false,
	}
	for _, o := range opts {
		o.apply(options)
	}

	var seed []types.Record
	if options.records != "" {
		slog.Info("Read Seed Records", "root", options.records)
		rs, err := add.Read(options.records)
		if err != nil {
			return errors.Wrapf(err, "read %s", options.records)
		}
		seed = rs
	}

	if slices.Contains(local, options.dbtype) {
		if err := os.MkdirAll(filepath.Dir(options.dbpath), 0755); err != nil {
			return errors.Wrapf(err, "mkdir %s", filepath.Dir(options.dbpath))
		}
	}

	dbc, err := (&db.Config{
		Type:    options.dbtype,
		Path:    options.dbpath,
		Debug:   options.debug,
		Options: options.dbopts,
	}).New()
	if err != nil {
		return errors.Wrap(err, "new db connection")
	}
	if err := dbc.Open(); err != nil {
		return errors.Wrap(err, "open db")
	}
	defer dbc.Close() //nolint:errcheck

	slog.Info("Delete All Data", "dbtype", options.dbtype, "dbpath", options.dbpath)
	if err := dbc.DeleteAll(); err != nil {
		return errors.Wrap(err, "delete all")
	}
	if err := dbc.Initialize(); err != nil {
		return errors.Wrap(err, "initialize")
	}

	if len(seed) > 0 {
		slog.Info("Put Records", "count", len(seed))
		if err := dbc.PutRecords(seed); err != nil {
			return errors.Wrap(err, "put records")
		}
	}

	slog.Info("Put Metadata", "schema", db.SchemaVersion)
	if err := dbc.PutMetadata(dbTypes.Metadata{
		SchemaVersion: db.SchemaVersion,
		CreatedBy:     version.String(),
		LastModified:  time.Now().UTC(),
	}); err != nil {
		return errors.Wrap(err, "put metadata")
	}

	return nil
}
