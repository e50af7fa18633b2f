package search

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"

	"github.com/pkg/errors"

	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/db/common"
	dbTypes "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/db/common/types"
	utilos "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/util/os"
)

type options struct {
	dbtype string
	dbpath string
	dbopts common.DBOptions
	writer io.Writer

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

type dboptsOption common.DBOptions

func (o dboptsOption) apply(opts *options) {
	opts.dbopts = common.DBOptions(o)
}

func WithDBOptions(dbopts common.DBOptions) Option {
	return dboptsOption(dbopts)
}

type writerOption struct {
	w io.Writer
}

func (o writerOption) apply(opts *options) {
	opts.writer = o.w
}

func WithWriter(w io.Writer) Option {
	return writerOption{w: w}
}

type debugOption bool

func (o debugOption) apply(opts *options) {
	opts.debug = bool(o)
}

func WithDebug(debug bool) Option {
	return debugOption(debug)
}

func Search(searchType dbTypes.SearchType, queries []string, opts ...Option) error {
	options := &options{
		dbtype: "boltdb",
		dbpath: utilos.DefaultDBPath(),
		writer: os.Stdout,
		debug:  false,
	}
	for _, o := range opts {
		o.apply(options)
	}

	switch searchType {
	case dbTypes.SearchRecords, dbTypes.SearchDescription:
		if len(queries) != 1 {
			return errors.Errorf("unexpected queries of %s. expected: [<CVE ID>], actual: %q", searchType, queries)
		}
	case dbTypes.SearchJobs, dbTypes.SearchMetadata:
	default:
		return errors.Errorf("unexpected search type. expected: %q, actual: %q", []dbTypes.SearchType{dbTypes.SearchRecords, dbTypes.SearchDescription, dbTypes.SearchJobs, dbTypes.SearchMetadata}, searchType)
	}

	db, err := (&common.Config{
		Type:    options.dbtype,
		Path:    options.dbpath,
		Debug:   options.debug,
		Options: options.dbopts,
	}).New()
	if err != nil {
		return errors.Wrap(err, "new db connection")
	}
	if err := db.Open(); err != nil {
		return errors.Wrap(err, "open db")
	}
	defer db.Close()

	slog.Info("Get Metadata")
	meta, err := db.GetMetadata()
	if err != nil || meta == nil {
		return errors.Wrap(err, "get metadata")
	}
	if meta.SchemaVersion < common.SchemaVersion {
		return errors.Errorf("schema version is old. expected: %d, actual: %d", common.SchemaVersion, meta.SchemaVersion)
	}

	e := json.NewEncoder(options.writer)
	e.SetIndent("", "  ")
	e.SetEscapeHTML(false)
	switch searchType {
	case dbTypes.SearchRecords:
		slog.Info("Get Records", "cve id", queries[0])
		rs, err := db.GetRecords(queries[0])
		if err != nil {
			return errors.Wrap(err, "get records")
		}
		if err := e.Encode(rs); err != nil {
			return errors.Wrapf(err, "encode records of %s", queries[0])
		}
	case dbTypes.SearchDescription:
		slog.Info("Get Description", "cve id", queries[0])
		d, err := db.GetDescription(queries[0])
		if err != nil {
			return errors.Wrap(err, "get description")
		}
		if err := e.Encode(d); err != nil {
			return errors.Wrapf(err, "encode description of %s", queries[0])
		}
	case dbTypes.SearchJobs:
		slog.Info("Get Jobs")
		jobs, err := db.GetJobs()
		if err != nil {
			return errors.Wrap(err, "get jobs")
		}
		if err := e.Encode(jobs); err != nil {
			return errors.Wrap(err, "encode jobs")
		}
	case dbTypes.SearchMetadata:
		if err := e.Encode(meta); err != nil {
			return errors.Wrap(err, "encode metadata")
		}
	}

	return nil
}
