package add

import (
	"encoding/json"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	db "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/db/common"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/types"
	utilos "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/util/os"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/version"
)

type options struct {
	dbtype string
	dbpath string
	dbopts db.DBOptions

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

type debugOption bool

func (o debugOption) apply(opts *options) {
	opts.debug = bool(o)
}

func WithDebug(debug bool) Option {
	return debugOption(debug)
}

// Add stores the crawled records found at root. root is either a JSON file holding one record or
// an array of records, or a directory walked for such files.
func Add(root string, opts ...Option) error {
	options := &options{
		dbtype: "boltdb",
		dbpath: utilos.DefaultDBPath(),
		dbopts: db.DBOptions{BoltDB: bolt.DefaultOptions},
		debug:  false,
	}
	for _, o := range opts {
		o.apply(options)
	}

	slog.Info("Read Records", "root", root)
	records, err := Read(root)
	if err != nil {
		return errors.Wrapf(err, "read %s", root)
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

	slog.Info("Get Metadata")
	meta, err := dbc.GetMetadata()
	if err != nil || meta == nil {
		return errors.Wrap(err, "get metadata")
	}
	if meta.SchemaVersion != db.SchemaVersion {
		return errors.Errorf("unexpected schema version. expected: %d, actual: %d", db.SchemaVersion, meta.SchemaVersion)
	}

	slog.Info("Put Records", "count", len(records))
	if err := dbc.PutRecords(records); err != nil {
		return errors.Wrap(err, "put records")
	}

	slog.Info("Put Metadata")
	meta.CreatedBy = version.String()
	meta.LastModified = time.Now().UTC()
	if err := dbc.PutMetadata(*meta); err != nil {
		return errors.Wrap(err, "put metadata")
	}

	return nil
}

func Read(root string) ([]types.Record, error) {
	var records []types.Record
	if err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		rs, err := readFile(path)
		if err != nil {
			return errors.Wrapf(err, "read %s", path)
		}
		records = append(records, rs...)
		return nil
	}); err != nil {
		return nil, errors.Wrapf(err, "walk %s", root)
	}

	for _, r := range records {
		if r.ID <= 0 {
			return nil, errors.Errorf("unexpected record id. expected: > 0, actual: %d", r.ID)
		}
		if !strings.HasPrefix(r.CVEID, "CVE-") {
			return nil, errors.Errorf("unexpected cve id of record %d. expected: CVE-YYYY-NNNN, actual: %q", r.ID, r.CVEID)
		}
	}

	return records, nil
}

func readFile(path string) ([]types.Record, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}

	if trimmed := strings.TrimSpace(string(bs)); strings.HasPrefix(trimmed, "[") {
		var rs []types.Record
		if err := json.Unmarshal(bs, &rs); err != nil {
			return nil, errors.Wrapf(err, "unmarshal %s", path)
		}
		return rs, nil
	}

	var r types.Record
	if err := json.Unmarshal(bs, &r); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s", path)
	}
	return []types.Record{r}, nil
}
