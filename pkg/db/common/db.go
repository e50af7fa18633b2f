package common

import (
	"github.com/cockroachdb/pebble/v2"
	"github.com/pkg/errors"
	"github.com/redis/rueidis"
	bolt "go.etcd.io/bbolt"
	"gorm.io/gorm"

	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/db/common/boltdb"
	pebbleDB "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/db/common/pebble"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/db/common/rdb"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/db/common/redis"
	dbTypes "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/db/common/types"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/types"
)

const (
	SchemaVersion = 1
)

var ErrNotFound = dbTypes.ErrNotFound

type DB interface {
	Open() error
	Close() error

	GetMetadata() (*dbTypes.Metadata, error)
	PutMetadata(dbTypes.Metadata) error

	// GetJobs returns the CVE IDs that have at least one NEW record.
	GetJobs() ([]string, error)
	GetRecords(string) ([]*types.Record, error)
	PutRecords([]types.Record) error
	PutFilterStatuses([]*types.Record) error

	GetDescription(string) (*dbTypes.Description, error)
	PutDescription(dbTypes.Description) (int, error)

	DeleteAll() error
	Initialize() error
}

type Config struct {
	Type    string
	Path    string
	Debug   bool
	Options DBOptions
}

type DBOptions struct {
	BoltDB *bolt.Options
	Pebble *pebble.Options
	Redis  *rueidis.ClientOption
	RDB    []gorm.Option
}

func (c *Config) New() (DB, error) {
	switch c.Type {
	case "boltdb":
		return &boltdb.Connection{Config: &boltdb.Config{Path: c.Path, Options: c.Options.BoltDB}}, nil
	case "pebble":
		return &pebbleDB.Connection{Config: &pebbleDB.Config{Path: c.Path, Options: c.Options.Pebble}}, nil
	case "redis":
		conf := c.Options.Redis
		if conf == nil {
			conf = &rueidis.ClientOption{InitAddress: []string{c.Path}}
		}
		return &redis.Connection{Config: conf}, nil
	case "sqlite3", "mysql", "postgres":
		return &rdb.Connection{Config: &rdb.Config{Type: c.Type, Path: c.Path, Debug: c.Debug, Options: c.Options.RDB}}, nil
	default:
		return nil, errors.Errorf("%s is not support dbtype", c.Type)
	}
}
