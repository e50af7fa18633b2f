package boltdb

import (
	"encoding/binary"
	"slices"
	"strconv"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	dbTypes "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/db/common/types"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/db/common/util"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/types"
)

// boltdb: metadata:db -> dbTypes.Metadata

// boltdb: record:<CVE ID>:<Record ID> -> types.Record

// boltdb: description:<CVE ID>:<Description ID (uint64 big endian)> -> dbTypes.Description

type Config struct {
	Path    string
	Options *bolt.Options
}

type Connection struct {
	Config *Config

	conn *bolt.DB
}

func (c *Connection) Open() error {
	if c.Config == nil {
		return errors.New("connection config is not set")
	}

	db, err := bolt.Open(c.Config.Path, 0600, c.Config.Options)
	if err != nil {
		return errors.WithStack(err)
	}
	c.conn = db
	return nil
}

func (c *Connection) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Connection) GetMetadata() (*dbTypes.Metadata, error) {
	var v dbTypes.Metadata
	if err := c.conn.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte("metadata"))
		if b == nil {
			return errors.Errorf("bucket:%q is not exists", "metadata")
		}

		bs := b.Get([]byte("db"))
		if bs == nil {
			return errors.Wrapf(dbTypes.ErrNotFound, "metadata:db")
		}
		if err := util.Unmarshal(bs, false, &v); err != nil {
			return errors.Wrap(err, "unmarshal metadata:db")
		}

		return nil
	}); err != nil {
		return nil, errors.WithStack(err)
	}
	return &v, nil
}

func (c *Connection) PutMetadata(metadata dbTypes.Metadata) error {
	return c.conn.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte("metadata"))
		if err != nil {
			return errors.Wrapf(err, "create bucket:%q if not exists", "metadata")
		}

		bs, err := util.Marshal(metadata, false)
		if err != nil {
			return errors.Wrap(err, "marshal metadata")
		}

		if err := b.Put([]byte("db"), bs); err != nil {
			return errors.Wrap(err, "put metadata:db")
		}

		return nil
	})
}

func (c *Connection) GetJobs() ([]string, error) {
	var jobs []string
	if err := c.conn.View(func(tx *bolt.Tx) error {
		rb := tx.Bucket([]byte("record"))
		if rb == nil {
			return errors.Errorf("bucket:%q is not exists", "record")
		}

		return rb.ForEach(func(cve, v []byte) error {
			if v != nil {
				return nil
			}
			rs, err := getRecords(rb.Bucket(cve))
			if err != nil {
				return errors.Wrapf(err, "get record:%s", cve)
			}
			if slices.ContainsFunc(rs, func(r *types.Record) bool { return r.FilterStatus == types.FilterStatusNew }) {
				jobs = append(jobs, string(cve))
			}
			return nil
		})
	}); err != nil {
		return nil, errors.WithStack(err)
	}
	return jobs, nil
}

func (c *Connection) GetRecords(cveID string) ([]*types.Record, error) {
	var rs []*types.Record
	if err := c.conn.View(func(tx *bolt.Tx) error {
		rb := tx.Bucket([]byte("record"))
		if rb == nil {
			return errors.Errorf("bucket:%q is not exists", "record")
		}

		cb := rb.Bucket([]byte(cveID))
		if cb == nil {
			return nil
		}

		var err error
		rs, err = getRecords(cb)
		if err != nil {
			return errors.Wrapf(err, "get record:%s", cveID)
		}
		return nil
	}); err != nil {
		return nil, errors.WithStack(err)
	}
	return rs, nil
}

func getRecords(b *bolt.Bucket) ([]*types.Record, error) {
	var rs []*types.Record
	if err := b.ForEach(func(k, v []byte) error {
		var r types.Record
		if err := util.Unmarshal(v, true, &r); err != nil {
			return errors.Wrapf(err, "unmarshal %s", k)
		}
		r.MarkPersisted()
		rs = append(rs, &r)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "foreach records")
	}
	slices.SortFunc(rs, func(a, b *types.Record) int { return a.ID - b.ID })
	return rs, nil
}

func (c *Connection) PutRecords(records []types.Record) error {
	return c.conn.Update(func(tx *bolt.Tx) error {
		rb, err := tx.CreateBucketIfNotExists([]byte("record"))
		if err != nil {
			return errors.Wrapf(err, "create bucket:%q if not exists", "record")
		}

		for _, r := range records {
			cb, err := rb.CreateBucketIfNotExists([]byte(r.CVEID))
			if err != nil {
				return errors.Wrapf(err, "create bucket:%q if not exists", "record:"+r.CVEID)
			}

			bs, err := util.Marshal(r, true)
			if err != nil {
				return errors.Wrapf(err, "marshal record %d", r.ID)
			}

			if err := cb.Put([]byte(strconv.Itoa(r.ID)), bs); err != nil {
				return errors.Wrapf(err, "put record:%s:%d", r.CVEID, r.ID)
			}
		}

		return nil
	})
}

func (c *Connection) PutFilterStatuses(records []*types.Record) error {
	return c.conn.Update(func(tx *bolt.Tx) error {
		rb := tx.Bucket([]byte("record"))
		if rb == nil {
			return errors.Errorf("bucket:%q is not exists", "record")
		}

		for _, r := range records {
			cb := rb.Bucket([]byte(r.CVEID))
			if cb == nil {
				return errors.Wrapf(dbTypes.ErrNotFound, "record:%s", r.CVEID)
			}

			k := []byte(strconv.Itoa(r.ID))
			bs := cb.Get(k)
			if bs == nil {
				return errors.Wrapf(dbTypes.ErrNotFound, "record:%s:%d", r.CVEID, r.ID)
			}

			var stored types.Record
			if err := util.Unmarshal(bs, true, &stored); err != nil {
				return errors.Wrapf(err, "unmarshal record:%s:%d", r.CVEID, r.ID)
			}
			stored.FilterStatus = r.FilterStatus

			bs, err := util.Marshal(stored, true)
			if err != nil {
				return errors.Wrapf(err, "marshal record %d", r.ID)
			}
			if err := cb.Put(k, bs); err != nil {
				return errors.Wrapf(err, "put record:%s:%d", r.CVEID, r.ID)
			}
		}

		return nil
	})
}

func (c *Connection) GetDescription(cveID string) (*dbTypes.Description, error) {
	var v dbTypes.Description
	if err := c.conn.View(func(tx *bolt.Tx) error {
		db := tx.Bucket([]byte("description"))
		if db == nil {
			return errors.Errorf("bucket:%q is not exists", "description")
		}

		cb := db.Bucket([]byte(cveID))
		if cb == nil {
			return errors.Wrapf(dbTypes.ErrNotFound, "description:%s", cveID)
		}

		k, bs := cb.Cursor().Last()
		if k == nil {
			return errors.Wrapf(dbTypes.ErrNotFound, "description:%s", cveID)
		}
		if err := util.Unmarshal(bs, true, &v); err != nil {
			return errors.Wrapf(err, "unmarshal description:%s:%d", cveID, binary.BigEndian.Uint64(k))
		}

		return nil
	}); err != nil {
		return nil, errors.WithStack(err)
	}
	return &v, nil
}

func (c *Connection) PutDescription(description dbTypes.Description) (int, error) {
	if err := c.conn.Update(func(tx *bolt.Tx) error {
		db, err := tx.CreateBucketIfNotExists([]byte("description"))
		if err != nil {
			return errors.Wrapf(err, "create bucket:%q if not exists", "description")
		}

		if description.ID == 0 {
			seq, err := db.NextSequence()
			if err != nil {
				return errors.Wrap(err, "next description sequence")
			}
			description.ID = int(seq)
		}

		cb, err := db.CreateBucketIfNotExists([]byte(description.CVEID))
		if err != nil {
			return errors.Wrapf(err, "create bucket:%q if not exists", "description:"+description.CVEID)
		}

		bs, err := util.Marshal(description, true)
		if err != nil {
			return errors.Wrapf(err, "marshal description %d", description.ID)
		}

		if err := cb.Put(binary.BigEndian.AppendUint64(nil, uint64(description.ID)), bs); err != nil {
			return errors.Wrapf(err, "put description:%s:%d", description.CVEID, description.ID)
		}

		return nil
	}); err != nil {
		return 0, errors.WithStack(err)
	}
	return description.ID, nil
}

func (c *Connection) DeleteAll() error {
	return c.conn.Update(func(tx *bolt.Tx) error {
		var ns [][]byte
		if err := tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			ns = append(ns, name)
			return nil
		}); err != nil {
			return errors.Wrap(err, "foreach root")
		}

		for _, n := range ns {
			if err := tx.DeleteBucket(n); err != nil {
				return errors.Wrapf(err, "delete bucket:%q", n)
			}
		}

		return nil
	})
}

func (c *Connection) Initialize() error {
	return c.conn.Update(func(tx *bolt.Tx) error {
		for _, n := range []string{"metadata", "record", "description"} {
			if _, err := tx.CreateBucketIfNotExists([]byte(n)); err != nil {
				return errors.Wrapf(err, "create bucket:%q if not exists", n)
			}
		}
		return nil
	})
}
