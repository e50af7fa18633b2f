package pebble

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/cockroachdb/pebble/v2"
	"github.com/pkg/errors"

	dbTypes "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/db/common/types"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/db/common/util"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/types"
)

// pebble: metadata#db -> dbTypes.Metadata

// pebble: record#<CVE ID>#<Record ID> -> types.Record

// pebble: description#<CVE ID>#<Description ID (zero padded)> -> dbTypes.Description

// pebble: sequence#description -> last Description ID

const KEY_DELEM = "#"

type Config struct {
	Path    string
	Options *pebble.Options
}

type Connection struct {
	Config *Config

	conn *pebble.DB
	mu   sync.Mutex
}

func (c *Connection) Open() error {
	if c.Config == nil {
		return errors.New("connection config is not set")
	}

	db, err := pebble.Open(c.Config.Path, c.Config.Options)
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
	if err := c.getValue(key("metadata", "db"), false, &v); err != nil {
		return nil, errors.Wrap(err, "get metadata")
	}

	return &v, nil
}

func (c *Connection) PutMetadata(metadata dbTypes.Metadata) error {
	return c.setValue(key("metadata", "db"), false, metadata)
}

func (c *Connection) GetJobs() ([]string, error) {
	var jobs []string
	if err := c.scan(key("record", ""), false, func(k string, bs []byte) error {
		var r types.Record
		if err := util.Unmarshal(bs, true, &r); err != nil {
			return errors.Wrapf(err, "unmarshal %s", k)
		}
		if r.FilterStatus == types.FilterStatusNew && !slices.Contains(jobs, r.CVEID) {
			jobs = append(jobs, r.CVEID)
		}
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "scan records")
	}
	return jobs, nil
}

func (c *Connection) GetRecords(cveID string) ([]*types.Record, error) {
	var rs []*types.Record
	if err := c.scan(key("record", cveID, ""), false, func(k string, bs []byte) error {
		var r types.Record
		if err := util.Unmarshal(bs, true, &r); err != nil {
			return errors.Wrapf(err, "unmarshal %s", k)
		}
		r.MarkPersisted()
		rs = append(rs, &r)
		return nil
	}); err != nil {
		return nil, errors.Wrapf(err, "scan records of %s", cveID)
	}
	slices.SortFunc(rs, func(a, b *types.Record) int { return a.ID - b.ID })
	return rs, nil
}

func (c *Connection) PutRecords(records []types.Record) error {
	b := c.conn.NewBatch()
	defer b.Close()

	for _, r := range records {
		bs, err := util.Marshal(r, true)
		if err != nil {
			return errors.Wrapf(err, "marshal record %d", r.ID)
		}
		k := key("record", r.CVEID, strconv.Itoa(r.ID))
		if err := b.Set([]byte(k), bs, nil); err != nil {
			return errors.Wrapf(err, "set %s", k)
		}
	}

	if err := b.Commit(pebble.Sync); err != nil {
		return errors.Wrap(err, "commit records")
	}
	return nil
}

func (c *Connection) PutFilterStatuses(records []*types.Record) error {
	for _, r := range records {
		k := key("record", r.CVEID, strconv.Itoa(r.ID))

		var stored types.Record
		if err := c.getValue(k, true, &stored); err != nil {
			return errors.Wrapf(err, "get %s", k)
		}
		stored.FilterStatus = r.FilterStatus
		if err := c.setValue(k, true, stored); err != nil {
			return errors.Wrapf(err, "set %s", k)
		}
	}
	return nil
}

func (c *Connection) GetDescription(cveID string) (*dbTypes.Description, error) {
	var (
		v     dbTypes.Description
		found bool
	)
	if err := c.scan(key("description", cveID, ""), true, func(k string, bs []byte) error {
		if err := util.Unmarshal(bs, true, &v); err != nil {
			return errors.Wrapf(err, "unmarshal %s", k)
		}
		found = true
		return errStop
	}); err != nil {
		return nil, errors.Wrapf(err, "scan descriptions of %s", cveID)
	}
	if !found {
		return nil, errors.Wrapf(dbTypes.ErrNotFound, "description of %s", cveID)
	}
	return &v, nil
}

func (c *Connection) PutDescription(description dbTypes.Description) (int, error) {
	if description.ID == 0 {
		id, err := c.nextSequence(key("sequence", "description"))
		if err != nil {
			return 0, errors.Wrap(err, "next description sequence")
		}
		description.ID = id
	}

	if err := c.setValue(key("description", description.CVEID, fmt.Sprintf("%020d", description.ID)), true, description); err != nil {
		return 0, errors.Wrapf(err, "put description %d", description.ID)
	}
	return description.ID, nil
}

func (c *Connection) nextSequence(k string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var seq int
	if err := c.getValue(k, false, &seq); err != nil && !errors.Is(err, dbTypes.ErrNotFound) {
		return 0, errors.Wrapf(err, "get %s", k)
	}
	seq++
	if err := c.setValue(k, false, seq); err != nil {
		return 0, errors.Wrapf(err, "set %s", k)
	}
	return seq, nil
}

func (c *Connection) DeleteAll() error {
	if err := c.conn.DeleteRange([]byte{0x00}, []byte{0xff}, pebble.Sync); err != nil {
		return errors.Wrap(err, "delete range")
	}
	return nil
}

func (c *Connection) Initialize() error {
	return nil
}

func key(parts ...string) string {
	return strings.Join(parts, KEY_DELEM)
}

func (c *Connection) getValue(k string, compress bool, ref any) error {
	bs, closer, err := c.conn.Get([]byte(k))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return errors.Wrapf(dbTypes.ErrNotFound, "get %s", k)
		}
		return errors.Wrapf(err, "get %s", k)
	}
	defer closer.Close()

	if err := util.Unmarshal(bs, compress, ref); err != nil {
		return errors.Wrapf(err, "unmarshal %s", k)
	}

	return nil
}

func (c *Connection) setValue(k string, compress bool, value any) error {
	bs, err := util.Marshal(value, compress)
	if err != nil {
		return errors.Wrapf(err, "marshal %s", k)
	}

	if err := c.conn.Set([]byte(k), bs, pebble.Sync); err != nil {
		return errors.Wrapf(err, "set %s", k)
	}

	return nil
}

var errStop = errors.New("stop iteration")

// scan visits every key with the given prefix, in ascending order or descending when reverse is
// set. fn may return errStop to end the scan early.
func (c *Connection) scan(prefix string, reverse bool, fn func(string, []byte) error) error {
	iter, err := c.conn.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: upperBound([]byte(prefix)),
	})
	if err != nil {
		return errors.Wrap(err, "new iter")
	}
	defer iter.Close()

	valid := iter.First
	next := iter.Next
	if reverse {
		valid, next = iter.Last, iter.Prev
	}
	for ok := valid(); ok; ok = next() {
		v, err := iter.ValueAndErr()
		if err != nil {
			return errors.Wrapf(err, "value of %s", iter.Key())
		}
		if err := fn(string(iter.Key()), v); err != nil {
			if errors.Is(err, errStop) {
				return nil
			}
			return err
		}
	}
	return iter.Error()
}

func upperBound(prefix []byte) []byte {
	end := slices.Clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
