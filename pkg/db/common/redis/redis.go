package redis

import (
	"context"
	"slices"
	"strconv"

	"github.com/pkg/errors"
	"github.com/redis/rueidis"

	dbTypes "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/db/common/types"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/db/common/util"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/types"
)

// redis: HASH KEY: "metadata" FIELD: "db" VALUE: dbTypes.Metadata

// redis: SET KEY: "cves" MEMBER: <CVE ID>

// redis: HASH KEY: "record#<CVE ID>" FIELD: <Record ID> VALUE: types.Record

// redis: HASH KEY: "description#<CVE ID>" FIELD: <Description ID> VALUE: dbTypes.Description

// redis: STRING KEY: "sequence#description" VALUE: last Description ID

type Connection struct {
	Config *rueidis.ClientOption

	conn rueidis.Client
}

func (c *Connection) Open() error {
	if c.Config == nil {
		return errors.New("connection config is not set")
	}

	client, err := rueidis.NewClient(*c.Config)
	if err != nil {
		return errors.WithStack(err)
	}
	c.conn = client
	return nil
}

func (c *Connection) Close() error {
	if c.conn == nil {
		return nil
	}
	c.conn.Close()
	return nil
}

func (c *Connection) GetMetadata() (*dbTypes.Metadata, error) {
	bs, err := c.conn.Do(context.TODO(), c.conn.B().Hget().Key("metadata").Field("db").Build()).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, errors.Wrapf(dbTypes.ErrNotFound, "HGET %s %s", "metadata", "db")
		}
		return nil, errors.Wrapf(err, "HGET %s %s", "metadata", "db")
	}

	var v dbTypes.Metadata
	if err := util.Unmarshal(bs, false, &v); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s", "metadata -> db")
	}

	return &v, nil
}

func (c *Connection) PutMetadata(metadata dbTypes.Metadata) error {
	bs, err := util.Marshal(metadata, false)
	if err != nil {
		return errors.Wrap(err, "marshal metadata")
	}

	if err := c.conn.Do(context.TODO(), c.conn.B().Hset().Key("metadata").FieldValue().FieldValue("db", string(bs)).Build()).Error(); err != nil {
		return errors.Wrapf(err, "HSET %s %s %q", "metadata", "db", string(bs))
	}

	return nil
}

func (c *Connection) GetJobs() ([]string, error) {
	cves, err := c.conn.Do(context.TODO(), c.conn.B().Smembers().Key("cves").Build()).AsStrSlice()
	if err != nil {
		return nil, errors.Wrapf(err, "SMEMBERS %s", "cves")
	}
	slices.Sort(cves)

	var jobs []string
	for _, cve := range cves {
		rs, err := c.GetRecords(cve)
		if err != nil {
			return nil, errors.Wrapf(err, "get records of %s", cve)
		}
		if slices.ContainsFunc(rs, func(r *types.Record) bool { return r.FilterStatus == types.FilterStatusNew }) {
			jobs = append(jobs, cve)
		}
	}
	return jobs, nil
}

func (c *Connection) GetRecords(cveID string) ([]*types.Record, error) {
	m, err := c.conn.Do(context.TODO(), c.conn.B().Hgetall().Key("record#"+cveID).Build()).AsStrMap()
	if err != nil {
		return nil, errors.Wrapf(err, "HGETALL %s", "record#"+cveID)
	}

	rs := make([]*types.Record, 0, len(m))
	for f, v := range m {
		var r types.Record
		if err := util.Unmarshal([]byte(v), false, &r); err != nil {
			return nil, errors.Wrapf(err, "unmarshal %s", "record#"+cveID+" -> "+f)
		}
		r.MarkPersisted()
		rs = append(rs, &r)
	}
	slices.SortFunc(rs, func(a, b *types.Record) int { return a.ID - b.ID })
	return rs, nil
}

func (c *Connection) PutRecords(records []types.Record) error {
	ctx := context.TODO()

	cmds := make(rueidis.Commands, 0, 2*len(records))
	for _, r := range records {
		bs, err := util.Marshal(r, false)
		if err != nil {
			return errors.Wrapf(err, "marshal record %d", r.ID)
		}
		cmds = append(cmds,
			c.conn.B().Sadd().Key("cves").Member(r.CVEID).Build(),
			c.conn.B().Hset().Key("record#"+r.CVEID).FieldValue().FieldValue(strconv.Itoa(r.ID), string(bs)).Build(),
		)
	}

	for _, resp := range c.conn.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return errors.Wrap(err, "put records")
		}
	}
	return nil
}

func (c *Connection) PutFilterStatuses(records []*types.Record) error {
	ctx := context.TODO()

	for _, r := range records {
		k, f := "record#"+r.CVEID, strconv.Itoa(r.ID)

		bs, err := c.conn.Do(ctx, c.conn.B().Hget().Key(k).Field(f).Build()).AsBytes()
		if err != nil {
			if rueidis.IsRedisNil(err) {
				return errors.Wrapf(dbTypes.ErrNotFound, "HGET %s %s", k, f)
			}
			return errors.Wrapf(err, "HGET %s %s", k, f)
		}

		var stored types.Record
		if err := util.Unmarshal(bs, false, &stored); err != nil {
			return errors.Wrapf(err, "unmarshal %s", k+" -> "+f)
		}
		stored.FilterStatus = r.FilterStatus

		bs, err = util.Marshal(stored, false)
		if err != nil {
			return errors.Wrapf(err, "marshal record %d", r.ID)
		}
		if err := c.conn.Do(ctx, c.conn.B().Hset().Key(k).FieldValue().FieldValue(f, string(bs)).Build()).Error(); err != nil {
			return errors.Wrapf(err, "HSET %s %s", k, f)
		}
	}
	return nil
}

func (c *Connection) GetDescription(cveID string) (*dbTypes.Description, error) {
	k := "description#" + cveID
	m, err := c.conn.Do(context.TODO(), c.conn.B().Hgetall().Key(k).Build()).AsStrMap()
	if err != nil {
		return nil, errors.Wrapf(err, "HGETALL %s", k)
	}

	latest, value := -1, ""
	for f, v := range m {
		id, err := strconv.Atoi(f)
		if err != nil {
			return nil, errors.Wrapf(err, "parse field %s of %s", f, k)
		}
		if id > latest {
			latest, value = id, v
		}
	}
	if latest < 0 {
		return nil, errors.Wrapf(dbTypes.ErrNotFound, "description of %s", cveID)
	}

	var v dbTypes.Description
	if err := util.Unmarshal([]byte(value), false, &v); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s", k+" -> "+strconv.Itoa(latest))
	}
	return &v, nil
}

func (c *Connection) PutDescription(description dbTypes.Description) (int, error) {
	ctx := context.TODO()

	if description.ID == 0 {
		id, err := c.conn.Do(ctx, c.conn.B().Incr().Key("sequence#description").Build()).AsInt64()
		if err != nil {
			return 0, errors.Wrapf(err, "INCR %s", "sequence#description")
		}
		description.ID = int(id)
	}

	bs, err := util.Marshal(description, false)
	if err != nil {
		return 0, errors.Wrapf(err, "marshal description %d", description.ID)
	}

	k := "description#" + description.CVEID
	if err := c.conn.Do(ctx, c.conn.B().Hset().Key(k).FieldValue().FieldValue(strconv.Itoa(description.ID), string(bs)).Build()).Error(); err != nil {
		return 0, errors.Wrapf(err, "HSET %s %d", k, description.ID)
	}
	return description.ID, nil
}

func (c *Connection) DeleteAll() error {
	if err := c.conn.Do(context.TODO(), c.conn.B().Flushdb().Build()).Error(); err != nil {
		return errors.Wrap(err, "FLUSHDB")
	}

	return nil
}

func (c *Connection) Initialize() error {
	return nil
}
