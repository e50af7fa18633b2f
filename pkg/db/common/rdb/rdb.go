package rdb

import (
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbTypes "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/db/common/types"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/types"
)

type Config struct {
	Type    string
	Path    string
	Debug   bool
	Options []gorm.Option
}

type Connection struct {
	Config *Config

	conn *gorm.DB
}

type metadata struct {
	ID            uint `gorm:"primaryKey"`
	SchemaVersion uint
	CreatedBy     string
	LastModified  time.Time
	Downloaded    *time.Time
}

func (metadata) TableName() string { return "metadata" }

type record struct {
	ID           int       `gorm:"primaryKey;autoIncrement:false"`
	CVEID        string    `gorm:"column:cve_id;index;size:32;not null"`
	Description  string    `gorm:"type:text"`
	SourceURL    string    `gorm:"size:1024"`
	SourceType   string    `gorm:"size:32"`
	CreatedAt    time.Time `gorm:"autoCreateTime:false"`
	FilterStatus int       `gorm:"index"`
}

func (record) TableName() string { return "raw_descriptions" }

type description struct {
	ID          int       `gorm:"primaryKey"`
	CVEID       string    `gorm:"column:cve_id;index;size:32;not null"`
	Description string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"autoCreateTime:false"`
	BuildString string    `gorm:"type:text"`
}

func (description) TableName() string { return "descriptions" }

type descriptionSource struct {
	DescriptionID int `gorm:"primaryKey;autoIncrement:false"`
	RecordID      int `gorm:"primaryKey;autoIncrement:false"`
}

func (descriptionSource) TableName() string { return "description_sources" }

var models = []any{&metadata{}, &record{}, &description{}, &descriptionSource{}}

func (c *Connection) Open() error {
	if c.Config == nil {
		return errors.New("connection config is not set")
	}

	var dialector gorm.Dialector
	switch c.Config.Type {
	case "sqlite3":
		dialector = sqlite.Open(c.Config.Path)
	case "mysql":
		dialector = mysql.Open(c.Config.Path)
	case "postgres":
		dialector = postgres.Open(c.Config.Path)
	default:
		return errors.Errorf("%s is not support rdb dbtype", c.Config.Type)
	}

	db, err := gorm.Open(dialector, c.Config.Options...)
	if err != nil {
		return errors.WithStack(err)
	}
	if c.Config.Debug {
		db = db.Debug()
	}
	c.conn = db
	return nil
}

func (c *Connection) Close() error {
	if c.conn == nil {
		return nil
	}
	db, err := c.conn.DB()
	if err != nil {
		return errors.Wrap(err, "get *sql.DB")
	}
	return db.Close()
}

func (c *Connection) GetMetadata() (*dbTypes.Metadata, error) {
	var m metadata
	if err := c.conn.Take(&m, 1).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrap(dbTypes.ErrNotFound, "metadata")
		}
		return nil, errors.Wrap(err, "select metadata")
	}
	return &dbTypes.Metadata{
		SchemaVersion: m.SchemaVersion,
		CreatedBy:     m.CreatedBy,
		LastModified:  m.LastModified,
		Downloaded:    m.Downloaded,
	}, nil
}

func (c *Connection) PutMetadata(v dbTypes.Metadata) error {
	if err := c.conn.Save(&metadata{
		ID:            1,
		SchemaVersion: v.SchemaVersion,
		CreatedBy:     v.CreatedBy,
		LastModified:  v.LastModified,
		Downloaded:    v.Downloaded,
	}).Error; err != nil {
		return errors.Wrap(err, "save metadata")
	}
	return nil
}

func (c *Connection) GetJobs() ([]string, error) {
	var jobs []string
	if err := c.conn.Model(&record{}).
		Distinct("cve_id").
		Where("filter_status = ?", types.FilterStatusNew.Code()).
		Order("cve_id").
		Pluck("cve_id", &jobs).Error; err != nil {
		return nil, errors.Wrap(err, "select jobs")
	}
	return jobs, nil
}

func (c *Connection) GetRecords(cveID string) ([]*types.Record, error) {
	var ms []record
	if err := c.conn.Where("cve_id = ?", cveID).Order("id").Find(&ms).Error; err != nil {
		return nil, errors.Wrapf(err, "select records of %s", cveID)
	}

	rs := make([]*types.Record, 0, len(ms))
	for _, m := range ms {
		r := &types.Record{
			ID:           m.ID,
			CVEID:        m.CVEID,
			Description:  m.Description,
			SourceURL:    m.SourceURL,
			SourceType:   types.SourceType(m.SourceType),
			CreatedAt:    m.CreatedAt,
			FilterStatus: types.FilterStatusFromCode(m.FilterStatus),
		}
		r.MarkPersisted()
		rs = append(rs, r)
	}
	return rs, nil
}

func (c *Connection) PutRecords(records []types.Record) error {
	if len(records) == 0 {
		return nil
	}

	ms := make([]record, 0, len(records))
	for _, r := range records {
		ms = append(ms, record{
			ID:           r.ID,
			CVEID:        r.CVEID,
			Description:  r.Description,
			SourceURL:    r.SourceURL,
			SourceType:   string(r.SourceType),
			CreatedAt:    r.CreatedAt,
			FilterStatus: r.FilterStatus.Code(),
		})
	}

	if err := c.conn.Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(ms, 100).Error; err != nil {
		return errors.Wrap(err, "insert records")
	}
	return nil
}

func (c *Connection) PutFilterStatuses(records []*types.Record) error {
	return c.conn.Transaction(func(tx *gorm.DB) error {
		for _, r := range records {
			res := tx.Model(&record{}).Where("id = ? AND cve_id = ?", r.ID, r.CVEID).Update("filter_status", r.FilterStatus.Code())
			if res.Error != nil {
				return errors.Wrapf(res.Error, "update record:%s:%d", r.CVEID, r.ID)
			}
			if res.RowsAffected > 0 {
				continue
			}

			var n int64
			if err := tx.Model(&record{}).Where("id = ? AND cve_id = ?", r.ID, r.CVEID).Count(&n).Error; err != nil {
				return errors.Wrapf(err, "count record:%s:%d", r.CVEID, r.ID)
			}
			if n == 0 {
				return errors.Wrapf(dbTypes.ErrNotFound, "record:%s:%d", r.CVEID, r.ID)
			}
		}
		return nil
	})
}

func (c *Connection) GetDescription(cveID string) (*dbTypes.Description, error) {
	var m description
	if err := c.conn.Where("cve_id = ?", cveID).Order("id DESC").Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(dbTypes.ErrNotFound, "description:%s", cveID)
		}
		return nil, errors.Wrapf(err, "select description of %s", cveID)
	}

	var ids []int
	if err := c.conn.Model(&descriptionSource{}).Where("description_id = ?", m.ID).Order("record_id").Pluck("record_id", &ids).Error; err != nil {
		return nil, errors.Wrapf(err, "select sources of description %d", m.ID)
	}

	return &dbTypes.Description{
		ID:          m.ID,
		CVEID:       m.CVEID,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
		BuildString: m.BuildString,
		SourceIDs:   ids,
	}, nil
}

func (c *Connection) PutDescription(v dbTypes.Description) (int, error) {
	m := description{
		ID:          v.ID,
		CVEID:       v.CVEID,
		Description: v.Description,
		CreatedAt:   v.CreatedAt,
		BuildString: v.BuildString,
	}

	if err := c.conn.Transaction(func(tx *gorm.DB) error {
		if m.ID == 0 {
			if err := tx.Create(&m).Error; err != nil {
				return errors.Wrap(err, "insert description")
			}
		} else {
			if err := tx.Save(&m).Error; err != nil {
				return errors.Wrapf(err, "save description %d", m.ID)
			}
			if err := tx.Where("description_id = ?", m.ID).Delete(&descriptionSource{}).Error; err != nil {
				return errors.Wrapf(err, "delete sources of description %d", m.ID)
			}
		}

		if len(v.SourceIDs) == 0 {
			return nil
		}
		ss := make([]descriptionSource, 0, len(v.SourceIDs))
		for _, id := range v.SourceIDs {
			ss = append(ss, descriptionSource{DescriptionID: m.ID, RecordID: id})
		}
		if err := tx.Create(&ss).Error; err != nil {
			return errors.Wrapf(err, "insert sources of description %d", m.ID)
		}
		return nil
	}); err != nil {
		return 0, errors.WithStack(err)
	}
	return m.ID, nil
}

func (c *Connection) DeleteAll() error {
	if err := c.conn.Migrator().DropTable(models...); err != nil {
		return errors.Wrap(err, "drop tables")
	}
	return nil
}

func (c *Connection) Initialize() error {
	if err := c.conn.AutoMigrate(models...); err != nil {
		return errors.Wrap(err, "auto migrate")
	}
	return nil
}
