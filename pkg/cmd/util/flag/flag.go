package flag

import (
	"log/slog"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type DBType string

const (
	DBTypeBoltDB     DBType = "boltdb"
	DBTypePebble     DBType = "pebble"
	DBTypeRedis      DBType = "redis"
	DBTypeSQLite3    DBType = "sqlite3"
	DBTypeMySQL      DBType = "mysql"
	DBTypePostgreSQL DBType = "postgres"
)

var dbtypes = []DBType{DBTypeBoltDB, DBTypePebble, DBTypeRedis, DBTypeSQLite3, DBTypeMySQL, DBTypePostgreSQL}

func (t *DBType) String() string {
	return string(*t)
}

func (t *DBType) Set(v string) error {
	for _, dt := range dbtypes {
		if string(dt) == v {
			*t = dt
			return nil
		}
	}
	return errors.Errorf("unexpected dbtype. accepts: %q, actual: %q", dbtypes, v)
}

func (t *DBType) Type() string {
	return "DBType"
}

func DBTypeCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	ss := make([]string, 0, len(dbtypes))
	for _, dt := range dbtypes {
		ss = append(ss, string(dt))
	}
	return ss, cobra.ShellCompDirectiveDefault
}

// AddDBFlags registers --dbtype and --dbpath.
func AddDBFlags(cmd *cobra.Command, dbtype *DBType, dbpath *string) {
	cmd.Flags().VarP(dbtype, "dbtype", "", "nvip db type (default: boltdb, accepts: [boltdb, pebble, redis, sqlite3, mysql, postgres])")
	_ = cmd.RegisterFlagCompletionFunc("dbtype", DBTypeCompletion)
	cmd.Flags().StringVarP(dbpath, "dbpath", "", *dbpath, "nvip db path, or the address for redis and the dsn for mysql and postgres")
}

// SetLogLevel switches the default logger to debug output when debug is set.
func SetLogLevel(debug bool) {
	if debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}
}
