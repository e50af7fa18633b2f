package init

import (
	"github.com/MakeNowJust/heredoc"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	utilflag "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/cmd/util/flag"
	db "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/db/init"
	utilos "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/util/os"
)

func NewCmd() *cobra.Command {
	options := struct {
		dbtype  utilflag.DBType
		dbpath  string
		records string
		debug   bool
	}{
		dbtype: utilflag.DBTypeBoltDB,
		dbpath: utilos.DefaultDBPath(),
		debug:  false,
	}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "initialize nvip db",
		Example: heredoc.Doc(`
		$ nvip db init
		$ nvip db init --dbtype sqlite3 --dbpath ./nvip.sqlite3
		$ nvip db init --records ./crawled
		`),
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			utilflag.SetLogLevel(options.debug)
			if err := db.Init(db.WithDBType(options.dbtype.String()), db.WithDBPath(options.dbpath), db.WithRecords(options.records), db.WithDebug(options.debug)); err != nil {
				return errors.Wrap(err, "db init")
			}
			return nil
		},
	}

	utilflag.AddDBFlags(cmd, &options.dbtype, &options.dbpath)
	cmd.Flags().StringVar(&options.records, "records", options.records, "seed the db with crawled records from a JSON file or directory")
	cmd.Flags().BoolVarP(&options.debug, "debug", "d", options.debug, "debug mode")

	return cmd
}
