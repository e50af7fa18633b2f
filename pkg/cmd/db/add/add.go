package add

import (
	"github.com/MakeNowJust/heredoc"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	utilflag "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/cmd/util/flag"
	db "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/db/add"
	utilos "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/util/os"
)

func NewCmd() *cobra.Command {
	options := struct {
		dbtype utilflag.DBType
		dbpath string
		debug  bool
	}{
		dbtype: utilflag.DBTypeBoltDB,
		dbpath: utilos.DefaultDBPath(),
		debug:  false,
	}

	cmd := &cobra.Command{
		Use:   "add <records file or directory>",
		Short: "add crawled records to nvip db",
		Example: heredoc.Doc(`
		$ nvip db add records.json
		$ nvip db add ./crawled
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			utilflag.SetLogLevel(options.debug)
			if err := db.Add(args[0], db.WithDBType(options.dbtype.String()), db.WithDBPath(options.dbpath), db.WithDebug(options.debug)); err != nil {
				return errors.Wrap(err, "db add")
			}
			return nil
		},
	}

	utilflag.AddDBFlags(cmd, &options.dbtype, &options.dbpath)
	cmd.Flags().BoolVarP(&options.debug, "debug", "d", options.debug, "debug mode")

	return cmd
}
