package search

import (
	"github.com/MakeNowJust/heredoc"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	utilflag "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/cmd/util/flag"
	dbTypes "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/db/common/types"
	db "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/db/search"
	utilos "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/util/os"
)

func NewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "search in nvip db",
	}

	cmd.AddCommand(
		newSearchCmd(dbTypes.SearchRecords, "records <CVE ID>", "search crawled records of a vulnerability", heredoc.Doc(`
		$ nvip db search records CVE-2024-0001
		`), cobra.ExactArgs(1)),
		newSearchCmd(dbTypes.SearchDescription, "description <CVE ID>", "search the current description of a vulnerability", heredoc.Doc(`
		$ nvip db search description CVE-2024-0001
		`), cobra.ExactArgs(1)),
		newSearchCmd(dbTypes.SearchJobs, "jobs", "list vulnerabilities with new records", heredoc.Doc(`
		$ nvip db search jobs
		`), cobra.NoArgs),
		newSearchCmd(dbTypes.SearchMetadata, "metadata", "show nvip db metadata", heredoc.Doc(`
		$ nvip db search metadata
		`), cobra.NoArgs),
	)

	return cmd
}

func newSearchCmd(searchType dbTypes.SearchType, use, short, example string, args cobra.PositionalArgs) *cobra.Command {
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
		Use:     use,
		Short:   short,
		Example: example,
		Args:    args,
		RunE: func(_ *cobra.Command, args []string) error {
			utilflag.SetLogLevel(options.debug)
			if err := db.Search(searchType, args, db.WithDBType(options.dbtype.String()), db.WithDBPath(options.dbpath), db.WithDebug(options.debug)); err != nil {
				return errors.Wrap(err, "db search")
			}
			return nil
		},
	}

	utilflag.AddDBFlags(cmd, &options.dbtype, &options.dbpath)
	cmd.Flags().BoolVarP(&options.debug, "debug", "d", options.debug, "debug mode")

	return cmd
}
