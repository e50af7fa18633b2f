package fetch

import (
	"github.com/MakeNowJust/heredoc"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	utilflag "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/cmd/util/flag"
	db "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/db/fetch"
	utilos "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/util/os"
)

func NewCmd() *cobra.Command {
	options := struct {
		dbpath     string
		noProgress bool
		debug      bool
	}{
		dbpath:     utilos.DefaultDBPath(),
		noProgress: false,
		debug:      false,
	}

	cmd := &cobra.Command{
		Use:   "fetch [<repository>]",
		Short: "fetch a prebuilt nvip db",
		Example: heredoc.Doc(`
		$ nvip db fetch
		$ nvip db fetch ghcr.io/softwaredesignlab/nvip-db:latest
		`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			utilflag.SetLogLevel(options.debug)
			opts := []db.Option{db.WithDBPath(options.dbpath), db.WithNoProgress(options.noProgress), db.WithDebug(options.debug)}
			if len(args) > 0 {
				opts = append(opts, db.WithRepository(args[0]))
			}
			if err := db.Fetch(opts...); err != nil {
				return errors.Wrap(err, "db fetch")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&options.dbpath, "dbpath", "", options.dbpath, "nvip db path")
	cmd.Flags().BoolVarP(&options.noProgress, "no-progress", "", options.noProgress, "hide progress bar")
	cmd.Flags().BoolVarP(&options.debug, "debug", "d", options.debug, "debug mode")

	return cmd
}
