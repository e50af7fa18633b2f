package reconcile

import (
	"context"
	"encoding/json"
	"os"

	"github.com/MakeNowJust/heredoc"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	utilflag "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/cmd/util/flag"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/config"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/reconcile"
	utilos "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/util/os"
)

func NewCmd() *cobra.Command {
	options := struct {
		dbtype     utilflag.DBType
		dbpath     string
		config     string
		noProgress bool
		debug      bool
	}{
		dbtype:     utilflag.DBTypeBoltDB,
		dbpath:     utilos.DefaultDBPath(),
		config:     config.DefaultPath(),
		noProgress: false,
		debug:      false,
	}

	cmd := &cobra.Command{
		Use:   "reconcile [<CVE ID>...]",
		Short: "filter new records and reconcile vulnerability descriptions",
		Example: heredoc.Doc(`
		$ nvip reconcile
		$ nvip reconcile CVE-2024-0001 CVE-2024-0002
		$ nvip reconcile --config ./config.yaml --dbtype sqlite3 --dbpath ./nvip.sqlite3
		`),
		RunE: func(_ *cobra.Command, args []string) error {
			utilflag.SetLogLevel(options.debug)

			c, err := config.Open(options.config)
			if err != nil {
				return errors.Wrapf(err, "open %s", options.config)
			}

			s, err := reconcile.Reconcile(context.Background(), args,
				reconcile.WithDBType(options.dbtype.String()),
				reconcile.WithDBPath(options.dbpath),
				reconcile.WithConfig(c),
				reconcile.WithNoProgress(options.noProgress),
				reconcile.WithDebug(options.debug),
			)
			if err != nil {
				return errors.Wrap(err, "reconcile")
			}

			e := json.NewEncoder(os.Stdout)
			e.SetIndent("", "  ")
			if err := e.Encode(s); err != nil {
				return errors.Wrap(err, "encode summary")
			}
			return nil
		},
	}

	utilflag.AddDBFlags(cmd, &options.dbtype, &options.dbpath)
	cmd.Flags().StringVarP(&options.config, "config", "C", options.config, "use config.yaml path")
	cmd.Flags().BoolVarP(&options.noProgress, "no-progress", "", options.noProgress, "hide progress bar")
	cmd.Flags().BoolVarP(&options.debug, "debug", "d", options.debug, "debug mode")

	return cmd
}
