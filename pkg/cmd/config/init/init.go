package init

import (
	"github.com/MakeNowJust/heredoc"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/config"
	configInit "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/config/init"
)

func NewCmd() *cobra.Command {
	options := struct {
		config string
	}{
		config: config.DefaultPath(),
	}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "write the default nvip config",
		Example: heredoc.Doc(`
		$ nvip config init
		$ nvip config init --config ./config.yaml
		`),
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := configInit.Init(configInit.WithConfig(options.config)); err != nil {
				return errors.Wrap(err, "config init")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&options.config, "config", "C", options.config, "use config.yaml path")

	return cmd
}
