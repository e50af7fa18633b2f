package config

import (
	"github.com/spf13/cobra"

	cmdInit "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/cmd/config/init"
)

func NewCmdConfig() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "NVIP Config Operation",
	}

	cmd.AddCommand(
		cmdInit.NewCmd(),
	)

	return cmd
}
