package root

import (
	"github.com/spf13/cobra"

	configCmd "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/cmd/config"
	dbCmd "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/cmd/db"
	reconcileCmd "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/cmd/reconcile"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/version"
)

func NewCmdRoot() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "nvip <command>",
		Short:         "Vulnerability Description Reconciler: NVIP",
		Long:          "Filter crawled vulnerability descriptions and reconcile them into one description per CVE",
		Version:       version.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.AddCommand(
		configCmd.NewCmdConfig(),
		dbCmd.NewCmdDB(),
		reconcileCmd.NewCmd(),
	)

	return cmd
}
