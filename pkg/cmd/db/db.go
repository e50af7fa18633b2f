package db

import (
	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	dbAddCmd "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/cmd/db/add"
	dbFetchCmd "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/cmd/db/fetch"
	dbInitCmd "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/cmd/db/init"
	dbSearchCmd "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/cmd/db/search"
)

func NewCmdDB() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db <subcommand>",
		Short: "NVIP DB Operation",
		Example: heredoc.Doc(`
			$ nvip db init
			$ nvip db add ./crawled
			$ nvip db fetch
			$ nvip db search jobs
			$ nvip db search description CVE-2024-0001
		`),
	}

	cmd.AddCommand(
		dbInitCmd.NewCmd(),
		dbAddCmd.NewCmd(),
		dbFetchCmd.NewCmd(),
		dbSearchCmd.NewCmd(),
	)

	return cmd
}
