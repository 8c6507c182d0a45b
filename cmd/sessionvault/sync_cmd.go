package main

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newSyncCmd())
}

func newSyncCmd() *cobra.Command {
	var noArchive bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Snapshot the mirror, then pull in new and changed sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, err := activeConfig()
			if err != nil {
				return err
			}
			return doSync(cmd, cfg, !noArchive, false)
		},
	}

	cmd.Flags().BoolVar(&noArchive, "no-archive", false, "apply the incremental update without snapshotting first")
	return cmd
}
