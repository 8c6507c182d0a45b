package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/openmined/sessionvault/internal/vault"
)

func init() {
	rootCmd.AddCommand(newListCmd())
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List snapshot archives, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, err := activeConfig()
			if err != nil {
				return err
			}

			ws, err := openWorkspace(cfg)
			if err != nil {
				return err
			}

			snaps, err := vault.ListSnapshots(ws.ArchiveDir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(snaps) == 0 {
				fmt.Fprintln(out, "No archives found")
				return nil
			}

			for _, s := range snaps {
				fmt.Fprintf(out, "%s  %8s  %s\n", s.Name, humanize.Bytes(uint64(s.Size)), humanize.Time(s.ModTime))
			}
			fmt.Fprintln(out, cyan(fmt.Sprintf("%d archives", len(snaps))))
			return nil
		},
	}
}
