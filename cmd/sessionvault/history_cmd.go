package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/openmined/sessionvault/internal/vault"
)

func init() {
	rootCmd.AddCommand(newHistoryCmd())
}

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent sync runs from the journal",
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

			h, err := vault.NewHistory(ws.HistoryPath)
			if err != nil {
				return fmt.Errorf("open run history: %w", err)
			}
			defer h.Close()

			runs, err := h.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No sync runs recorded")
				return nil
			}

			for _, r := range runs {
				archived := "-"
				if r.Archived {
					archived = "archived"
				}
				fmt.Fprintf(out, "%s  %8s  copied %d, unchanged %d, failed %d  %s\n",
					r.StartedAt.Local().Format("2006-01-02 15:04:05"),
					r.Duration.Round(time.Millisecond), r.Copied, r.Skipped, r.Failed, archived)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show")
	return cmd
}
