package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newStatusCmd())
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show source, mirror and archive state without changing anything",
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

			v := newVault(cfg, ws)
			defer v.Close()

			rep, err := v.Status(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			check := rep.Check
			meta := check.Meta

			fmt.Fprintf(out, "Sessions in %s: %s (%s)\n",
				cfg.SourceDir, cyan(fmt.Sprint(rep.Sessions)), humanize.Bytes(uint64(rep.SourceSize)))
			if !check.OldestSource.IsZero() {
				fmt.Fprintln(out, "Oldest session:", humanize.Time(check.OldestSource))
				fmt.Fprintln(out, "Newest session:", humanize.Time(rep.NewestSource))
			}

			if meta.LastSync.IsZero() {
				fmt.Fprintln(out, yellow("Never synced"))
			} else {
				fmt.Fprintln(out, "Last sync:", humanize.Time(meta.LastSync))
				fmt.Fprintln(out, "Oldest retained:", humanize.Time(meta.OldestSession))
			}

			fmt.Fprintf(out, "Pending: %d new, %d changed, %d unchanged, %d orphaned\n",
				check.New, check.Changed, check.Unchanged, check.Orphaned)

			var total int64
			for _, s := range rep.Snapshots {
				total += s.Size
			}
			fmt.Fprintf(out, "Archives: %d (%s)\n", len(rep.Snapshots), humanize.Bytes(uint64(total)))

			if len(rep.History) > 0 {
				fmt.Fprintln(out, "Recent runs:")
				for _, r := range rep.History {
					fmt.Fprintf(out, "  %s  copied %d, failed %d, archived %v\n",
						r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Copied, r.Failed, r.Archived)
				}
			}

			return nil
		},
	}
}
