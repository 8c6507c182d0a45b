package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/openmined/sessionvault/internal/vault"
)

func init() {
	rootCmd.AddCommand(newCheckCmd())
}

func newCheckCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Sync only when there are pending changes or pruning looks imminent",
		Long: `Check runs the scanner without touching the mirror or metadata, then
decides whether a full sync is worth it. A sync is triggered on the first
run, when new or changed sessions exist, or when the source's oldest
session has drifted close enough to the recorded oldest that upstream
pruning is about to eat unarchived history.`,
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
			res, err := v.Check(cmd.Context())
			v.Close()
			if err != nil {
				return err
			}

			need, reason := syncDecision(res, cfg.CheckGapDays)
			if !need {
				if !quiet {
					fmt.Fprintln(cmd.OutOrStdout(), "No sync needed")
				}
				return nil
			}

			if !quiet {
				fmt.Fprintln(cmd.OutOrStdout(), cyan(reason+", triggering sync"))
			}
			return doSync(cmd, cfg, true, quiet)
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress output when nothing needs doing")
	return cmd
}

// syncDecision implements the pre-flight heuristic on top of the read-only
// check: first run always syncs; pending changes always sync; otherwise a
// sync fires when the oldest source session has moved forward of the
// recorded oldest by no more than gapDays (pruning has started recently and
// the next round would hit unarchived sessions).
func syncDecision(res *vault.CheckResult, gapDays int) (bool, string) {
	if res.Meta.LastSync.IsZero() {
		return true, "First run"
	}

	if res.Pending() {
		return true, fmt.Sprintf("%d new, %d changed sessions", res.New, res.Changed)
	}

	if !res.OldestSource.IsZero() && !res.Meta.OldestSession.IsZero() {
		gap := res.OldestSource.Sub(res.Meta.OldestSession)
		if gap > 0 && gap <= time.Duration(gapDays)*24*time.Hour {
			return true, fmt.Sprintf("Oldest session advanced %s since last sync", gap.Round(time.Hour))
		}
	}

	return false, ""
}
