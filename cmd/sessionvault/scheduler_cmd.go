package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/openmined/sessionvault/internal/scheduler"
)

func init() {
	rootCmd.AddCommand(newSchedulerInstallCmd())
	rootCmd.AddCommand(newSchedulerRemoveCmd())
	rootCmd.AddCommand(newSchedulerStatusCmd())
}

func newSchedulerInstallCmd() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "scheduler-install",
		Short: "Register a recurring background check with launchd or cron",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			sched, err := scheduler.New()
			if err != nil {
				return err
			}

			err = sched.Install(interval)
			if errors.Is(err, scheduler.ErrAlreadyInstalled) {
				fmt.Fprintln(cmd.OutOrStdout(), yellow("Scheduler job already installed"))
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), green(fmt.Sprintf("Scheduled background check every %s", interval)))
			return nil
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", scheduler.DefaultInterval, "how often the background check runs")
	return cmd
}

func newSchedulerRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler-remove",
		Short: "Unregister the recurring background check",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			sched, err := scheduler.New()
			if err != nil {
				return err
			}

			err = sched.Remove()
			if errors.Is(err, scheduler.ErrNotInstalled) {
				fmt.Fprintln(cmd.OutOrStdout(), yellow("No scheduler job installed"))
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), green("Removed background check"))
			return nil
		},
	}
}

func newSchedulerStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler-status",
		Short: "Show whether the recurring background check is installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			sched, err := scheduler.New()
			if err != nil {
				return err
			}

			installed, err := sched.Installed()
			if err != nil {
				return err
			}
			if installed {
				fmt.Fprintln(cmd.OutOrStdout(), green("Background check is installed"))
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Background check is not installed")
			}
			return nil
		},
	}
}
