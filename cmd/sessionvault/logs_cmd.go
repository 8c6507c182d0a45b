package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openmined/sessionvault/internal/config"
)

func init() {
	rootCmd.AddCommand(newLogsCmd())
}

func newLogsCmd() *cobra.Command {
	var lines int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the tail of the backup log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			out := cmd.OutOrStdout()
			tail, err := tailLines(config.DefaultLogFilePath, lines)
			if err != nil {
				if os.IsNotExist(err) {
					fmt.Fprintln(out, "No log file yet")
					return nil
				}
				return err
			}

			for _, line := range tail {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 20, "number of lines to show")
	return cmd
}
