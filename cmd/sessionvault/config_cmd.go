package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openmined/sessionvault/internal/config"
)

func init() {
	rootCmd.AddCommand(newConfigCmd())
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the configuration, or persist --source / --backup-root",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, err := activeConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if cmd.Flags().Changed("backup-root") || cmd.Flags().Changed("source") {
				path := viper.ConfigFileUsed()
				if path == "" {
					path = config.DefaultConfigPath
				}
				saved, err := persistConfig(path, cfg, cmd.Flags().Changed("source"), cmd.Flags().Changed("backup-root"))
				if err != nil {
					return fmt.Errorf("save config: %w", err)
				}
				if cmd.Flags().Changed("backup-root") {
					fmt.Fprintln(out, green("Backup root set:"), saved.BackupRoot)
				}
				if cmd.Flags().Changed("source") {
					fmt.Fprintln(out, green("Source set:"), saved.SourceDir)
				}
				return nil
			}

			fmt.Fprintln(out, "Source:", cfg.SourceDir)
			fmt.Fprintln(out, "Backup location:", cfg.BackupRoot)
			fmt.Fprintln(out, "Check gap days:", cfg.CheckGapDays)
			if cfg.Path != "" {
				fmt.Fprintln(out, "Config file:", cfg.Path)
			} else {
				fmt.Fprintln(out, "Config file:", yellow("none (defaults)"))
			}
			return nil
		},
	}
}

// persistConfig applies the changed flag values onto the config document at
// path and writes it back. The on-disk document is the base when one exists,
// so persisting one setting never bakes runtime overrides of the others into
// the file.
func persistConfig(path string, eff *config.Config, setSource, setRoot bool) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg = &config.Config{}
	}

	if setSource {
		cfg.SourceDir = eff.SourceDir
	}
	if setRoot {
		cfg.BackupRoot = eff.BackupRoot
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(path); err != nil {
		return nil, err
	}
	return cfg, nil
}
