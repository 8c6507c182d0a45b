package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/openmined/sessionvault/internal/config"
	"github.com/openmined/sessionvault/internal/vault"
	"github.com/openmined/sessionvault/internal/workspace"
)

func openWorkspace(cfg *config.Config) (*workspace.Workspace, error) {
	ws, err := workspace.New(cfg.BackupRoot)
	if err != nil {
		return nil, err
	}
	if err := ws.Setup(); err != nil {
		return nil, err
	}
	return ws, nil
}

// newVault wires up the engine with the run-history journal. A journal that
// can't be opened is logged and dropped; syncs still work without it.
func newVault(cfg *config.Config, ws *workspace.Workspace) *vault.Vault {
	var opts []vault.Option
	if h, err := vault.NewHistory(ws.HistoryPath); err != nil {
		slog.Warn("run history unavailable", "error", err)
	} else {
		opts = append(opts, vault.WithHistory(h))
	}
	return vault.New(ws, cfg.SourceDir, opts...)
}

// doSync locks the backup root, runs one Sync and prints its summary.
func doSync(cmd *cobra.Command, cfg *config.Config, archive, quiet bool) error {
	ws, err := openWorkspace(cfg)
	if err != nil {
		return err
	}

	if err := ws.Lock(); err != nil {
		if errors.Is(err, workspace.ErrWorkspaceLocked) {
			return fmt.Errorf("another sessionvault run is active on %s", cfg.BackupRoot)
		}
		return err
	}
	defer ws.Unlock()

	v := newVault(cfg, ws)
	defer v.Close()

	summary, err := v.Sync(cmd.Context(), archive)
	if err != nil {
		var storeErr *vault.StoreError
		if summary != nil && errors.As(err, &storeErr) {
			// Files were copied; only the bookkeeping failed. Surface both.
			fmt.Fprintln(cmd.ErrOrStderr(), yellow("warning:"), "sync applied but metadata write failed; next run may take a redundant snapshot")
		}
		return err
	}

	if !quiet {
		printSummary(cmd, summary)
	}
	return nil
}

func printSummary(cmd *cobra.Command, s *vault.Summary) {
	out := cmd.OutOrStdout()

	if s.Archived {
		fmt.Fprintln(out, green("Created"), s.ArchivePath)
	}
	fmt.Fprintf(out, "Copied %d, unchanged %d, failed %d\n", s.Copied, s.Skipped, s.Failed)
	for name, err := range s.FailedSessions {
		fmt.Fprintln(out, red("failed:"), name+":", err)
	}
	if !s.OldestSession.IsZero() {
		fmt.Fprintln(out, "Oldest retained session:", humanize.Time(s.OldestSession))
	}
}

// tailLines returns the last n lines of the file at path.
func tailLines(path string, n int) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil, nil
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}
