// Package scheduler registers a recurring `sessionvault check --quiet`
// invocation with the host's periodic-job facility: launchd on macOS,
// cron everywhere else. It only ever shells out to the CLI and knows
// nothing about the engine.
package scheduler

import (
	"errors"
	"fmt"
	"os"
	"time"
)

const DefaultInterval = 6 * time.Hour

var (
	ErrAlreadyInstalled = errors.New("scheduler job already installed")
	ErrNotInstalled     = errors.New("scheduler job not installed")
)

// Scheduler manages the recurring background check job.
type Scheduler interface {
	Install(interval time.Duration) error
	Remove() error
	Installed() (bool, error)
}

// New returns the scheduler backend for the current platform, wired to the
// running executable.
func New() (Scheduler, error) {
	bin, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}
	return newPlatform(bin)
}
