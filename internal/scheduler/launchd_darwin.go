//go:build darwin

package scheduler

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/openmined/sessionvault/internal/utils"
)

const launchdLabel = "org.openmined.sessionvault.check"

type launchdScheduler struct {
	bin       string
	plistPath string
}

func newPlatform(bin string) (Scheduler, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	return &launchdScheduler{
		bin:       bin,
		plistPath: filepath.Join(home, "Library", "LaunchAgents", launchdLabel+".plist"),
	}, nil
}

func (l *launchdScheduler) Install(interval time.Duration) error {
	if utils.FileExists(l.plistPath) {
		return ErrAlreadyInstalled
	}
	if err := utils.EnsureParent(l.plistPath); err != nil {
		return err
	}
	plist := launchdPlist(launchdLabel, l.bin, interval)
	if err := utils.WriteFileAtomic(l.plistPath, []byte(plist), 0o644); err != nil {
		return fmt.Errorf("write launchd plist: %w", err)
	}
	if out, err := exec.Command("launchctl", "load", "-w", l.plistPath).CombinedOutput(); err != nil {
		return fmt.Errorf("launchctl load: %s: %w", string(out), err)
	}
	return nil
}

func (l *launchdScheduler) Remove() error {
	if !utils.FileExists(l.plistPath) {
		return ErrNotInstalled
	}
	// Unload may fail if the agent was never loaded this boot; the plist
	// removal is what matters.
	_ = exec.Command("launchctl", "unload", l.plistPath).Run()
	if err := os.Remove(l.plistPath); err != nil {
		return fmt.Errorf("remove launchd plist: %w", err)
	}
	return nil
}

func (l *launchdScheduler) Installed() (bool, error) {
	if !utils.FileExists(l.plistPath) {
		return false, nil
	}
	err := exec.Command("launchctl", "list", launchdLabel).Run()
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// Plist on disk but not loaded.
		return true, nil
	}
	return false, fmt.Errorf("launchctl list: %w", err)
}

func launchdPlist(label, bin string, interval time.Duration) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>%s</string>
	<key>ProgramArguments</key>
	<array>
		<string>%s</string>
		<string>check</string>
		<string>--quiet</string>
	</array>
	<key>StartInterval</key>
	<integer>%d</integer>
	<key>RunAtLoad</key>
	<true/>
</dict>
</plist>
`, label, bin, int(interval.Seconds()))
}
