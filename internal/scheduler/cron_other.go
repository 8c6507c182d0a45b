//go:build !darwin

package scheduler

import (
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// cronTag marks the crontab line we own so install and remove never touch
// the user's other entries.
const cronTag = "# sessionvault-check"

type cronScheduler struct {
	bin string
}

func newPlatform(bin string) (Scheduler, error) {
	return &cronScheduler{bin: bin}, nil
}

func (c *cronScheduler) Install(interval time.Duration) error {
	current, _ := readCrontab()
	kept := withoutTagged(current)
	if len(kept) != len(current) {
		return ErrAlreadyInstalled
	}
	kept = append(kept, cronLine(c.bin, interval))
	return writeCrontab(kept)
}

func (c *cronScheduler) Remove() error {
	current, err := readCrontab()
	if err != nil {
		return ErrNotInstalled
	}
	kept := withoutTagged(current)
	if len(kept) == len(current) {
		return ErrNotInstalled
	}
	return writeCrontab(kept)
}

func (c *cronScheduler) Installed() (bool, error) {
	current, err := readCrontab()
	if err != nil {
		// crontab -l exits non-zero when the user has no crontab.
		return false, nil
	}
	return len(withoutTagged(current)) != len(current), nil
}

// cronLine renders the scheduled entry. Intervals shorter than an hour use a
// minute step; anything from an hour up to a day uses an hour step; longer
// intervals collapse to daily, which is the finest cron can natively express.
func cronLine(bin string, interval time.Duration) string {
	mins := int(interval.Minutes())
	var expr string
	switch {
	case mins <= 1:
		expr = "* * * * *"
	case mins < 60:
		expr = fmt.Sprintf("*/%d * * * *", mins)
	case mins < 24*60:
		expr = fmt.Sprintf("0 */%d * * *", mins/60)
	default:
		expr = "0 0 * * *"
	}
	return fmt.Sprintf("%s %s check --quiet %s", expr, bin, cronTag)
}

func withoutTagged(lines []string) []string {
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.HasSuffix(strings.TrimSpace(line), cronTag) {
			continue
		}
		kept = append(kept, line)
	}
	return kept
}

func readCrontab() ([]string, error) {
	out, err := exec.Command("crontab", "-l").Output()
	if err != nil {
		return nil, fmt.Errorf("read crontab: %w", err)
	}
	var lines []string
	for _, line := range strings.Split(string(out), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func writeCrontab(lines []string) error {
	cmd := exec.Command("crontab", "-")
	cmd.Stdin = strings.NewReader(strings.Join(lines, "\n") + "\n")
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("update crontab: %s: %w", strings.TrimSpace(string(out)), err)
	}
	return nil
}
