//go:build !darwin

package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCronLine(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		expr     string
	}{
		{"every minute", time.Minute, "* * * * *"},
		{"sub hour", 15 * time.Minute, "*/15 * * * *"},
		{"hourly step", 6 * time.Hour, "0 */6 * * *"},
		{"caps at daily", 48 * time.Hour, "0 0 * * *"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := cronLine("/usr/local/bin/sessionvault", tt.interval)
			assert.Equal(t, tt.expr+" /usr/local/bin/sessionvault check --quiet "+cronTag, line)
		})
	}
}

func TestWithoutTagged(t *testing.T) {
	ours := cronLine("/bin/sessionvault", time.Hour)
	lines := []string{
		"0 * * * * /usr/bin/backup-photos",
		ours,
		"30 2 * * * /usr/bin/logrotate",
	}

	kept := withoutTagged(lines)

	assert.Len(t, kept, 2)
	assert.NotContains(t, kept, ours)
	assert.Contains(t, kept, lines[0])
	assert.Contains(t, kept, lines[2])
}

func TestWithoutTaggedNoEntry(t *testing.T) {
	lines := []string{"@reboot /usr/bin/foo"}
	assert.Equal(t, lines, withoutTagged(lines))
}
