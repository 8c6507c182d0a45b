package vault

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiver_SnapshotMissingMirrorIsSkipped(t *testing.T) {
	a := NewArchiver(t.TempDir(), nil)

	path, err := a.Snapshot(context.Background(), filepath.Join(t.TempDir(), "mirror"))
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestArchiver_SnapshotContainsMirrorTree(t *testing.T) {
	mirror := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(mirror, "sess-1", "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(mirror, "sess-1", "a.jsonl"), []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(mirror, "sess-1", "sub", "b.jsonl"), []byte("beta"), 0o644))

	archiveDir := t.TempDir()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 12, 30, 45, 0, time.UTC))
	a := NewArchiver(archiveDir, clock)

	path, err := a.Snapshot(context.Background(), mirror)
	require.NoError(t, err)
	assert.Equal(t, "backup_20240301_123045.zip", filepath.Base(path))

	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	contents := map[string]string{}
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		buf, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		contents[f.Name] = string(buf)
	}

	assert.Equal(t, "alpha", contents["sess-1/a.jsonl"])
	assert.Equal(t, "beta", contents["sess-1/sub/b.jsonl"])
}

func TestArchiver_NoTempFileSurvives(t *testing.T) {
	mirror := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(mirror, "f"), []byte("x"), 0o644))

	archiveDir := t.TempDir()
	a := NewArchiver(archiveDir, nil)

	_, err := a.Snapshot(context.Background(), mirror)
	require.NoError(t, err)

	entries, err := os.ReadDir(archiveDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "backup_"))
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".zip"))
}

func TestArchiver_NamesSortChronologically(t *testing.T) {
	mirror := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(mirror, "f"), []byte("x"), 0o644))

	archiveDir := t.TempDir()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 12, 31, 23, 59, 58, 0, time.UTC))
	a := NewArchiver(archiveDir, clock)

	var created []string
	for i := 0; i < 3; i++ {
		path, err := a.Snapshot(context.Background(), mirror)
		require.NoError(t, err)
		created = append(created, filepath.Base(path))
		clock.Advance(time.Second) // crosses a day and a year boundary
	}

	sorted := append([]string{}, created...)
	sort.Strings(sorted)
	assert.Equal(t, created, sorted, "lexical order must equal creation order")
	assert.Equal(t, "backup_20250101_000000.zip", created[2])
}

func TestArchiver_SameSecondSnapshotsNeverOverwrite(t *testing.T) {
	mirror := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(mirror, "f"), []byte("first"), 0o644))

	archiveDir := t.TempDir()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 12, 30, 45, 0, time.UTC))
	a := NewArchiver(archiveDir, clock)

	first, err := a.Snapshot(context.Background(), mirror)
	require.NoError(t, err)
	firstBytes, err := os.ReadFile(first)
	require.NoError(t, err)

	// Mirror changes, clock does not.
	require.NoError(t, os.WriteFile(filepath.Join(mirror, "f"), []byte("second"), 0o644))

	second, err := a.Snapshot(context.Background(), mirror)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, "backup_20240301_123045.zip", filepath.Base(first))
	assert.Equal(t, "backup_20240301_123045_1.zip", filepath.Base(second))

	after, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, firstBytes, after, "existing snapshot must stay untouched")

	snaps, err := ListSnapshots(archiveDir)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, filepath.Base(second), snaps[0].Name, "suffixed name sorts as newer")
}

func TestListSnapshots_NewestFirstAndFiltered(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"backup_20240101_000000.zip",
		"backup_20240301_000000.zip",
		"backup_20240201_000000.zip",
		"other_file.zip",
		"backup_notes.txt",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	snaps, err := ListSnapshots(dir)
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	assert.Equal(t, "backup_20240301_000000.zip", snaps[0].Name)
	assert.Equal(t, "backup_20240201_000000.zip", snaps[1].Name)
	assert.Equal(t, "backup_20240101_000000.zip", snaps[2].Name)
}

func TestListSnapshots_MissingDir(t *testing.T) {
	snaps, err := ListSnapshots(filepath.Join(t.TempDir(), "none"))
	require.NoError(t, err)
	assert.Empty(t, snaps)
}
