package vault

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeSession creates a session folder with one content file and pins the
// folder's mtime.
func makeSession(t *testing.T, dir, name string, mtime time.Time) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(path, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(path, "history.jsonl"), []byte(name+" data"), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func sessionNames(sessions []Session) []string {
	names := make([]string, len(sessions))
	for i, s := range sessions {
		names[i] = s.Name
	}
	return names
}

func TestScanner_MissingMirrorIsFirstSync(t *testing.T) {
	source := t.TempDir()
	mirror := filepath.Join(t.TempDir(), "mirror") // never created

	now := time.Now()
	makeSession(t, source, "proj-b", now)
	makeSession(t, source, "proj-a", now)

	s := &Scanner{SourceDir: source, MirrorDir: mirror}
	result, err := s.Scan(context.Background(), map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, []string{"proj-a", "proj-b"}, sessionNames(result.New))
	assert.Empty(t, result.Changed)
	assert.Empty(t, result.Unchanged)
	assert.Empty(t, result.Orphaned)
	assert.True(t, result.Pending())
}

func TestScanner_MissingSourceIsFatal(t *testing.T) {
	s := &Scanner{
		SourceDir: filepath.Join(t.TempDir(), "gone"),
		MirrorDir: t.TempDir(),
	}

	_, err := s.Scan(context.Background(), nil)
	var scanErr *ScanError
	require.ErrorAs(t, err, &scanErr)
	assert.Equal(t, s.SourceDir, scanErr.Path)
}

func TestScanner_ClassifiesAgainstManifest(t *testing.T) {
	source := t.TempDir()
	mirror := t.TempDir()

	t1 := time.Now().Add(-48 * time.Hour)
	t2 := time.Now().Add(-24 * time.Hour)

	makeSession(t, source, "same", t1)
	makeSession(t, source, "moved", t2)
	makeSession(t, source, "fresh", t2)
	makeSession(t, mirror, "same", t1)
	makeSession(t, mirror, "moved", t1)

	sameSig, err := statSession(source, "same")
	require.NoError(t, err)
	manifest := map[string]string{
		"same":  sameSig.Signature(SignModTimeSize),
		"moved": "stale-signature",
	}

	s := &Scanner{SourceDir: source, MirrorDir: mirror}
	result, err := s.Scan(context.Background(), manifest)
	require.NoError(t, err)

	assert.Equal(t, []string{"fresh"}, sessionNames(result.New))
	assert.Equal(t, []string{"moved"}, sessionNames(result.Changed))
	assert.Equal(t, []string{"same"}, sessionNames(result.Unchanged))
}

func TestScanner_MirrorWithoutManifestEntryIsChanged(t *testing.T) {
	// An interrupted run copies into the mirror but never commits metadata;
	// the next scan must reclassify the folder so the copy is retried.
	source := t.TempDir()
	mirror := t.TempDir()

	now := time.Now()
	makeSession(t, source, "interrupted", now)
	makeSession(t, mirror, "interrupted", now)

	s := &Scanner{SourceDir: source, MirrorDir: mirror}
	result, err := s.Scan(context.Background(), map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, []string{"interrupted"}, sessionNames(result.Changed))
}

func TestScanner_OrphansReportedNotTouched(t *testing.T) {
	source := t.TempDir()
	mirror := t.TempDir()

	now := time.Now()
	makeSession(t, source, "alive", now)
	makeSession(t, mirror, "alive", now)
	makeSession(t, mirror, "pruned-upstream", now)

	s := &Scanner{SourceDir: source, MirrorDir: mirror}
	result, err := s.Scan(context.Background(), map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, []string{"pruned-upstream"}, result.Orphaned)
	assert.DirExists(t, filepath.Join(mirror, "pruned-upstream"))
}

func TestScanner_IgnoresFilesAndDotEntries(t *testing.T) {
	source := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(source, "stray.json"), []byte("{}"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(source, ".hidden"), 0o755))
	makeSession(t, source, "real", time.Now())

	s := &Scanner{SourceDir: source, MirrorDir: filepath.Join(t.TempDir(), "mirror")}
	result, err := s.Scan(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"real"}, sessionNames(result.New))
}

func TestScanner_SignatureModeModTimeIgnoresSize(t *testing.T) {
	source := t.TempDir()
	mirror := t.TempDir()

	mtime := time.Now().Add(-time.Hour)
	makeSession(t, source, "sess", mtime)
	makeSession(t, mirror, "sess", mtime)

	sess, err := statSession(source, "sess")
	require.NoError(t, err)
	manifest := map[string]string{"sess": sess.Signature(SignModTime)}

	// Grow the content but keep the folder mtime pinned.
	require.NoError(t, os.WriteFile(filepath.Join(source, "sess", "extra.jsonl"), []byte("more"), 0o644))
	require.NoError(t, os.Chtimes(filepath.Join(source, "sess"), mtime, mtime))

	mtimeOnly := &Scanner{SourceDir: source, MirrorDir: mirror, Mode: SignModTime}
	result, err := mtimeOnly.Scan(context.Background(), manifest)
	require.NoError(t, err)
	assert.Equal(t, []string{"sess"}, sessionNames(result.Unchanged), "mtime-only mode should miss the size change")
}

func TestScanner_CancelledContext(t *testing.T) {
	source := t.TempDir()
	makeSession(t, source, "sess", time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &Scanner{SourceDir: source, MirrorDir: t.TempDir()}
	_, err := s.Scan(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
