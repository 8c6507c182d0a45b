package vault

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/openmined/sessionvault/internal/utils"
)

const (
	snapshotPrefix = "backup_"
	snapshotExt    = ".zip"
	// Second precision. Lexical order of snapshot names equals creation order.
	snapshotTimeFormat = "20060102_150405"
)

// Archiver produces immutable zip snapshots of the mirror directory.
// Snapshots are write-only artifacts: the engine never reads them back.
type Archiver struct {
	ArchiveDir string

	clock clockwork.Clock
}

func NewArchiver(archiveDir string, clock clockwork.Clock) *Archiver {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Archiver{ArchiveDir: archiveDir, clock: clock}
}

// Snapshot archives mirrorDir into a timestamp-named zip inside ArchiveDir
// and returns its path. The zip is built under a temporary name and renamed
// into place only after the write completes, so a crash mid-write never
// leaves a partial snapshot visible under its final name.
//
// A missing mirror means there is nothing to preserve yet (first sync);
// Snapshot returns an empty path and no error.
func (a *Archiver) Snapshot(ctx context.Context, mirrorDir string) (string, error) {
	if !utils.DirExists(mirrorDir) {
		return "", nil
	}

	if err := utils.EnsureDir(a.ArchiveDir); err != nil {
		return "", &ArchiveError{Path: a.ArchiveDir, Err: err}
	}

	stamp := a.clock.Now().Format(snapshotTimeFormat)
	finalPath := filepath.Join(a.ArchiveDir, snapshotPrefix+stamp+snapshotExt)
	// Snapshots are immutable once created. A second snapshot within the
	// same second gets a numeric suffix instead of replacing the first;
	// "_<n>" sorts after ".zip", so lexical order stays chronological.
	for n := 1; utils.FileExists(finalPath); n++ {
		finalPath = filepath.Join(a.ArchiveDir, fmt.Sprintf("%s%s_%d%s", snapshotPrefix, stamp, n, snapshotExt))
	}
	name := filepath.Base(finalPath)

	tmp, err := os.CreateTemp(a.ArchiveDir, "."+name+".tmp-*")
	if err != nil {
		return "", &ArchiveError{Path: a.ArchiveDir, Err: err}
	}
	tmpName := tmp.Name()

	if err := writeZip(ctx, tmp, mirrorDir); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", &ArchiveError{Path: finalPath, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", &ArchiveError{Path: finalPath, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", &ArchiveError{Path: finalPath, Err: err}
	}
	if err := os.Rename(tmpName, finalPath); err != nil {
		os.Remove(tmpName)
		return "", &ArchiveError{Path: finalPath, Err: err}
	}

	return finalPath, nil
}

// writeZip recursively archives root into w, preserving directory structure
// and file modes. Non-regular files are skipped.
func writeZip(ctx context.Context, w io.Writer, root string) error {
	zw := zip.NewWriter(w)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		hdr, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)

		if d.IsDir() {
			hdr.Name += "/"
			_, err := zw.CreateHeader(hdr)
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		hdr.Method = zip.Deflate
		dst, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}

		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()

		_, err = io.Copy(dst, src)
		return err
	})
	if err != nil {
		zw.Close()
		return err
	}

	return zw.Close()
}

// SnapshotInfo describes one snapshot file on disk.
type SnapshotInfo struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// ListSnapshots returns the snapshots in archiveDir, newest first. Files
// that don't match the backup_*.zip shape are ignored. A missing archive
// directory yields an empty list.
func ListSnapshots(archiveDir string) ([]SnapshotInfo, error) {
	entries, err := os.ReadDir(archiveDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []SnapshotInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), snapshotPrefix) || !strings.HasSuffix(e.Name(), snapshotExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		out = append(out, SnapshotInfo{
			Name:    e.Name(),
			Path:    filepath.Join(archiveDir, e.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	// names embed the creation time, so reverse lexical order is newest first
	slices.SortFunc(out, func(a, b SnapshotInfo) int { return strings.Compare(b.Name, a.Name) })
	return out, nil
}
