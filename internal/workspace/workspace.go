package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/openmined/sessionvault/internal/utils"
)

const (
	mirrorDir   = "mirror"
	archivesDir = "archives"
	dataDir     = ".data"
	lockFile    = "sessionvault.lock"
	metaFile    = ".sync_meta.json"
	historyFile = "history.db"
)

var ErrWorkspaceLocked = errors.New("backup root locked by another process")

// Workspace describes the on-disk layout of one backup root. The mirror
// holds the latest known copy of every session folder, the archives
// directory holds immutable snapshots, and .data holds bookkeeping.
type Workspace struct {
	Root        string
	MirrorDir   string
	ArchiveDir  string
	DataDir     string
	MetaPath    string
	HistoryPath string

	flock *flock.Flock
}

func New(rootDir string) (*Workspace, error) {
	root, err := utils.ResolvePath(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", rootDir, err)
	}

	return &Workspace{
		Root:        root,
		MirrorDir:   filepath.Join(root, mirrorDir),
		ArchiveDir:  filepath.Join(root, archivesDir),
		DataDir:     filepath.Join(root, dataDir),
		MetaPath:    filepath.Join(root, metaFile),
		HistoryPath: filepath.Join(root, dataDir, historyFile),
		flock:       flock.New(filepath.Join(root, dataDir, lockFile)),
	}, nil
}

// Setup creates the backup root skeleton. The mirror directory is left to
// the first copy phase so a brand-new root still reads as "first sync" and
// no empty snapshot gets taken.
func (w *Workspace) Setup() error {
	for _, dir := range []string{w.Root, w.ArchiveDir, w.DataDir} {
		if err := utils.EnsureDir(dir); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Lock takes the backup root's advisory lock so overlapping runs are
// detected and refused. The sync engine itself stays lock-free; callers
// serialize around it with this.
func (w *Workspace) Lock() error {
	if err := utils.EnsureDir(w.DataDir); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", w.DataDir, err)
	}

	locked, err := w.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock backup root: %w", err)
	}
	if !locked {
		return ErrWorkspaceLocked
	}

	return nil
}

func (w *Workspace) Unlock() error {
	// if this process never took the lock, leave the lock file alone
	if !w.flock.Locked() {
		return nil
	}

	if err := w.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock backup root: %w", err)
	}

	return os.Remove(w.flock.Path())
}
