package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/openmined/sessionvault/internal/utils"
)

// SignatureMode selects which stat attributes make up a session's change
// signature. Content edits that leave both mtime and size untouched are a
// known blind spot of this scheme.
type SignatureMode int

const (
	// SignModTimeSize is the default: directory mtime plus aggregate size.
	SignModTimeSize SignatureMode = iota
	// SignModTime matches sessions on directory mtime only.
	SignModTime
)

// Session is one externally managed history folder, identified by its
// directory name. The engine only ever reads it.
type Session struct {
	Name    string
	ModTime time.Time
	Size    int64
}

// Signature derives the change signature recorded in the manifest.
func (s Session) Signature(mode SignatureMode) string {
	if mode == SignModTime {
		return strconv.FormatInt(s.ModTime.Unix(), 10)
	}
	return fmt.Sprintf("%d:%d", s.ModTime.Unix(), s.Size)
}

// statSession reads a session folder's modification time and aggregate size.
func statSession(dir, name string) (Session, error) {
	path := filepath.Join(dir, name)

	info, err := os.Stat(path)
	if err != nil {
		return Session{}, err
	}

	size, err := utils.DirSize(path)
	if err != nil {
		return Session{}, err
	}

	return Session{Name: name, ModTime: info.ModTime(), Size: size}, nil
}
