package vault

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
)

// Scanner classifies source session folders against the mirror and the
// manifest of last-seen signatures. It never writes anything.
type Scanner struct {
	SourceDir string
	MirrorDir string
	Mode      SignatureMode
}

// ScanResult is the ordered classification of one scan pass. Slices are
// sorted by session name. Orphaned entries exist only in the mirror and are
// deliberately left alone: upstream pruning must never shrink the backup.
type ScanResult struct {
	New       []Session
	Changed   []Session
	Unchanged []Session
	Orphaned  []string
}

// Pending reports whether a Sync would copy anything.
func (r *ScanResult) Pending() bool {
	return len(r.New) > 0 || len(r.Changed) > 0
}

// Sessions returns every session currently present in the source.
func (r *ScanResult) Sessions() []Session {
	out := make([]Session, 0, len(r.New)+len(r.Changed)+len(r.Unchanged))
	out = append(out, r.New...)
	out = append(out, r.Changed...)
	out = append(out, r.Unchanged...)
	return out
}

// Scan walks the source tree and classifies every session folder.
//
// A folder with no mirror entry is New. A folder whose manifest signature
// matches its current one is Unchanged. Everything else is Changed --
// including folders present in the mirror but missing from the manifest,
// so a copy interrupted before the metadata commit is retried next run.
//
// A missing source directory is fatal (nothing to back up). A missing
// mirror directory means first sync: every source folder is New.
func (s *Scanner) Scan(ctx context.Context, manifest map[string]string) (*ScanResult, error) {
	entries, err := os.ReadDir(s.SourceDir)
	if err != nil {
		return nil, &ScanError{Path: s.SourceDir, Err: err}
	}

	mirrorNames, err := dirNames(s.MirrorDir)
	if err != nil {
		return nil, &ScanError{Path: s.MirrorDir, Err: err}
	}

	result := &ScanResult{}
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		sess, err := statSession(s.SourceDir, entry.Name())
		if err != nil {
			return nil, &ScanError{Path: filepath.Join(s.SourceDir, entry.Name()), Err: err}
		}

		_, inMirror := mirrorNames[sess.Name]
		delete(mirrorNames, sess.Name)

		switch {
		case !inMirror:
			result.New = append(result.New, sess)
		case manifest[sess.Name] == sess.Signature(s.Mode):
			result.Unchanged = append(result.Unchanged, sess)
		default:
			result.Changed = append(result.Changed, sess)
		}
	}

	for name := range mirrorNames {
		result.Orphaned = append(result.Orphaned, name)
	}

	byName := func(a, b Session) int { return strings.Compare(a.Name, b.Name) }
	slices.SortFunc(result.New, byName)
	slices.SortFunc(result.Changed, byName)
	slices.SortFunc(result.Unchanged, byName)
	sort.Strings(result.Orphaned)

	return result, nil
}

// dirNames lists the session directories inside dir. A missing dir yields
// an empty set, which is how a first sync presents itself.
func dirNames(dir string) (map[string]struct{}, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]struct{}{}, nil
		}
		return nil, err
	}

	names := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names[e.Name()] = struct{}{}
		}
	}
	return names, nil
}
