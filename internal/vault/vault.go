// Package vault implements the sync and archive engine: it mirrors a tree
// of externally pruned session folders into a backup root and takes an
// immutable snapshot of the mirror before every mutation.
//
// The load-bearing invariants are "snapshot precedes mutation" and "never
// delete from the mirror". Each Sync is a single linear pipeline: snapshot
// phase, copy phase, metadata commit phase; every phase is idempotent, so
// an interrupted run is simply retried by the next one.
package vault

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/openmined/sessionvault/internal/utils"
	"github.com/openmined/sessionvault/internal/workspace"
)

// stagingPrefix hides in-flight copies from the scanner; the dot prefix
// keeps them out of every classification pass.
const stagingPrefix = ".staging-"

// Vault composes the scanner, archiver and metadata store into the
// end-to-end sync operation against one backup root.
type Vault struct {
	ws     *workspace.Workspace
	source string
	mode   SignatureMode
	clock  clockwork.Clock

	store    *Store
	archiver *Archiver
	history  *History
}

type Option func(*Vault)

// WithSignatureMode overrides the default mtime+size change detection.
func WithSignatureMode(mode SignatureMode) Option {
	return func(v *Vault) { v.mode = mode }
}

// WithClock injects a clock, used by tests to control snapshot timestamps.
func WithClock(clock clockwork.Clock) Option {
	return func(v *Vault) { v.clock = clock }
}

// WithHistory attaches the run-history journal. Journal failures are logged
// and never fail a sync.
func WithHistory(h *History) Option {
	return func(v *Vault) { v.history = h }
}

func New(ws *workspace.Workspace, sourceDir string, opts ...Option) *Vault {
	v := &Vault{
		ws:     ws,
		source: sourceDir,
		mode:   SignModTimeSize,
		clock:  clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(v)
	}

	v.store = &Store{Path: ws.MetaPath}
	v.archiver = NewArchiver(ws.ArchiveDir, v.clock)
	return v
}

// Close releases the run-history journal, if attached.
func (v *Vault) Close() error {
	if v.history != nil {
		return v.history.Close()
	}
	return nil
}

func (v *Vault) scanner() *Scanner {
	return &Scanner{SourceDir: v.source, MirrorDir: v.ws.MirrorDir, Mode: v.mode}
}

// Summary reports the outcome of one Sync call.
type Summary struct {
	Archived    bool
	ArchivePath string

	Copied   int
	Skipped  int
	Failed   int
	Orphaned int

	// FailedSessions maps session name to its CopyError; those sessions keep
	// their old manifest signature and are retried next run.
	FailedSessions map[string]error

	OldestSession time.Time
}

// Sync runs the full pipeline.
//
// When archive is true the snapshot always lands before any copy into the
// mirror, so no snapshot ever contains folders copied during the same call;
// an ArchiveError aborts everything. Copies are best-effort per session.
// Metadata is committed strictly after the copy phase. A StoreError on the
// final commit is returned together with the summary: the file effects have
// already happened and the caller must know bookkeeping is behind.
func (v *Vault) Sync(ctx context.Context, archive bool) (*Summary, error) {
	started := v.clock.Now()

	meta, err := v.store.Load()
	if err != nil {
		return nil, err
	}

	summary := &Summary{FailedSessions: map[string]error{}}

	if archive {
		path, err := v.archiver.Snapshot(ctx, v.ws.MirrorDir)
		if err != nil {
			return nil, err
		}
		if path != "" {
			summary.Archived = true
			summary.ArchivePath = path
			slog.Info("snapshot created", "path", filepath.Base(path))
		} else {
			slog.Info("no mirror yet, skipping snapshot")
		}
	}

	scan, err := v.scanner().Scan(ctx, meta.Manifest)
	if err != nil {
		return nil, err
	}

	summary.Skipped = len(scan.Unchanged)
	summary.Orphaned = len(scan.Orphaned)

	pending := make([]Session, 0, len(scan.New)+len(scan.Changed))
	pending = append(pending, scan.New...)
	pending = append(pending, scan.Changed...)

	for _, sess := range pending {
		if err := v.copySession(sess); err != nil {
			slog.Error("session copy failed", "session", sess.Name, "error", err)
			summary.Failed++
			summary.FailedSessions[sess.Name] = err
			continue
		}
		meta.Manifest[sess.Name] = sess.Signature(v.mode)
		summary.Copied++
	}

	meta.LastSync = v.clock.Now()
	meta.ObserveSessions(scan.Sessions())
	summary.OldestSession = meta.OldestSession

	// The metadata commit comes strictly after the copy phase: a manifest
	// entry always refers to data already in the mirror.
	if err := v.store.Save(meta); err != nil {
		return summary, err
	}

	v.recordRun(ctx, started, summary)

	slog.Info("sync complete",
		"took", v.clock.Since(started),
		"archived", summary.Archived,
		"copied", summary.Copied,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
	)
	return summary, nil
}

// copySession replaces one mirror entry with a fresh copy of the source
// folder. The copy is staged next to the final location and swapped in via
// rename, so an interrupted copy never clobbers a good mirror entry.
func (v *Vault) copySession(sess Session) error {
	src := filepath.Join(v.source, sess.Name)
	dst := filepath.Join(v.ws.MirrorDir, sess.Name)
	staging := filepath.Join(v.ws.MirrorDir, stagingPrefix+sess.Name)

	if err := utils.EnsureDir(v.ws.MirrorDir); err != nil {
		return &CopyError{Session: sess.Name, Err: err}
	}
	if err := os.RemoveAll(staging); err != nil {
		return &CopyError{Session: sess.Name, Err: err}
	}
	if err := utils.CopyDir(src, staging); err != nil {
		os.RemoveAll(staging)
		return &CopyError{Session: sess.Name, Err: err}
	}
	if err := os.RemoveAll(dst); err != nil {
		os.RemoveAll(staging)
		return &CopyError{Session: sess.Name, Err: err}
	}
	if err := os.Rename(staging, dst); err != nil {
		os.RemoveAll(staging)
		return &CopyError{Session: sess.Name, Err: err}
	}
	return nil
}

func (v *Vault) recordRun(ctx context.Context, started time.Time, s *Summary) {
	if v.history == nil {
		return
	}
	rec := &RunRecord{
		StartedAt: started,
		Duration:  v.clock.Since(started),
		Archived:  s.Archived,
		Copied:    s.Copied,
		Skipped:   s.Skipped,
		Failed:    s.Failed,
	}
	if err := v.history.Append(ctx, rec); err != nil {
		slog.Warn("run history append failed", "error", err)
	}
}

// CheckResult is the read-only classification used to decide whether a full
// Sync is worth running.
type CheckResult struct {
	New       int
	Changed   int
	Unchanged int
	Orphaned  int

	// OldestSource is the minimum mod time among sessions currently in the
	// source; zero when the source is empty.
	OldestSource time.Time

	Meta *Metadata
}

// Pending reports whether a Sync would copy anything.
func (r *CheckResult) Pending() bool {
	return r.New > 0 || r.Changed > 0
}

// Check runs the scanner step only. It never mutates the mirror or the
// metadata record; repeated calls against unchanged state yield identical
// results.
func (v *Vault) Check(ctx context.Context) (*CheckResult, error) {
	scan, meta, err := v.classify(ctx)
	if err != nil {
		return nil, err
	}
	return newCheckResult(scan, meta), nil
}

func (v *Vault) classify(ctx context.Context) (*ScanResult, *Metadata, error) {
	meta, err := v.store.Load()
	if err != nil {
		return nil, nil, err
	}
	scan, err := v.scanner().Scan(ctx, meta.Manifest)
	if err != nil {
		return nil, nil, err
	}
	return scan, meta, nil
}

func newCheckResult(scan *ScanResult, meta *Metadata) *CheckResult {
	res := &CheckResult{
		New:       len(scan.New),
		Changed:   len(scan.Changed),
		Unchanged: len(scan.Unchanged),
		Orphaned:  len(scan.Orphaned),
		Meta:      meta,
	}
	for _, s := range scan.Sessions() {
		if res.OldestSource.IsZero() || s.ModTime.Before(res.OldestSource) {
			res.OldestSource = s.ModTime
		}
	}
	return res
}

// StatusReport combines the metadata record with a live classification pass
// and the snapshot inventory. Read-only.
type StatusReport struct {
	Check *CheckResult

	Sessions     int
	SourceSize   int64
	NewestSource time.Time

	Snapshots []SnapshotInfo
	History   []RunRecord
}

// Status gathers everything the status surface shows without mutating
// anything.
func (v *Vault) Status(ctx context.Context) (*StatusReport, error) {
	scan, meta, err := v.classify(ctx)
	if err != nil {
		return nil, err
	}

	rep := &StatusReport{Check: newCheckResult(scan, meta)}
	for _, s := range scan.Sessions() {
		rep.Sessions++
		rep.SourceSize += s.Size
		if s.ModTime.After(rep.NewestSource) {
			rep.NewestSource = s.ModTime
		}
	}

	snaps, err := ListSnapshots(v.ws.ArchiveDir)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	rep.Snapshots = snaps

	if v.history != nil {
		recent, err := v.history.Recent(ctx, 10)
		if err != nil {
			slog.Warn("run history read failed", "error", err)
		} else {
			rep.History = recent
		}
	}

	return rep, nil
}
