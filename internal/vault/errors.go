package vault

import "fmt"

// ScanError means the source or mirror tree could not be read. The sync
// cannot proceed safely and aborts.
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string { return fmt.Sprintf("scan %s: %v", e.Path, e.Err) }
func (e *ScanError) Unwrap() error { return e.Err }

// ArchiveError means building or publishing a snapshot failed. A failed
// snapshot aborts the sync so the mirror is never mutated unpreserved.
type ArchiveError struct {
	Path string
	Err  error
}

func (e *ArchiveError) Error() string { return fmt.Sprintf("archive %s: %v", e.Path, e.Err) }
func (e *ArchiveError) Unwrap() error { return e.Err }

// CopyError is a per-session copy failure. It is recorded in the summary
// and never aborts the rest of the batch.
type CopyError struct {
	Session string
	Err     error
}

func (e *CopyError) Error() string { return fmt.Sprintf("copy session %s: %v", e.Session, e.Err) }
func (e *CopyError) Unwrap() error { return e.Err }

// StoreError means the metadata record could not be read or durably
// written, including detected corruption on read.
type StoreError struct {
	Path string
	Err  error
}

func (e *StoreError) Error() string { return fmt.Sprintf("metadata %s: %v", e.Path, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }
