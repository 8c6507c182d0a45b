package vault

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/openmined/sessionvault/internal/utils"
)

// Metadata is the durable record of retention state. The manifest is a
// superset of the mirror's entries at all times: a signature is recorded
// only after the session's data has been durably copied.
type Metadata struct {
	LastSync      time.Time         `json:"last_sync"`
	OldestSession time.Time         `json:"last_sync_oldest"`
	Manifest      map[string]string `json:"manifest"`
}

// ObserveSessions folds the sessions seen by the current sync into
// OldestSession. The field only ever moves backward in time; sessions
// pruned upstream cannot advance it.
func (m *Metadata) ObserveSessions(sessions []Session) {
	for _, s := range sessions {
		if m.OldestSession.IsZero() || s.ModTime.Before(m.OldestSession) {
			m.OldestSession = s.ModTime
		}
	}
}

// Store persists the Metadata record as a JSON document inside the backup
// root.
type Store struct {
	Path string
}

// Load returns the current record, or a zero-value record when none exists
// yet (first sync). A record that cannot be parsed signals corruption and
// is surfaced as a StoreError rather than silently reset.
func (s *Store) Load() (*Metadata, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Metadata{Manifest: map[string]string{}}, nil
		}
		return nil, &StoreError{Path: s.Path, Err: err}
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, &StoreError{Path: s.Path, Err: fmt.Errorf("malformed record: %w", err)}
	}
	if meta.Manifest == nil {
		meta.Manifest = map[string]string{}
	}

	return &meta, nil
}

// Save durably replaces the record, using the same temp-file-then-rename
// technique as the Archiver so a crash never leaves a partial record.
func (s *Store) Save(meta *Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return &StoreError{Path: s.Path, Err: err}
	}

	if err := utils.WriteFileAtomic(s.Path, data, 0o644); err != nil {
		return &StoreError{Path: s.Path, Err: err}
	}
	return nil
}
