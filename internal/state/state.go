// Package state persists which version is active per branch, plus a record
// of every version ever finalized. The orchestrator and migration engine
// consume the Store interface; FileStore is the file-backed default.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"

	"github.com/kestrelworks/steamshelf/internal/steamapp"
	"github.com/kestrelworks/steamshelf/internal/versions"
)

// Store is the configuration-state contract consumed by the rest of the
// repository. At most one version per branch is active at a time; SetActive
// enforces the exclusivity.
type Store interface {
	GetActiveVersion(branch steamapp.Branch) (*versions.Identifier, error)
	SetActiveVersion(branch steamapp.Branch, id versions.Identifier) error
	RecordVersion(branch steamapp.Branch, info versions.Info) error
}

// versionRecord is the serialized form of one finalized version.
type versionRecord struct {
	Value        string    `json:"value"`
	Kind         string    `json:"kind"`
	DownloadDate time.Time `json:"download_date"`
	SizeBytes    int64     `json:"size_bytes"`
	Path         string    `json:"path"`
}

// branchRecord is the serialized per-branch state.
type branchRecord struct {
	Active   *versionRecord  `json:"active,omitempty"`
	Versions []versionRecord `json:"versions,omitempty"`
}

// stateFile is the on-disk schema.
type stateFile struct {
	Version  int                     `json:"version"`
	Branches map[string]branchRecord `json:"branches"`
}

// FileStore persists state as JSON with atomic replace-on-write.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// DefaultStatePath returns the XDG data location of the state file.
func DefaultStatePath() (string, error) {
	path, err := xdg.DataFile(filepath.Join("steamshelf", "state.json"))
	if err != nil {
		return "", fmt.Errorf("resolve state file path: %w", err)
	}
	return path, nil
}

// NewFileStore creates a store backed by the given file. The file is created
// lazily on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// GetActiveVersion returns the active version of a branch, or nil when the
// branch has none recorded.
func (s *FileStore) GetActiveVersion(branch steamapp.Branch) (*versions.Identifier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.readLocked()
	if err != nil {
		return nil, err
	}

	record, ok := file.Branches[branch.String()]
	if !ok || record.Active == nil {
		return nil, nil
	}

	kind, err := versions.KindFromString(record.Active.Kind)
	if err != nil {
		return nil, fmt.Errorf("state file for branch %s: %w", branch, err)
	}
	return &versions.Identifier{Value: record.Active.Value, Kind: kind}, nil
}

// SetActiveVersion makes id the single active version of a branch.
func (s *FileStore) SetActiveVersion(branch steamapp.Branch, id versions.Identifier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.readLocked()
	if err != nil {
		return err
	}

	record := file.Branches[branch.String()]
	record.Active = &versionRecord{Value: id.Value, Kind: id.Kind.String()}
	file.Branches[branch.String()] = record

	return s.writeLocked(file)
}

// RecordVersion appends or updates the history entry for a finalized
// version directory.
func (s *FileStore) RecordVersion(branch steamapp.Branch, info versions.Info) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.readLocked()
	if err != nil {
		return err
	}

	record := file.Branches[branch.String()]
	entry := versionRecord{
		Value:        info.ID.Value,
		Kind:         info.ID.Kind.String(),
		DownloadDate: info.DownloadDate,
		SizeBytes:    info.SizeBytes,
		Path:         info.Path,
	}

	updated := false
	for i := range record.Versions {
		if record.Versions[i].Value == entry.Value && record.Versions[i].Kind == entry.Kind {
			record.Versions[i] = entry
			updated = true
			break
		}
	}
	if !updated {
		record.Versions = append(record.Versions, entry)
	}
	file.Branches[branch.String()] = record

	return s.writeLocked(file)
}

func (s *FileStore) readLocked() (*stateFile, error) {
	file := &stateFile{Version: 1, Branches: map[string]branchRecord{}}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return file, nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	if err := json.Unmarshal(raw, file); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}
	if file.Branches == nil {
		file.Branches = map[string]branchRecord{}
	}
	return file, nil
}

// writeLocked writes via a temp file and rename so readers never observe a
// half-written state file.
func (s *FileStore) writeLocked(file *stateFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	raw, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return fmt.Errorf("write state temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
