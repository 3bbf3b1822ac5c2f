package migrate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelworks/steamshelf/internal/steamapp"
)

// entryState tracks one entry's move through a migration.
type entryState string

const (
	entryPending entryState = "pending"
	entryMoved   entryState = "moved"
	entryFailed  entryState = "failed"
)

// journalEntry is the journaled state of one directory entry.
type journalEntry struct {
	Name      string     `json:"name"`
	State     entryState `json:"state"`
	LastError string     `json:"last_error,omitempty"`
}

// Journal is the on-disk record of one migration run. It is written before
// the first move and updated as entries land, so a crashed or failed
// migration leaves an inspectable trail of what moved and what did not.
type Journal struct {
	Version   int            `json:"version"`
	ID        string         `json:"id"`
	Branch    string         `json:"branch"`
	Target    string         `json:"target"`
	Timestamp time.Time      `json:"timestamp"`
	Completed bool           `json:"completed"`
	Entries   []journalEntry `json:"entries"`
}

func newJournal(branch steamapp.Branch, target string, names []string) *Journal {
	entries := make([]journalEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, journalEntry{Name: name, State: entryPending})
	}
	return &Journal{
		Version:   1,
		ID:        uuid.New().String(),
		Branch:    branch.String(),
		Target:    target,
		Timestamp: time.Now().UTC(),
		Entries:   entries,
	}
}

// mark updates the state of one entry.
func (j *Journal) mark(name string, state entryState, err error) {
	for i := range j.Entries {
		if j.Entries[i].Name != name {
			continue
		}
		j.Entries[i].State = state
		if err != nil {
			j.Entries[i].LastError = err.Error()
		} else {
			j.Entries[i].LastError = ""
		}
		return
	}
}

// Pending returns the names of entries that never moved, pending and failed
// alike.
func (j *Journal) Pending() []string {
	var names []string
	for _, entry := range j.Entries {
		if entry.State != entryMoved {
			names = append(names, entry.Name)
		}
	}
	return names
}

// save writes the journal atomically via a temp file and rename.
func (j *Journal) save(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create journal directory: %w", err)
	}

	data, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return fmt.Errorf("encode journal: %w", err)
	}

	final := filepath.Join(dir, fmt.Sprintf("migrate-%s-%s.json", j.Branch, j.ID))
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write journal temp file: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace journal file: %w", err)
	}
	return nil
}

// loadJournal reads one journal file.
func loadJournal(path string) (*Journal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	var j Journal
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse journal %s: %w", filepath.Base(path), err)
	}
	return &j, nil
}

// IncompleteMigrations loads every journal that never reached completion,
// oldest first. A non-empty result means a past migration failed or was
// interrupted partway.
func (e *Engine) IncompleteMigrations() ([]*Journal, error) {
	entries, err := os.ReadDir(e.journalDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read journal directory: %w", err)
	}

	var journals []*Journal
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "migrate-") || !strings.HasSuffix(name, ".json") {
			continue
		}
		j, err := loadJournal(filepath.Join(e.journalDir, name))
		if err != nil {
			return nil, err
		}
		if !j.Completed {
			journals = append(journals, j)
		}
	}

	sort.Slice(journals, func(i, k int) bool {
		return journals[i].Timestamp.Before(journals[k].Timestamp)
	})
	return journals, nil
}
