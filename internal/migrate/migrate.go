// Package migrate rewrites legacy flat branch installations into the
// versioned directory layout. Detection, migration, validation, and rollback
// are separate operations: migration moves entries one by one and is not
// transactional, so callers re-run detection (or ValidateMigration) afterward
// to confirm completion. A journal on disk records per-entry move states so a
// partial migration can be inspected.
package migrate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kestrelworks/steamshelf/internal/logging"
	"github.com/kestrelworks/steamshelf/internal/state"
	"github.com/kestrelworks/steamshelf/internal/steamapp"
	"github.com/kestrelworks/steamshelf/internal/versions"
)

// ErrPathEscape means a computed path resolved outside the install root. The
// operation is refused before any filesystem mutation.
var ErrPathEscape = errors.New("path escapes install root")

// UnknownVersion is the placeholder identifier used when a legacy
// installation carries no extractable version identity. The branch is still
// migrated; a later manifest-only download can rename the directory once the
// real identity is known.
const UnknownVersion = "unknown"

// LegacyInstallation is one detected flat-layout branch. It is a transient
// detection result, never persisted.
type LegacyInstallation struct {
	Branch steamapp.Branch
	Path   string

	// Version identifies the install when extraction succeeded; otherwise it
	// carries the UnknownVersion placeholder and VersionKnown is false.
	Version      versions.Identifier
	VersionKnown bool
}

// Engine runs migrations over one install root.
type Engine struct {
	root       string
	store      state.Store
	log        logging.Logger
	appID      string
	priority   []string
	journalDir string
}

// Options configures an Engine. Zero values select the managed application's
// defaults and a journal directory inside the install root.
type Options struct {
	Logger        logging.Logger
	AppID         string
	DepotPriority []string
	JournalDir    string
}

// New creates a migration engine for the given install root. store may be nil
// when no active-version bookkeeping is wanted (validation and rollback only).
func New(root string, store state.Store, opts Options) *Engine {
	e := &Engine{
		root:       root,
		store:      store,
		log:        logging.OrNoop(opts.Logger),
		appID:      opts.AppID,
		priority:   opts.DepotPriority,
		journalDir: opts.JournalDir,
	}
	if e.appID == "" {
		e.appID = steamapp.DefaultAppID
	}
	if len(e.priority) == 0 {
		e.priority = steamapp.DefaultDepotPriority
	}
	if e.journalDir == "" {
		e.journalDir = filepath.Join(root, ".steamshelf")
	}
	return e
}

// Migrate moves every entry of a legacy branch directory into a new versioned
// subdirectory and records the result as the branch's active version.
//
// The move is per-entry and not transactional: a failure partway leaves some
// entries moved and some not. The journal records which; re-running detection
// afterward reports whether the branch still qualifies as legacy.
func (e *Engine) Migrate(inst LegacyInstallation) error {
	lck, err := acquireLock(e.journalDir)
	if err != nil {
		return err
	}
	defer lck.release()

	target := versions.VersionPath(e.root, inst.Branch, inst.Version)
	if !versions.ValidatePathWithinRoot(e.root, inst.Path) {
		return fmt.Errorf("%w: legacy path %s", ErrPathEscape, inst.Path)
	}
	if !versions.ValidatePathWithinRoot(e.root, target) {
		return fmt.Errorf("%w: target %s", ErrPathEscape, target)
	}

	entries, err := os.ReadDir(inst.Path)
	if err != nil {
		return fmt.Errorf("read legacy directory: %w", err)
	}

	// The target is a subdirectory of the legacy path; it must never be
	// moved into itself.
	targetName := inst.Version.DirName()
	var names []string
	for _, entry := range entries {
		if entry.Name() == targetName {
			continue
		}
		names = append(names, entry.Name())
	}

	jnl := newJournal(inst.Branch, target, names)
	if err := jnl.save(e.journalDir); err != nil {
		return err
	}

	if err := os.MkdirAll(target, 0755); err != nil {
		return fmt.Errorf("create version directory: %w", err)
	}

	e.log.Info("migrating legacy installation",
		"branch", inst.Branch.String(), "target", target, "entries", len(names))

	for _, name := range names {
		src := filepath.Join(inst.Path, name)
		dst := filepath.Join(target, name)
		if err := os.Rename(src, dst); err != nil {
			jnl.mark(name, entryFailed, err)
			if saveErr := jnl.save(e.journalDir); saveErr != nil {
				e.log.Warn("journal update failed", "error", saveErr)
			}
			return fmt.Errorf("move %s: %w", name, err)
		}
		jnl.mark(name, entryMoved, nil)
	}

	jnl.Completed = true
	if err := jnl.save(e.journalDir); err != nil {
		return err
	}

	if e.store != nil {
		if err := e.recordMigrated(inst.Branch, inst.Version, target); err != nil {
			return err
		}
	}
	return nil
}

// recordMigrated registers the freshly created version directory with the
// state collaborator and makes it the branch's active version.
func (e *Engine) recordMigrated(branch steamapp.Branch, id versions.Identifier, target string) error {
	info := versions.Info{
		ID:           id,
		DownloadDate: time.Now(),
		Path:         target,
	}
	if infos, err := versions.List(e.root, branch, nil); err == nil {
		for _, candidate := range infos {
			if candidate.ID == id {
				info = candidate
				break
			}
		}
	}

	if err := e.store.RecordVersion(branch, info); err != nil {
		return fmt.Errorf("record migrated version: %w", err)
	}
	if err := e.store.SetActiveVersion(branch, id); err != nil {
		return fmt.Errorf("activate migrated version: %w", err)
	}
	return nil
}
