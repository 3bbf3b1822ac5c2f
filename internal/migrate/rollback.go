package migrate

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kestrelworks/steamshelf/internal/steamapp"
	"github.com/kestrelworks/steamshelf/internal/versions"
)

// Rollback is the best-effort inverse of migration: for every versioned
// directory, its contents move back to the branch root and the emptied
// directory is removed. Branches are processed independently, so one branch's
// failure does not stop the others; all errors accumulate in the returned
// slice.
func (e *Engine) Rollback() []error {
	var errs []error

	for _, branch := range steamapp.All {
		branchPath := versions.BranchPath(e.root, branch)
		entries, err := os.ReadDir(branchPath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			errs = append(errs, fmt.Errorf("read branch %s: %w", branch, err))
			continue
		}

		for _, entry := range entries {
			if !entry.IsDir() || !versions.IsVersionDirName(entry.Name()) {
				continue
			}
			versionPath := filepath.Join(branchPath, entry.Name())
			if !versions.ValidatePathWithinRoot(e.root, versionPath) {
				errs = append(errs, fmt.Errorf("%w: %s", ErrPathEscape, versionPath))
				continue
			}
			if err := e.rollbackVersionDir(branchPath, versionPath); err != nil {
				errs = append(errs, fmt.Errorf("branch %s: %w", branch, err))
			}
		}
	}

	return errs
}

// rollbackVersionDir moves every entry of one versioned directory up into the
// branch root, then removes the directory once it is empty.
func (e *Engine) rollbackVersionDir(branchPath, versionPath string) error {
	contents, err := os.ReadDir(versionPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(versionPath), err)
	}

	for _, item := range contents {
		src := filepath.Join(versionPath, item.Name())
		dst := filepath.Join(branchPath, item.Name())
		if err := os.Rename(src, dst); err != nil {
			return fmt.Errorf("move %s back: %w", item.Name(), err)
		}
	}

	if err := os.Remove(versionPath); err != nil {
		return fmt.Errorf("remove emptied %s: %w", filepath.Base(versionPath), err)
	}
	e.log.Info("rolled back version directory", "path", versionPath)
	return nil
}
