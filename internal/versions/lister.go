package versions

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/kestrelworks/steamshelf/internal/steamapp"
)

// List enumerates the installed versions of a branch, newest first.
//
// Each immediate subdirectory of the branch folder is classified by its name
// prefix (unprefixed names count as legacy build ids), stamped with its
// modification time, and sized by walking its contents. active, when non-nil,
// marks the matching entry as the active version.
//
// A missing branch directory is not an error; it lists as empty.
func List(root string, branch steamapp.Branch, active *Identifier) ([]Info, error) {
	branchPath := BranchPath(root, branch)

	entries, err := os.ReadDir(branchPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read branch directory: %w", err)
	}

	var infos []Info
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		id := ParseDirName(entry.Name())
		path := filepath.Join(branchPath, entry.Name())

		fi, err := entry.Info()
		if err != nil {
			// Directory vanished mid-enumeration (e.g. a migration is
			// running); skip rather than fail the whole listing.
			continue
		}

		size, err := dirSize(path)
		if err != nil {
			return nil, fmt.Errorf("size version directory %s: %w", entry.Name(), err)
		}

		infos = append(infos, Info{
			ID:           id,
			DownloadDate: fi.ModTime(),
			SizeBytes:    size,
			Path:         path,
			IsActive:     active != nil && *active == id,
		})
	}

	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].DownloadDate.After(infos[j].DownloadDate)
	})

	return infos, nil
}

// dirSize sums the sizes of all regular files under path.
func dirSize(path string) (int64, error) {
	var total int64
	err := filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			fi, err := d.Info()
			if err != nil {
				return err
			}
			total += fi.Size()
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}
