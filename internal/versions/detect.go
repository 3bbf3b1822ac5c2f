package versions

import (
	"fmt"
	"os"
)

// DetectLegacyStructure reports whether branchPath is laid out in the old
// flat format: at least one regular file directly inside and no
// subdirectories at all. A branch holding both files and subdirectories, or
// only subdirectories, is not legacy.
func DetectLegacyStructure(branchPath string) (bool, error) {
	entries, err := os.ReadDir(branchPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read directory: %w", err)
	}

	hasFile := false
	for _, entry := range entries {
		if entry.IsDir() {
			return false, nil
		}
		if entry.Type().IsRegular() {
			hasFile = true
		}
	}

	return hasFile, nil
}

// HasVersionDir reports whether branchPath contains at least one
// build_/manifest_ subdirectory.
func HasVersionDir(branchPath string) (bool, error) {
	entries, err := os.ReadDir(branchPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() && IsVersionDirName(entry.Name()) {
			return true, nil
		}
	}
	return false, nil
}
