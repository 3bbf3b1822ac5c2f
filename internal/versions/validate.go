package versions

import (
	"path/filepath"
	"strings"
)

// ValidatePathWithinRoot reports whether candidate resolves to root itself or
// a descendant of root. Every destructive filesystem operation in this
// repository calls this first; a false return means the operation must be
// refused before anything is touched.
//
// Both paths are made absolute and cleaned, so "../" segments in candidate
// cannot escape. Symlinks are deliberately not resolved: the check guards
// against path construction mistakes, and resolving links would make the
// answer depend on filesystem state at check time.
func ValidatePathWithinRoot(root, candidate string) bool {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	absCandidate, err := filepath.Abs(candidate)
	if err != nil {
		return false
	}

	absRoot = filepath.Clean(absRoot)
	absCandidate = filepath.Clean(absCandidate)

	if absCandidate == absRoot {
		return true
	}
	return strings.HasPrefix(absCandidate, absRoot+string(filepath.Separator))
}
