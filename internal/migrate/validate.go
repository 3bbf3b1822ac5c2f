package migrate

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kestrelworks/steamshelf/internal/steamapp"
	"github.com/kestrelworks/steamshelf/internal/versions"
)

// FindingKind classifies one validation problem.
type FindingKind string

const (
	// FindingLegacyRemains means a branch directory still holds regular
	// files directly, either a never-migrated install or leftovers from a
	// partial migration.
	FindingLegacyRemains FindingKind = "legacy-structure-remains"
	// FindingEmptyVersionDir means a versioned directory exists but holds
	// nothing, the usual sign of a move that failed before any entry landed.
	FindingEmptyVersionDir FindingKind = "empty-version-directory"
)

// Finding is one validation problem. The two kinds are reported separately,
// never merged into one message.
type Finding struct {
	Kind   FindingKind
	Branch steamapp.Branch
	Path   string
	Detail string
}

// String formats the finding for user display.
func (f Finding) String() string {
	return fmt.Sprintf("[%s] branch %s: %s (%s)", f.Kind, f.Branch, f.Detail, f.Path)
}

// Report is the outcome of ValidateMigration.
type Report struct {
	Findings []Finding
}

// Valid reports whether the scan found nothing wrong.
func (r *Report) Valid() bool {
	return len(r.Findings) == 0
}

// ValidateMigration re-scans the install root for migration residue:
// branches still holding files directly (legacy or partially-moved) and
// versioned directories left empty by a failed move.
func (e *Engine) ValidateMigration() (*Report, error) {
	report := &Report{}

	for _, branch := range steamapp.All {
		branchPath := versions.BranchPath(e.root, branch)
		entries, err := os.ReadDir(branchPath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read branch %s: %w", branch, err)
		}

		fileCount := 0
		for _, entry := range entries {
			if entry.Type().IsRegular() {
				fileCount++
				continue
			}
			if !entry.IsDir() || !versions.IsVersionDirName(entry.Name()) {
				continue
			}

			versionPath := filepath.Join(branchPath, entry.Name())
			contents, err := os.ReadDir(versionPath)
			if err != nil {
				return nil, fmt.Errorf("read version directory %s: %w", entry.Name(), err)
			}
			if len(contents) == 0 {
				report.Findings = append(report.Findings, Finding{
					Kind:   FindingEmptyVersionDir,
					Branch: branch,
					Path:   versionPath,
					Detail: fmt.Sprintf("version directory %s is empty", entry.Name()),
				})
			}
		}

		if fileCount > 0 {
			report.Findings = append(report.Findings, Finding{
				Kind:   FindingLegacyRemains,
				Branch: branch,
				Path:   branchPath,
				Detail: fmt.Sprintf("%d file(s) remain directly in the branch directory", fileCount),
			})
		}
	}

	return report, nil
}
