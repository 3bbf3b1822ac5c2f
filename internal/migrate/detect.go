package migrate

import (
	"errors"
	"fmt"

	"github.com/kestrelworks/steamshelf/internal/manifest"
	"github.com/kestrelworks/steamshelf/internal/steamapp"
	"github.com/kestrelworks/steamshelf/internal/versions"
)

// DetectLegacyInstallations scans every branch directory for the old flat
// layout. A branch qualifies only when it has the legacy structure AND no
// versioned subdirectory: a stray legacy file next to an already-migrated
// version directory is not re-migrated.
//
// For qualifying branches the version identity is extracted from the
// downloader's manifest files or the appmanifest at the branch root. A branch
// whose identity cannot be determined is still reported, with the
// UnknownVersion placeholder, so the caller can migrate now and retry
// identification later.
func (e *Engine) DetectLegacyInstallations() ([]LegacyInstallation, error) {
	var found []LegacyInstallation

	for _, branch := range steamapp.All {
		branchPath := versions.BranchPath(e.root, branch)

		legacy, err := versions.DetectLegacyStructure(branchPath)
		if err != nil {
			return nil, fmt.Errorf("inspect branch %s: %w", branch, err)
		}
		if !legacy {
			continue
		}
		versioned, err := versions.HasVersionDir(branchPath)
		if err != nil {
			return nil, fmt.Errorf("inspect branch %s: %w", branch, err)
		}
		if versioned {
			continue
		}

		inst := LegacyInstallation{Branch: branch, Path: branchPath}
		id, err := manifest.ExtractInstalledVersion(branchPath, e.appID, e.priority)
		switch {
		case err == nil:
			inst.Version = id
			inst.VersionKnown = true
		case errors.Is(err, manifest.ErrNoManifest):
			inst.Version = versions.Identifier{Value: UnknownVersion, Kind: versions.KindBuild}
			e.log.Debug("legacy branch has no extractable identity", "branch", branch.String())
		default:
			return nil, fmt.Errorf("extract version for branch %s: %w", branch, err)
		}

		found = append(found, inst)
	}

	return found, nil
}
