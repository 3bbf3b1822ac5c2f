// Package versions implements the on-disk layout for concurrently-installed
// application versions: <root>/branches/<branch>/<prefix><id>.
//
// Exactly one prefix style is used per version directory: build_<buildid> for
// versions identified by a platform build id, manifest_<manifestid> for
// versions identified by a depot manifest id. The two are never mixed.
package versions

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/kestrelworks/steamshelf/internal/steamapp"
)

// Kind tags a version identifier as a build id or a manifest id.
type Kind int

const (
	KindBuild Kind = iota
	KindManifest
)

const (
	buildPrefix    = "build_"
	manifestPrefix = "manifest_"

	// branchesDir is the directory under the install root that holds one
	// folder per branch.
	branchesDir = "branches"
)

// String returns the kind name used in state records.
func (k Kind) String() string {
	if k == KindManifest {
		return "manifest"
	}
	return "build"
}

// Prefix returns the directory-name prefix for this kind.
func (k Kind) Prefix() string {
	if k == KindManifest {
		return manifestPrefix
	}
	return buildPrefix
}

// KindFromString parses a kind name stored in state records.
func KindFromString(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "build":
		return KindBuild, nil
	case "manifest":
		return KindManifest, nil
	default:
		return KindBuild, fmt.Errorf("unknown version kind %q", s)
	}
}

// Identifier is a version identifier tagged with its kind.
type Identifier struct {
	Value string
	Kind  Kind
}

// DirName returns the directory name for this identifier.
func (id Identifier) DirName() string {
	return id.Kind.Prefix() + id.Value
}

// String implements fmt.Stringer.
func (id Identifier) String() string {
	return id.DirName()
}

// Info describes one installed version of a branch.
type Info struct {
	ID           Identifier
	DownloadDate time.Time
	SizeBytes    int64
	Path         string
	IsActive     bool
}

// BranchPath returns the directory that holds all versions of a branch.
func BranchPath(root string, branch steamapp.Branch) string {
	return filepath.Join(root, branchesDir, branch.FolderName())
}

// VersionPath returns the directory for one (branch, version) pair.
func VersionPath(root string, branch steamapp.Branch, id Identifier) string {
	return filepath.Join(BranchPath(root, branch), id.DirName())
}

// ParseDirName recovers an identifier from a version directory name.
// Unprefixed names are treated as legacy build ids, so directories written
// before the prefix convention still classify.
func ParseDirName(name string) Identifier {
	switch {
	case strings.HasPrefix(name, buildPrefix):
		return Identifier{Value: name[len(buildPrefix):], Kind: KindBuild}
	case strings.HasPrefix(name, manifestPrefix):
		return Identifier{Value: name[len(manifestPrefix):], Kind: KindManifest}
	default:
		return Identifier{Value: name, Kind: KindBuild}
	}
}

// IsVersionDirName reports whether name follows the versioned-directory
// naming convention.
func IsVersionDirName(name string) bool {
	return strings.HasPrefix(name, buildPrefix) || strings.HasPrefix(name, manifestPrefix)
}
