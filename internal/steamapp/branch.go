// Package steamapp holds the static identity of the managed application:
// its app id, depot layout, and the fixed set of distribution branches.
package steamapp

import "strings"

// DefaultAppID is the Steam app id of the managed application.
const DefaultAppID = "3164500"

// DefaultDepotPriority orders depot ids when selecting the primary depot
// of a manifest. Earlier entries win.
var DefaultDepotPriority = []string{"3164501", "3164500"}

// Branch is one of the fixed distribution channels of the application.
type Branch int

const (
	BranchMain Branch = iota
	BranchBeta
	BranchAlternate
	BranchAlternateBeta
)

// All lists every known branch in display order.
var All = []Branch{BranchMain, BranchBeta, BranchAlternate, BranchAlternateBeta}

// String returns the canonical branch name.
func (b Branch) String() string {
	switch b {
	case BranchMain:
		return "main"
	case BranchBeta:
		return "beta"
	case BranchAlternate:
		return "alternate"
	case BranchAlternateBeta:
		return "alternate-beta"
	default:
		return "unknown"
	}
}

// FolderName returns the on-disk folder name under <root>/branches.
func (b Branch) FolderName() string {
	return b.String()
}

// PlatformKey returns the branch key passed to the platform downloader.
// The main branch is the platform default and has an empty key: callers
// must omit the branch argument entirely when this is empty.
func (b Branch) PlatformKey() string {
	switch b {
	case BranchMain:
		return ""
	case BranchBeta:
		return "beta"
	case BranchAlternate:
		return "alternate"
	case BranchAlternateBeta:
		return "alternate-beta"
	default:
		return ""
	}
}

// branchKeys maps platform beta-key values (lowercased) to branches.
// "public" is the platform's name for the default branch.
var branchKeys = map[string]Branch{
	"":               BranchMain,
	"public":         BranchMain,
	"beta":           BranchBeta,
	"alternate":      BranchAlternate,
	"alternate-beta": BranchAlternateBeta,
}

// FromBetaKey maps a manifest beta-key value to a branch. The lookup is
// case-insensitive. Unknown or empty values map to the main branch; this
// silent fallback is load-bearing, since manifests written by older tool
// versions omit the field entirely.
func FromBetaKey(key string) Branch {
	if b, ok := branchKeys[strings.ToLower(strings.TrimSpace(key))]; ok {
		return b
	}
	return BranchMain
}

// FromName maps a canonical branch name (as printed by String) back to a
// branch. Returns BranchMain, false for names it does not recognize.
func FromName(name string) (Branch, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "main":
		return BranchMain, true
	case "beta":
		return BranchBeta, true
	case "alternate":
		return BranchAlternate, true
	case "alternate-beta":
		return BranchAlternateBeta, true
	default:
		return BranchMain, false
	}
}
