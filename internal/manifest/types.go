// Package manifest parses the platform's text keyvalues manifests
// (appmanifest_*.acf and friends) and extracts version identity from them.
//
// Two parse strategies exist: a structured keyvalues parser and a regex
// fallback that tolerates damaged input. ParseManifest tries them in order
// and stops at the first success; both are usable standalone and produce
// field-compatible records.
package manifest

import "errors"

// ErrNoManifest indicates that no usable manifest data was found. Callers
// treat this as "identity unknown", not as a hard failure.
var ErrNoManifest = errors.New("no usable manifest data")

// Depot is one entry of a manifest's InstalledDepots table.
type Depot struct {
	DepotID     string
	ManifestID  string
	SizeBytes   int64  // 0 when absent
	LastUpdated string // raw epoch string, empty when absent
}

// Record is the parsed view of one manifest. Depots preserves file order so
// "first depot" selection is deterministic.
type Record struct {
	BuildID     string
	Name        string
	StateFlags  string
	LastUpdated string
	BetaKey     string
	Depots      []Depot
}

// Empty reports whether the record carries no identity at all.
func (r *Record) Empty() bool {
	return r == nil || (r.BuildID == "" && r.Name == "" && r.StateFlags == "" &&
		r.LastUpdated == "" && r.BetaKey == "" && len(r.Depots) == 0)
}
