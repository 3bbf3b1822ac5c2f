package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kestrelworks/steamshelf/internal/versions"
)

// hiddenDirName is the tool-specific subdirectory the downloader leaves
// inside every target directory.
const hiddenDirName = ".DepotDownloader"

// InstalledDepotFiles reads the downloader's hidden directory inside
// installDir and returns one Depot per manifest file found there. Files are
// named <depotid>_<manifestid>.manifest; a bare <depotid>.manifest (older
// tool versions) yields a depot with an empty manifest id. Results are
// sorted by filename so selection is deterministic.
func InstalledDepotFiles(installDir string) ([]Depot, error) {
	dir := filepath.Join(installDir, hiddenDirName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: no %s directory", ErrNoManifest, hiddenDirName)
		}
		return nil, fmt.Errorf("read %s: %w", hiddenDirName, err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".manifest") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var depots []Depot
	for _, name := range names {
		base := strings.TrimSuffix(name, ".manifest")
		depotID, manifestID, _ := strings.Cut(base, "_")
		if depotID == "" {
			continue
		}
		depots = append(depots, Depot{DepotID: depotID, ManifestID: manifestID})
	}

	if len(depots) == 0 {
		return nil, fmt.Errorf("%w: no manifest files in %s", ErrNoManifest, hiddenDirName)
	}
	return depots, nil
}

// ExtractInstalledVersion determines the version identity of an install
// directory. The downloader's hidden per-depot manifest files are preferred
// (kind manifest); the legacy appmanifest_<appid>.acf at the directory root
// is the fallback, yielding the build id when present or the primary depot's
// manifest id otherwise.
//
// Returns ErrNoManifest (wrapped) when the directory carries no identity;
// callers treat that as "unknown", not as a failure.
func ExtractInstalledVersion(installDir, appID string, priority []string) (versions.Identifier, error) {
	if depots, err := InstalledDepotFiles(installDir); err == nil {
		record := &Record{Depots: depots}
		if id, ok := PrimaryManifestID(record, priority); ok {
			return versions.Identifier{Value: id, Kind: versions.KindManifest}, nil
		}
	}

	acfPath := filepath.Join(installDir, "appmanifest_"+appID+".acf")
	raw, err := os.ReadFile(acfPath)
	if err != nil {
		if os.IsNotExist(err) {
			return versions.Identifier{}, fmt.Errorf("%w: no appmanifest for app %s", ErrNoManifest, appID)
		}
		return versions.Identifier{}, fmt.Errorf("read appmanifest: %w", err)
	}

	record, err := ParseManifest(string(raw))
	if err != nil {
		return versions.Identifier{}, err
	}

	if record.BuildID != "" {
		return versions.Identifier{Value: record.BuildID, Kind: versions.KindBuild}, nil
	}
	if id, ok := PrimaryManifestID(record, priority); ok {
		return versions.Identifier{Value: id, Kind: versions.KindManifest}, nil
	}
	return versions.Identifier{}, fmt.Errorf("%w: appmanifest has no build or depot identity", ErrNoManifest)
}
