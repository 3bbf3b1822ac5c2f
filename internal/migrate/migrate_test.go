package migrate

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kestrelworks/steamshelf/internal/state"
	"github.com/kestrelworks/steamshelf/internal/steamapp"
	"github.com/kestrelworks/steamshelf/internal/versions"
)

const testACF = `"AppState"
{
	"appid"		"3164500"
	"name"		"Example Product"
	"StateFlags"		"4"
	"buildid"		"18237454"
	"LastUpdated"		"1735689600"
	"InstalledDepots"
	{
		"3164501"
		{
			"manifest"		"abc123"
			"size"		"1024"
		}
	}
}
`

// writeLegacyBranch lays out a flat (pre-versioning) branch directory.
func writeLegacyBranch(t *testing.T, root string, branch steamapp.Branch, files map[string]string) string {
	t.Helper()
	branchPath := versions.BranchPath(root, branch)
	if err := os.MkdirAll(branchPath, 0755); err != nil {
		t.Fatal(err)
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(branchPath, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return branchPath
}

func newTestEngine(t *testing.T, root string) (*Engine, state.Store) {
	t.Helper()
	store := state.NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	return New(root, store, Options{JournalDir: filepath.Join(t.TempDir(), "journal")}), store
}

func TestDetectLegacyInstallations(t *testing.T) {
	root := t.TempDir()
	writeLegacyBranch(t, root, steamapp.BranchBeta, map[string]string{
		"appmanifest_3164500.acf": testACF,
		"game.dat":                "payload",
	})

	// Already migrated: version dir with a stray file must not re-qualify.
	mainPath := writeLegacyBranch(t, root, steamapp.BranchMain, map[string]string{"stray.txt": "x"})
	if err := os.MkdirAll(filepath.Join(mainPath, "build_99"), 0755); err != nil {
		t.Fatal(err)
	}

	e, _ := newTestEngine(t, root)
	found, err := e.DetectLegacyInstallations()
	if err != nil {
		t.Fatalf("DetectLegacyInstallations() error = %v", err)
	}

	if len(found) != 1 {
		t.Fatalf("found %d legacy installations, want 1: %+v", len(found), found)
	}
	inst := found[0]
	if inst.Branch != steamapp.BranchBeta {
		t.Errorf("Branch = %v, want beta", inst.Branch)
	}
	if !inst.VersionKnown {
		t.Error("VersionKnown = false, want true (appmanifest present)")
	}
	want := versions.Identifier{Value: "18237454", Kind: versions.KindBuild}
	if inst.Version != want {
		t.Errorf("Version = %+v, want %+v", inst.Version, want)
	}
}

func TestDetectLegacyUnknownVersion(t *testing.T) {
	root := t.TempDir()
	writeLegacyBranch(t, root, steamapp.BranchAlternate, map[string]string{"game.dat": "payload"})

	e, _ := newTestEngine(t, root)
	found, err := e.DetectLegacyInstallations()
	if err != nil {
		t.Fatalf("DetectLegacyInstallations() error = %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("found %d, want 1", len(found))
	}
	if found[0].VersionKnown {
		t.Error("VersionKnown = true without any manifest")
	}
	if found[0].Version.Value != UnknownVersion {
		t.Errorf("Version.Value = %q, want %q", found[0].Version.Value, UnknownVersion)
	}
}

func TestMigrateIsIdempotentViaDetection(t *testing.T) {
	root := t.TempDir()
	writeLegacyBranch(t, root, steamapp.BranchBeta, map[string]string{
		"appmanifest_3164500.acf": testACF,
		"game.dat":                "payload",
		"config.ini":              "[a]\nb=1\n",
	})

	e, store := newTestEngine(t, root)
	found, err := e.DetectLegacyInstallations()
	if err != nil || len(found) != 1 {
		t.Fatalf("detection: %v, %d found", err, len(found))
	}

	if err := e.Migrate(found[0]); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	// Every entry landed in the versioned directory.
	target := versions.VersionPath(root, steamapp.BranchBeta, found[0].Version)
	for _, name := range []string{"appmanifest_3164500.acf", "game.dat", "config.ini"} {
		if _, err := os.Stat(filepath.Join(target, name)); err != nil {
			t.Errorf("entry %s missing from version directory: %v", name, err)
		}
		if _, err := os.Stat(filepath.Join(found[0].Path, name)); !os.IsNotExist(err) {
			t.Errorf("entry %s still present at legacy path", name)
		}
	}

	// The branch no longer detects as legacy.
	again, err := e.DetectLegacyInstallations()
	if err != nil {
		t.Fatalf("re-detection error = %v", err)
	}
	if len(again) != 0 {
		t.Errorf("re-detection found %d installations after migration, want 0", len(again))
	}

	// The migrated version became active.
	active, err := store.GetActiveVersion(steamapp.BranchBeta)
	if err != nil {
		t.Fatal(err)
	}
	if active == nil || *active != found[0].Version {
		t.Errorf("active version = %+v, want %+v", active, found[0].Version)
	}

	// No incomplete journal remains.
	pending, err := e.IncompleteMigrations()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("%d incomplete journals after a clean migration", len(pending))
	}
}

func TestMigrateRefusesPathEscape(t *testing.T) {
	root := t.TempDir()
	e, _ := newTestEngine(t, root)

	err := e.Migrate(LegacyInstallation{
		Branch:  steamapp.BranchMain,
		Path:    filepath.Join(root, "..", "elsewhere"),
		Version: versions.Identifier{Value: "1", Kind: versions.KindBuild},
	})
	if !errors.Is(err, ErrPathEscape) {
		t.Errorf("err = %v, want ErrPathEscape", err)
	}
}

func TestMigrateRejectedWhileLockHeld(t *testing.T) {
	root := t.TempDir()
	writeLegacyBranch(t, root, steamapp.BranchBeta, map[string]string{"game.dat": "x"})

	journalDir := filepath.Join(t.TempDir(), "journal")
	e := New(root, nil, Options{JournalDir: journalDir})

	held, err := acquireLock(journalDir)
	if err != nil {
		t.Fatal(err)
	}
	defer held.release()

	err = e.Migrate(LegacyInstallation{
		Branch:  steamapp.BranchBeta,
		Path:    versions.BranchPath(root, steamapp.BranchBeta),
		Version: versions.Identifier{Value: UnknownVersion, Kind: versions.KindBuild},
	})
	if !errors.Is(err, ErrLockHeld) {
		t.Errorf("err = %v, want ErrLockHeld", err)
	}
}

func TestValidateMigrationFindings(t *testing.T) {
	root := t.TempDir()

	// Partial migration residue: a file still at the branch root plus an
	// empty versioned directory.
	betaPath := writeLegacyBranch(t, root, steamapp.BranchBeta, map[string]string{"leftover.dat": "x"})
	if err := os.MkdirAll(filepath.Join(betaPath, "build_123"), 0755); err != nil {
		t.Fatal(err)
	}

	// Healthy branch: populated version directory only.
	mainDir := filepath.Join(versions.BranchPath(root, steamapp.BranchMain), "manifest_abc")
	if err := os.MkdirAll(mainDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(mainDir, "game.dat"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	e, _ := newTestEngine(t, root)
	report, err := e.ValidateMigration()
	if err != nil {
		t.Fatalf("ValidateMigration() error = %v", err)
	}
	if report.Valid() {
		t.Fatal("report valid despite residue")
	}

	kinds := map[FindingKind]int{}
	for _, f := range report.Findings {
		kinds[f.Kind]++
		if f.Branch != steamapp.BranchBeta {
			t.Errorf("finding on branch %v, want all on beta: %+v", f.Branch, f)
		}
	}
	if kinds[FindingLegacyRemains] != 1 || kinds[FindingEmptyVersionDir] != 1 {
		t.Errorf("finding kinds = %v, want one of each", kinds)
	}
}

func TestValidateMigrationCleanRoot(t *testing.T) {
	e, _ := newTestEngine(t, t.TempDir())
	report, err := e.ValidateMigration()
	if err != nil {
		t.Fatalf("ValidateMigration() error = %v", err)
	}
	if !report.Valid() {
		t.Errorf("findings on an empty root: %+v", report.Findings)
	}
}

func TestRollback(t *testing.T) {
	root := t.TempDir()
	versionDir := filepath.Join(versions.BranchPath(root, steamapp.BranchBeta), "build_18237454")
	if err := os.MkdirAll(filepath.Join(versionDir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"game.dat", "sub/inner.dat"} {
		if err := os.WriteFile(filepath.Join(versionDir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	e, _ := newTestEngine(t, root)
	if errs := e.Rollback(); len(errs) != 0 {
		t.Fatalf("Rollback() errors = %v", errs)
	}

	branchPath := versions.BranchPath(root, steamapp.BranchBeta)
	if _, err := os.Stat(filepath.Join(branchPath, "game.dat")); err != nil {
		t.Errorf("game.dat not restored to branch root: %v", err)
	}
	if _, err := os.Stat(filepath.Join(branchPath, "sub", "inner.dat")); err != nil {
		t.Errorf("subdirectory not restored: %v", err)
	}
	if _, err := os.Stat(versionDir); !os.IsNotExist(err) {
		t.Error("emptied version directory was not removed")
	}
}

func TestRollbackAccumulatesErrorsAcrossBranches(t *testing.T) {
	root := t.TempDir()

	// A name collision makes the beta rollback fail: the branch root already
	// has a directory with the same name as one inside the version dir.
	betaPath := versions.BranchPath(root, steamapp.BranchBeta)
	if err := os.MkdirAll(filepath.Join(betaPath, "build_1", "clash"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(betaPath, "build_1", "clash", "f"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(betaPath, "clash", "other"), 0755); err != nil {
		t.Fatal(err)
	}

	// The alternate branch must still roll back.
	altDir := filepath.Join(versions.BranchPath(root, steamapp.BranchAlternate), "build_2")
	if err := os.MkdirAll(altDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(altDir, "game.dat"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	e, _ := newTestEngine(t, root)
	errs := e.Rollback()
	if len(errs) == 0 {
		t.Fatal("expected an error from the colliding beta rollback")
	}

	restored := filepath.Join(versions.BranchPath(root, steamapp.BranchAlternate), "game.dat")
	if _, err := os.Stat(restored); err != nil {
		t.Errorf("alternate branch not rolled back despite beta failure: %v", err)
	}
}
