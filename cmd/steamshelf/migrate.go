package main

import (
	"fmt"
	"os"

	"github.com/kestrelworks/steamshelf/internal/migrate"
	"github.com/kestrelworks/steamshelf/internal/state"
)

// runMigrate drives the legacy-migration engine: the bare command migrates,
// `validate` scans for residue, `rollback` undoes the versioned layout.
func runMigrate(args []string) error {
	if len(args) > 0 {
		switch args[0] {
		case "--help", "-h":
			printMigrateHelp()
			return nil
		case "validate":
			return runMigrateValidate()
		case "rollback":
			return runMigrateRollback()
		default:
			return fmt.Errorf("unknown migrate action %q", args[0])
		}
	}

	engine, err := newEngine(true)
	if err != nil {
		return err
	}

	found, err := engine.DetectLegacyInstallations()
	if err != nil {
		return err
	}
	if len(found) == 0 {
		fmt.Println("no legacy installations found")
		return nil
	}

	for _, inst := range found {
		label := inst.Version.DirName()
		if !inst.VersionKnown {
			label = "unidentified version"
		}
		fmt.Printf("migrating %s (%s)...\n", inst.Branch, label)
		if err := engine.Migrate(inst); err != nil {
			return fmt.Errorf("migrate %s: %w", inst.Branch, err)
		}
	}

	// Migration is not transactional; confirm via a fresh scan.
	remaining, err := engine.DetectLegacyInstallations()
	if err != nil {
		return err
	}
	if len(remaining) != 0 {
		return fmt.Errorf("%d branch(es) still legacy after migration; run 'steamshelf migrate validate'", len(remaining))
	}
	fmt.Println("migration complete")
	return nil
}

func runMigrateValidate() error {
	engine, err := newEngine(false)
	if err != nil {
		return err
	}

	report, err := engine.ValidateMigration()
	if err != nil {
		return err
	}
	incomplete, err := engine.IncompleteMigrations()
	if err != nil {
		return err
	}

	if report.Valid() && len(incomplete) == 0 {
		fmt.Println("no migration residue found")
		return nil
	}
	for _, finding := range report.Findings {
		fmt.Println(finding)
	}
	for _, jnl := range incomplete {
		fmt.Printf("incomplete migration journal: branch %s, %d entr(ies) not moved\n",
			jnl.Branch, len(jnl.Pending()))
	}
	return fmt.Errorf("migration residue detected")
}

func runMigrateRollback() error {
	engine, err := newEngine(false)
	if err != nil {
		return err
	}

	errs := engine.Rollback()
	for _, err := range errs {
		fmt.Fprintln(os.Stderr, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("rollback finished with %d error(s)", len(errs))
	}
	fmt.Println("rollback complete")
	return nil
}

// newEngine builds the migration engine; withStore wires active-version
// bookkeeping, which only the migrate action itself needs.
func newEngine(withStore bool) (*migrate.Engine, error) {
	cfg, err := loadSettings()
	if err != nil {
		return nil, err
	}

	var store state.Store
	if withStore {
		statePath, err := state.DefaultStatePath()
		if err != nil {
			return nil, err
		}
		store = state.NewFileStore(statePath)
	}

	return migrate.New(cfg.InstallRoot, store, migrate.Options{
		AppID:         cfg.AppID,
		DepotPriority: cfg.DepotPriority,
	}), nil
}

func printMigrateHelp() {
	fmt.Println("Usage: steamshelf migrate [validate|rollback]")
	fmt.Println()
	fmt.Println("  (no action)  Detect legacy flat installs and migrate them")
	fmt.Println("  validate     Scan for leftover legacy files and empty version dirs")
	fmt.Println("  rollback     Move versioned content back to flat branch directories")
}
