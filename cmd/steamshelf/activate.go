package main

import (
	"fmt"
	"os"

	"github.com/kestrelworks/steamshelf/internal/state"
	"github.com/kestrelworks/steamshelf/internal/versions"
)

// runActivate marks an installed version directory as the branch's active
// version.
func runActivate(args []string) error {
	branch, err := parseBranchArg(args)
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return fmt.Errorf("usage: steamshelf activate <branch> <version-dir>")
	}

	cfg, err := loadSettings()
	if err != nil {
		return err
	}

	id := versions.ParseDirName(args[1])
	path := versions.VersionPath(cfg.InstallRoot, branch, id)
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		return fmt.Errorf("version %s is not installed for %s", id.DirName(), branch)
	}

	statePath, err := state.DefaultStatePath()
	if err != nil {
		return err
	}
	if err := state.NewFileStore(statePath).SetActiveVersion(branch, id); err != nil {
		return err
	}

	fmt.Printf("activated %s on %s\n", id.DirName(), branch)
	return nil
}
