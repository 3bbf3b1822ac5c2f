package main

import (
	"fmt"

	"github.com/kestrelworks/steamshelf/internal/state"
	"github.com/kestrelworks/steamshelf/internal/versions"
)

// runVersions lists installed versions of a branch, newest first.
func runVersions(args []string) error {
	branch, err := parseBranchArg(args)
	if err != nil {
		return err
	}

	cfg, err := loadSettings()
	if err != nil {
		return err
	}

	statePath, err := state.DefaultStatePath()
	if err != nil {
		return err
	}
	active, err := state.NewFileStore(statePath).GetActiveVersion(branch)
	if err != nil {
		return err
	}

	infos, err := versions.List(cfg.InstallRoot, branch, active)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Printf("no versions installed for %s\n", branch)
		return nil
	}

	for _, info := range infos {
		marker := " "
		if info.IsActive {
			marker = "*"
		}
		fmt.Printf("%s %-30s %10s  %s\n",
			marker, info.ID.DirName(), humanSize(info.SizeBytes),
			info.DownloadDate.Format("2006-01-02 15:04"))
	}
	return nil
}
