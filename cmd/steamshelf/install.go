package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kestrelworks/steamshelf/internal/depotcli"
	"github.com/kestrelworks/steamshelf/internal/manifest"
	"github.com/kestrelworks/steamshelf/internal/state"
	"github.com/kestrelworks/steamshelf/internal/versions"
)

// runInstall downloads a branch as a new versioned install. The branch's
// current identity is probed with a manifest-only pass first, so the full
// download lands directly in its final build_/manifest_ directory.
func runInstall(args []string) error {
	var (
		positional     []string
		username       string
		guardCode      string
		guardConfirmed bool
	)
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--help" || args[i] == "-h":
			printInstallHelp()
			return nil
		case args[i] == "--user" && i+1 < len(args):
			i++
			username = args[i]
		case strings.HasPrefix(args[i], "--guard-code="):
			guardCode = strings.TrimPrefix(args[i], "--guard-code=")
		case args[i] == "--guard-confirmed":
			guardConfirmed = true
		default:
			positional = append(positional, args[i])
		}
	}

	branch, err := parseBranchArg(positional)
	if err != nil {
		return err
	}

	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	if username == "" {
		username = cfg.Username
	}
	if username == "" {
		return fmt.Errorf("no username: pass --user or set username in settings.lua")
	}
	password, err := readPassword()
	if err != nil {
		return err
	}

	statePath, err := state.DefaultStatePath()
	if err != nil {
		return err
	}
	store := state.NewFileStore(statePath)

	client := newClient()
	ctx := context.Background()

	common := depotcli.DownloadOptions{
		Path:           cfg.DownloaderPath,
		Username:       username,
		Password:       password,
		AppID:          cfg.AppID,
		Branch:         branch,
		MaxDownloads:   cfg.MaxDownloads,
		GuardCode:      guardCode,
		GuardConfirmed: guardConfirmed,
		Sink:           printEvent,
	}

	// Manifest-only pass: identify what the branch currently serves.
	staging := versions.VersionPath(cfg.InstallRoot, branch, versions.Identifier{
		Value: fmt.Sprintf("staging-%d", time.Now().Unix()),
		Kind:  versions.KindManifest,
	})
	defer removeStaging(cfg.InstallRoot, staging)

	probe := common
	probe.InstallDir = staging
	probe.ManifestOnly = true
	fmt.Printf("identifying current %s version...\n", branch)
	if err := client.DownloadBranch(ctx, probe); err != nil {
		return describeDownloadError(err)
	}

	id, err := manifest.ExtractInstalledVersion(staging, cfg.AppID, cfg.DepotPriority)
	if err != nil {
		if errors.Is(err, manifest.ErrNoManifest) {
			return fmt.Errorf("could not identify the branch version: %w", err)
		}
		return err
	}

	target := versions.VersionPath(cfg.InstallRoot, branch, id)
	if _, err := os.Stat(target); err == nil {
		fmt.Printf("version %s already installed; activating it\n", id)
		return store.SetActiveVersion(branch, id)
	}

	// Full download, retargeted into the final version directory.
	full := common
	full.InstallDir = target
	fmt.Printf("installing %s into %s\n", id, target)
	if err := client.DownloadBranch(ctx, full); err != nil {
		return describeDownloadError(err)
	}

	infos, err := versions.List(cfg.InstallRoot, branch, nil)
	if err != nil {
		return err
	}
	for _, info := range infos {
		if info.ID == id {
			if err := store.RecordVersion(branch, info); err != nil {
				return err
			}
			break
		}
	}
	if err := store.SetActiveVersion(branch, id); err != nil {
		return err
	}

	fmt.Printf("installed and activated %s on %s\n", id, branch)
	return nil
}

// removeStaging deletes the manifest-only staging directory, refusing
// anything that resolves outside the install root.
func removeStaging(root, staging string) {
	if !versions.ValidatePathWithinRoot(root, staging) {
		return
	}
	os.RemoveAll(staging)
}

// describeDownloadError augments expected failures with the next step.
func describeDownloadError(err error) error {
	switch {
	case errors.Is(err, depotcli.ErrGuardRequired):
		return fmt.Errorf("%w\nrun 'steamshelf login' to complete the Steam Guard challenge first", err)
	case errors.Is(err, depotcli.ErrPlatformConflict):
		return fmt.Errorf("%w\nclose the Steam client and retry", err)
	default:
		return err
	}
}

func printInstallHelp() {
	fmt.Println("Usage: steamshelf install <branch> [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --user <name>         Platform account name (default: settings.lua)")
	fmt.Println("  --guard-code=<code>   Email Steam Guard code from a previous attempt")
	fmt.Println("  --guard-confirmed     The mobile prompt has been approved")
	fmt.Println()
	fmt.Println("The password is read from STEAMSHELF_PASSWORD, or from stdin.")
}
