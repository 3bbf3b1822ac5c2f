package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/kestrelworks/steamshelf/internal/bootstrap"
	"github.com/kestrelworks/steamshelf/internal/depotcli"
)

// runCheck validates the downloader installation. With --bootstrap, a
// missing downloader is fetched from the pinned release first.
func runCheck(args []string) error {
	doBootstrap := false
	for _, arg := range args {
		switch arg {
		case "--help", "-h":
			fmt.Println("Usage: steamshelf check [--bootstrap]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --bootstrap  Download and install the downloader tool if missing")
			return nil
		case "--bootstrap":
			doBootstrap = true
		}
	}

	cfg, err := loadSettings()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	client := newClient()
	path := cfg.DownloaderPath

	result, err := client.ValidateInstallation(ctx, path)
	if errors.Is(err, depotcli.ErrMissingBinary) && doBootstrap {
		installDir := filepath.Join(xdg.DataHome, "steamshelf", "tools")
		cacheDir := filepath.Join(xdg.CacheHome, "steamshelf", "downloads")
		manager := bootstrap.NewManager(cacheDir, installDir, bootstrap.Options{})

		path, err = manager.Ensure(ctx)
		if err != nil {
			return fmt.Errorf("bootstrap downloader: %w", err)
		}
		result, err = client.ValidateInstallation(ctx, path)
	}
	if err != nil {
		return err
	}

	if result.Version != "" {
		fmt.Printf("downloader OK: %s (v%s)\n", result.Path, result.Version)
	} else {
		fmt.Printf("downloader OK: %s\n", result.Path)
	}
	return nil
}
