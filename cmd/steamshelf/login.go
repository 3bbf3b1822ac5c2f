package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/kestrelworks/steamshelf/internal/depotcli"
)

// runLogin authenticates against the platform without downloading content.
// A Steam Guard challenge ends the first run; the user re-runs with
// --guard-code (email) or --guard-confirmed (mobile).
func runLogin(args []string) error {
	var (
		username       string
		guardCode      string
		guardConfirmed bool
	)

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--help" || args[i] == "-h":
			printLoginHelp()
			return nil
		case args[i] == "--user" && i+1 < len(args):
			i++
			username = args[i]
		case strings.HasPrefix(args[i], "--guard-code="):
			guardCode = strings.TrimPrefix(args[i], "--guard-code=")
		case args[i] == "--guard-confirmed":
			guardConfirmed = true
		}
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

	result, err := newClient().Login(context.Background(), depotcli.LoginOptions{
		Path:           cfg.DownloaderPath,
		Username:       username,
		Password:       password,
		GuardCode:      guardCode,
		GuardConfirmed: guardConfirmed,
		AppID:          cfg.AppID,
		Sink:           printEvent,
	})
	if err != nil {
		return err
	}

	if result.RequiresGuard {
		switch result.GuardType {
		case depotcli.GuardEmail:
			fmt.Println("Steam Guard: check your email, then re-run with --guard-code=<code>")
		case depotcli.GuardMobile:
			fmt.Println("Steam Guard: approve on your mobile device, then re-run with --guard-confirmed")
		}
		return nil
	}

	fmt.Println("login successful")
	return nil
}

func printLoginHelp() {
	fmt.Println("Usage: steamshelf login [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --user <name>         Platform account name (default: settings.lua)")
	fmt.Println("  --guard-code=<code>   Email Steam Guard code from a previous attempt")
	fmt.Println("  --guard-confirmed     The mobile prompt has been approved")
	fmt.Println()
	fmt.Println("The password is read from STEAMSHELF_PASSWORD, or from stdin.")
}
