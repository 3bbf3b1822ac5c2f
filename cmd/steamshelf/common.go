package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/kestrelworks/steamshelf/internal/depotcli"
	"github.com/kestrelworks/steamshelf/internal/procwatch"
	"github.com/kestrelworks/steamshelf/internal/settings"
	"github.com/kestrelworks/steamshelf/internal/steamapp"
)

// loadSettings reads settings.lua from its default location.
func loadSettings() (*settings.Settings, error) {
	path, err := settings.DefaultPath()
	if err != nil {
		return nil, err
	}
	cfg, err := settings.Load(path)
	if err != nil {
		return nil, fmt.Errorf("settings: %s", settings.FormatError(err, os.Getenv("STEAMSHELF_VERBOSE") != ""))
	}
	return cfg, nil
}

// newClient wires the orchestrator with the Steam-process conflict checker.
func newClient() *depotcli.Client {
	return depotcli.NewClient(depotcli.Options{
		Checker: procwatch.NewChecker(),
	})
}

// parseBranchArg maps a positional branch argument.
func parseBranchArg(args []string) (steamapp.Branch, error) {
	if len(args) == 0 {
		return steamapp.BranchMain, fmt.Errorf("branch argument required (main, beta, alternate, alternate-beta)")
	}
	branch, ok := steamapp.FromName(args[0])
	if !ok {
		return steamapp.BranchMain, fmt.Errorf("unknown branch %q", args[0])
	}
	return branch, nil
}

// readPassword takes the password from STEAMSHELF_PASSWORD, or from stdin
// when unset. The value is handed straight to the orchestrator, which masks
// it in every diagnostic.
func readPassword() (string, error) {
	if pw := os.Getenv("STEAMSHELF_PASSWORD"); pw != "" {
		return pw, nil
	}
	fmt.Fprint(os.Stderr, "Password: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// printEvent renders one orchestrator event for the terminal.
func printEvent(e depotcli.Event) {
	switch e.Type {
	case depotcli.EventPercent:
		fmt.Printf("\rprogress: %3d%%", e.Value)
		if e.Value >= 100 {
			fmt.Println()
		}
	case depotcli.EventInfo:
		fmt.Println(e.Message)
	case depotcli.EventError:
		fmt.Fprintln(os.Stderr, e.Message)
	case depotcli.EventOutput:
		if os.Getenv("STEAMSHELF_VERBOSE") != "" {
			fmt.Println(e.Message)
		}
	}
}

// humanSize renders a byte count the way the versions listing shows it.
func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
