package main

import (
	"fmt"
	"os"
)

// Version is set at build time via -ldflags.
var Version = "v0.1.0"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version":
			fmt.Printf("steamshelf %s\n", Version)
			return
		case "check":
			exitOn(runCheck(os.Args[2:]))
			return
		case "login":
			exitOn(runLogin(os.Args[2:]))
			return
		case "install":
			exitOn(runInstall(os.Args[2:]))
			return
		case "versions":
			exitOn(runVersions(os.Args[2:]))
			return
		case "activate":
			exitOn(runActivate(os.Args[2:]))
			return
		case "migrate":
			exitOn(runMigrate(os.Args[2:]))
			return
		}
	}

	fmt.Println("steamshelf - versioned install manager")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  steamshelf --version                 Show version information")
	fmt.Println("  steamshelf check [--bootstrap]       Validate the downloader installation")
	fmt.Println("  steamshelf login [options]           Authenticate with the platform")
	fmt.Println("  steamshelf install <branch>          Download a branch as a new version")
	fmt.Println("  steamshelf versions <branch>         List installed versions of a branch")
	fmt.Println("  steamshelf activate <branch> <dir>   Mark a version directory active")
	fmt.Println("  steamshelf migrate                   Migrate legacy flat installs")
	fmt.Println("  steamshelf migrate validate          Check for migration residue")
	fmt.Println("  steamshelf migrate rollback          Undo the versioned layout")
	fmt.Println()
	fmt.Println("Branches: main, beta, alternate, alternate-beta")
}

func exitOn(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
