// Package procwatch answers one question: is the platform client (Steam)
// currently running? The downloader cannot hold a login session while the
// client does, so orchestration preflights through this check.
package procwatch

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

// steamProcessNames are the client executable names per platform, compared
// case-insensitively against running process names.
var steamProcessNames = map[string][]string{
	"windows": {"steam.exe", "steamwebhelper.exe"},
	"darwin":  {"steam_osx", "steam"},
	"linux":   {"steam", "steamwebhelper"},
}

// Checker reports whether a conflicting platform client is running.
type Checker struct {
	names []string
}

// NewChecker creates a checker for the current platform.
func NewChecker() *Checker {
	names, ok := steamProcessNames[runtime.GOOS]
	if !ok {
		names = steamProcessNames["linux"]
	}
	return &Checker{names: names}
}

// ConflictingProcessRunning scans the process table for the platform client.
// Processes whose names cannot be read (exited mid-scan, permission denied)
// are skipped rather than failing the whole check.
func (c *Checker) ConflictingProcessRunning(ctx context.Context) (bool, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return false, fmt.Errorf("list processes: %w", err)
	}

	for _, p := range procs {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		for _, want := range c.names {
			if strings.EqualFold(name, want) {
				return true, nil
			}
		}
	}
	return false, nil
}
