package depotcli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// binaryAliases are the PATH names tried, in order, when no explicit path is
// configured.
var binaryAliases = []string{"DepotDownloader", "depotdownloader", "DepotDownloaderMod"}

// expectedNames returns the executable file names to look for inside a
// configured directory.
func expectedNames() []string {
	if runtime.GOOS == "windows" {
		return []string{"DepotDownloader.exe", "depotdownloader.exe"}
	}
	return []string{"DepotDownloader", "depotdownloader"}
}

// ResolveBinary locates the downloader executable. Resolution order: an
// explicit path (a file, or a directory containing an expected executable
// name), then the PATH aliases. Failure is ErrMissingBinary, which callers
// treat as user-actionable and never retry.
func ResolveBinary(explicit string) (string, error) {
	if explicit != "" {
		fi, err := os.Stat(explicit)
		if err != nil {
			return "", fmt.Errorf("%w: configured path %s: %v", ErrMissingBinary, explicit, err)
		}
		if fi.IsDir() {
			for _, name := range expectedNames() {
				candidate := filepath.Join(explicit, name)
				if isExecutableFile(candidate) {
					return candidate, nil
				}
			}
			return "", fmt.Errorf("%w: no downloader executable in directory %s", ErrMissingBinary, explicit)
		}
		return explicit, nil
	}

	for _, alias := range binaryAliases {
		if path, err := exec.LookPath(alias); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: tried %v on PATH", ErrMissingBinary, binaryAliases)
}

func isExecutableFile(path string) bool {
	fi, err := os.Stat(path)
	if err != nil || !fi.Mode().IsRegular() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return fi.Mode().Perm()&0111 != 0
}
