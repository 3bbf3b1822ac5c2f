// Package settings loads the user's settings.lua. The file is declarative
// Lua evaluated in a sandbox: no filesystem, process, or module-loading
// access, with a read-only platform table injected for conditionals.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"

	"github.com/kestrelworks/steamshelf/internal/steamapp"
)

// Settings is the parsed user configuration. Zero values mean "use the
// default"; ApplyDefaults fills them in.
type Settings struct {
	// AppID overrides the managed application id.
	AppID string
	// InstallRoot is where branches/ lives.
	InstallRoot string
	// DownloaderPath is the downloader binary or a directory containing it.
	// Empty means PATH resolution.
	DownloaderPath string
	// MaxDownloads is the parallelism hint passed to the downloader.
	// Zero omits the flag.
	MaxDownloads int
	// DepotPriority orders depot ids for primary-depot selection.
	DepotPriority []string
	// Username is the remembered login name. The password is never stored
	// in settings.
	Username string
}

// DefaultPath returns the XDG config location of settings.lua.
func DefaultPath() (string, error) {
	path, err := xdg.ConfigFile(filepath.Join("steamshelf", "settings.lua"))
	if err != nil {
		return "", fmt.Errorf("resolve settings path: %w", err)
	}
	return path, nil
}

// DefaultInstallRoot returns the XDG data location for installed versions.
func DefaultInstallRoot() string {
	return filepath.Join(xdg.DataHome, "steamshelf", "installs")
}

// ApplyDefaults fills unset fields with the managed application's defaults.
func (s *Settings) ApplyDefaults() {
	if s.AppID == "" {
		s.AppID = steamapp.DefaultAppID
	}
	if s.InstallRoot == "" {
		s.InstallRoot = DefaultInstallRoot()
	}
	if len(s.DepotPriority) == 0 {
		s.DepotPriority = steamapp.DefaultDepotPriority
	}
}

// Validate rejects settings no component can act on.
func (s *Settings) Validate() error {
	if s.AppID != "" {
		for _, r := range s.AppID {
			if r < '0' || r > '9' {
				return fmt.Errorf("app_id %q is not numeric", s.AppID)
			}
		}
	}
	if s.MaxDownloads < 0 {
		return fmt.Errorf("max_downloads %d is negative", s.MaxDownloads)
	}
	for _, depot := range s.DepotPriority {
		if strings.TrimSpace(depot) == "" {
			return fmt.Errorf("depot_priority contains an empty id")
		}
	}
	return nil
}

// Load reads and parses settings.lua from path. A missing file is not an
// error: defaults apply.
func Load(path string) (*Settings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s := &Settings{}
			s.ApplyDefaults()
			return s, nil
		}
		return nil, fmt.Errorf("read settings: %w", err)
	}
	return Parse(string(raw))
}
