// Package bootstrap fetches the downloader tool itself when it is not
// installed: download the pinned release archive over HTTPS, verify it
// against the release checksum file (GPG-checked when a signature and
// keyring are available), extract the executable, and mark it runnable.
package bootstrap

import (
	"fmt"
	"runtime"
)

// Asset is one platform's release archive.
type Asset struct {
	URL string
	// SHA256 pins the archive digest directly. Empty means the digest is
	// looked up in the release's checksum file instead.
	SHA256 string
}

// Release describes one pinned downloader release.
type Release struct {
	Version string
	// ChecksumURL points at the release's SHA256 manifest, one
	// "<hex>  <filename>" line per asset.
	ChecksumURL string
	// SignatureURL optionally points at a detached GPG signature over the
	// checksum file.
	SignatureURL string
	// Assets maps "<goos>/<goarch>" to the archive for that platform.
	Assets map[string]Asset
}

// releaseVersion is the downloader release this build installs.
const releaseVersion = "3.4.0"

const releaseBase = "https://github.com/SteamRE/DepotDownloader/releases/download/DepotDownloader_" + releaseVersion + "/"

// DefaultRelease returns the pinned release definition.
func DefaultRelease() Release {
	return Release{
		Version:     releaseVersion,
		ChecksumURL: releaseBase + "SHA256SUMS",
		Assets: map[string]Asset{
			"linux/amd64":   {URL: releaseBase + "DepotDownloader-linux-x64.zip"},
			"linux/arm64":   {URL: releaseBase + "DepotDownloader-linux-arm64.zip"},
			"darwin/amd64":  {URL: releaseBase + "DepotDownloader-macos-x64.zip"},
			"darwin/arm64":  {URL: releaseBase + "DepotDownloader-macos-arm64.zip"},
			"windows/amd64": {URL: releaseBase + "DepotDownloader-windows-x64.zip"},
			"windows/arm64": {URL: releaseBase + "DepotDownloader-windows-arm64.zip"},
		},
	}
}

// AssetForHost returns the archive for the running platform.
func (r Release) AssetForHost() (Asset, error) {
	return r.assetFor(runtime.GOOS, runtime.GOARCH)
}

func (r Release) assetFor(goos, goarch string) (Asset, error) {
	key := goos + "/" + goarch
	asset, ok := r.Assets[key]
	if !ok {
		return Asset{}, fmt.Errorf("no downloader release asset for %s", key)
	}
	return asset, nil
}

// executableName is the downloader file name inside the archive.
func executableName() string {
	if runtime.GOOS == "windows" {
		return "DepotDownloader.exe"
	}
	return "DepotDownloader"
}
