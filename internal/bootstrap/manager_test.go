package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"
)

// newReleaseServer serves a one-asset release: the archive plus its
// SHA256SUMS manifest.
func newReleaseServer(t *testing.T, corruptChecksum bool) (*httptest.Server, Release, *atomic.Int32) {
	t.Helper()

	archivePath := buildZip(t, map[string]string{
		executableName(): "binary-payload",
	})
	archiveData, err := os.ReadFile(archivePath)
	if err != nil {
		t.Fatal(err)
	}
	digest, err := sha256Of(archivePath)
	if err != nil {
		t.Fatal(err)
	}
	if corruptChecksum {
		digest = strings.Repeat("0", 64)
	}

	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/release.zip", func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Write(archiveData)
	})
	mux.HandleFunc("/SHA256SUMS", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(digest + "  release.zip\n"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	release := Release{
		Version:     "test",
		ChecksumURL: srv.URL + "/SHA256SUMS",
		Assets: map[string]Asset{
			runtime.GOOS + "/" + runtime.GOARCH: {URL: srv.URL + "/release.zip"},
		},
	}
	return srv, release, &hits
}

func TestManagerEnsure(t *testing.T) {
	_, release, hits := newReleaseServer(t, false)
	installDir := t.TempDir()
	m := NewManager(t.TempDir(), installDir, Options{Release: release})

	path, err := m.Ensure(context.Background())
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if path != filepath.Join(installDir, executableName()) {
		t.Errorf("path = %q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil || string(data) != "binary-payload" {
		t.Fatalf("installed binary = %q, %v", data, err)
	}
	if runtime.GOOS != "windows" {
		info, _ := os.Stat(path)
		if info.Mode().Perm()&0111 == 0 {
			t.Error("installed binary is not executable")
		}
	}

	// A second Ensure finds the installed binary and never re-downloads.
	if _, err := m.Ensure(context.Background()); err != nil {
		t.Fatalf("second Ensure() error = %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("archive fetched %d times, want 1", hits.Load())
	}
}

func TestManagerEnsureChecksumMismatch(t *testing.T) {
	_, release, _ := newReleaseServer(t, true)
	installDir := t.TempDir()
	m := NewManager(t.TempDir(), installDir, Options{Release: release})

	if _, err := m.Ensure(context.Background()); err == nil {
		t.Fatal("Ensure() accepted a corrupted archive")
	}
	if _, err := os.Stat(filepath.Join(installDir, executableName())); !os.IsNotExist(err) {
		t.Error("corrupted archive was extracted anyway")
	}
}

func TestManagerEnsureUnsupportedPlatform(t *testing.T) {
	m := NewManager(t.TempDir(), t.TempDir(), Options{
		Release: Release{Version: "test", Assets: map[string]Asset{}},
	})
	if _, err := m.Ensure(context.Background()); err == nil {
		t.Fatal("Ensure() succeeded without an asset for this platform")
	}
}
