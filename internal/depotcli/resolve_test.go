package depotcli

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestResolveBinaryExplicitFile(t *testing.T) {
	path := fakeBinary(t)
	got, err := ResolveBinary(path)
	if err != nil {
		t.Fatalf("ResolveBinary(%q) error = %v", path, err)
	}
	if got != path {
		t.Errorf("ResolveBinary() = %q, want %q", got, path)
	}
}

func TestResolveBinaryDirectoryScan(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("executable-bit scan is not meaningful on windows")
	}
	dir := t.TempDir()

	// A non-executable decoy must be skipped.
	if err := os.WriteFile(filepath.Join(dir, "depotdownloader"), []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, "DepotDownloader")
	if err := os.WriteFile(want, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}

	got, err := ResolveBinary(dir)
	if err != nil {
		t.Fatalf("ResolveBinary(%q) error = %v", dir, err)
	}
	if got != want {
		t.Errorf("ResolveBinary() = %q, want %q", got, want)
	}
}

func TestResolveBinaryEmptyDirectory(t *testing.T) {
	_, err := ResolveBinary(t.TempDir())
	if !errors.Is(err, ErrMissingBinary) {
		t.Errorf("err = %v, want ErrMissingBinary", err)
	}
}

func TestResolveBinaryMissingPath(t *testing.T) {
	_, err := ResolveBinary(filepath.Join(t.TempDir(), "does-not-exist"))
	if !errors.Is(err, ErrMissingBinary) {
		t.Errorf("err = %v, want ErrMissingBinary", err)
	}
}
