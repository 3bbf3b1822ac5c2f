package bootstrap

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // maintained fork
)

// sha256Of hashes one file.
func sha256Of(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// VerifySHA256 checks a file against an expected hex digest.
func VerifySHA256(path, expected string) error {
	actual, err := sha256Of(path)
	if err != nil {
		return fmt.Errorf("hash %s: %w", filepath.Base(path), err)
	}
	if !strings.EqualFold(actual, expected) {
		return fmt.Errorf("checksum mismatch for %s:\nactual:   %s\nexpected: %s",
			filepath.Base(path), actual, expected)
	}
	return nil
}

// VerifyAgainstChecksumFile looks the file's basename up in a
// "<hex>  <filename>" manifest and checks its digest.
func VerifyAgainstChecksumFile(path, checksumPath string) error {
	expected, err := findChecksum(checksumPath, filepath.Base(path))
	if err != nil {
		return err
	}
	return VerifySHA256(path, expected)
}

// findChecksum scans a checksum manifest for one filename. Entries with
// directory components match on basename.
func findChecksum(checksumPath, filename string) (string, error) {
	file, err := os.Open(checksumPath)
	if err != nil {
		return "", fmt.Errorf("open checksum file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) < 2 {
			continue
		}
		if parts[1] == filename || filepath.Base(parts[1]) == filename {
			return parts[0], nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan checksum file: %w", err)
	}
	return "", fmt.Errorf("no checksum entry for %s", filename)
}

// VerifyDetachedSignature checks a detached GPG signature over signedPath
// with the given keyring file. Armored signatures and keyrings are tried
// first, binary forms second.
func VerifyDetachedSignature(signedPath, signaturePath, keyringPath string) error {
	keyring, err := loadKeyring(keyringPath)
	if err != nil {
		return err
	}

	signed, err := os.Open(signedPath)
	if err != nil {
		return fmt.Errorf("open signed file: %w", err)
	}
	defer signed.Close()

	sig, err := os.Open(signaturePath)
	if err != nil {
		return fmt.Errorf("open signature: %w", err)
	}
	defer sig.Close()

	_, err = openpgp.CheckArmoredDetachedSignature(keyring, signed, sig, nil)
	if err != nil {
		signed.Seek(0, io.SeekStart)
		sig.Seek(0, io.SeekStart)
		_, err = openpgp.CheckDetachedSignature(keyring, signed, sig, nil)
	}
	if err != nil {
		return fmt.Errorf("verify signature: %w", err)
	}
	return nil
}

func loadKeyring(path string) (openpgp.EntityList, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	defer file.Close()

	keyring, err := openpgp.ReadArmoredKeyRing(file)
	if err != nil {
		file.Seek(0, io.SeekStart)
		keyring, err = openpgp.ReadKeyRing(file)
		if err != nil {
			return nil, fmt.Errorf("read keyring: %w", err)
		}
	}
	if len(keyring) == 0 {
		return nil, fmt.Errorf("keyring is empty")
	}
	return keyring, nil
}
