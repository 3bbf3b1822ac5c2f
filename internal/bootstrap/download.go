package bootstrap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	httpTimeout      = 5 * time.Minute
	downloadAttempts = 3
	userAgent        = "steamshelf/1.0"
)

// Downloader fetches release files over HTTPS with retry and caches them on
// disk so repeated bootstraps are free.
type Downloader struct {
	client   *http.Client
	cacheDir string

	// newBackOff is swapped out in tests to avoid real delays.
	newBackOff func() backoff.BackOff
}

// NewDownloader creates a downloader caching under cacheDir.
func NewDownloader(cacheDir string) *Downloader {
	return &Downloader{
		client: &http.Client{
			Timeout: httpTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		cacheDir: cacheDir,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
}

// Fetch downloads url into the cache, keyed by version and filename, and
// returns the cached path. An existing non-empty cache entry short-circuits
// the download.
func (d *Downloader) Fetch(ctx context.Context, version, url string) (string, error) {
	cachePath := filepath.Join(d.cacheDir, version, filepath.Base(url))
	if info, err := os.Stat(cachePath); err == nil && info.Size() > 0 {
		return cachePath, nil
	}

	if err := d.downloadToFile(ctx, url, cachePath); err != nil {
		return "", err
	}
	return cachePath, nil
}

// downloadToFile retries transient failures with exponential backoff and
// writes via a temp file so a partial download never lands at destPath.
func (d *Downloader) downloadToFile(ctx context.Context, url, destPath string) error {
	operation := func() (struct{}, error) {
		return struct{}{}, d.downloadOnce(ctx, url, destPath)
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(d.newBackOff()),
		backoff.WithMaxTries(downloadAttempts),
	)
	if err != nil {
		return fmt.Errorf("download %s: %w", filepath.Base(url), err)
	}
	return nil
}

func (d *Downloader) downloadOnce(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		// A missing asset will not appear on retry.
		return backoff.Permanent(fmt.Errorf("not found: %s", url))
	default:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return backoff.Permanent(fmt.Errorf("create cache directory: %w", err))
	}

	tmpPath := destPath + ".tmp"
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("create temp file: %w", err))
	}

	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write archive: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("finalize download: %w", err)
	}
	return nil
}
