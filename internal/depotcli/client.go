package depotcli

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/kestrelworks/steamshelf/internal/logging"
	"github.com/kestrelworks/steamshelf/internal/steamapp"
)

const (
	// validateTimeout bounds the binary version probe.
	validateTimeout = 10 * time.Second
	// loginTimeout bounds one authentication attempt. Downloads have no
	// hard timeout; their liveness signal is the progress event stream.
	loginTimeout = 30 * time.Second

	// downloadAttempts and preflightAttempts are total attempt counts,
	// including the first. Delays between attempts follow retrySchedule.
	downloadAttempts  = 3
	preflightAttempts = 3
)

// retrySchedule returns the fixed backoff used by preflight and download
// retry: the first attempt runs immediately, later ones after 5s then 15s.
func retrySchedule() backoff.BackOff {
	return &scheduleBackOff{delays: []time.Duration{5 * time.Second, 15 * time.Second}}
}

// scheduleBackOff plays back a fixed delay sequence, then stops.
type scheduleBackOff struct {
	delays []time.Duration
	next   int
}

func (s *scheduleBackOff) NextBackOff() time.Duration {
	if s.next >= len(s.delays) {
		return backoff.Stop
	}
	d := s.delays[s.next]
	s.next++
	return d
}

func (s *scheduleBackOff) Reset() {
	s.next = 0
}

// ConflictChecker reports whether the platform client is running. The
// concrete implementation is injected (see internal/procwatch); a nil
// checker means the check is skipped.
type ConflictChecker interface {
	ConflictingProcessRunning(ctx context.Context) (bool, error)
}

// Client orchestrates downloader child processes. It owns the single
// process slot: one Login/Download/Validate session at a time, with
// concurrent requests rejected.
type Client struct {
	checker ConflictChecker
	runner  runner
	log     logging.Logger
	clock   Clock

	// backoffSchedule is swapped out in tests to avoid real delays.
	backoffSchedule func() backoff.BackOff

	mu        sync.Mutex
	busy      bool
	current   childProcess
	cancelled bool
}

// Options configures a Client. Zero values are usable: no conflict checking,
// no logging, real processes.
type Options struct {
	Checker ConflictChecker
	Logger  logging.Logger
}

// NewClient creates an orchestrator client.
func NewClient(opts Options) *Client {
	return &Client{
		checker:         opts.Checker,
		runner:          execRunner{},
		log:             logging.OrNoop(opts.Logger),
		clock:           RealClock{},
		backoffSchedule: retrySchedule,
	}
}

// acquire claims the process slot. The release function must be called when
// the whole operation (including retries) is finished.
func (c *Client) acquire() (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return nil, ErrOperationInProgress
	}
	c.busy = true
	c.cancelled = false
	return func() {
		c.mu.Lock()
		c.busy = false
		c.current = nil
		c.mu.Unlock()
	}, nil
}

// Cancel terminates the currently tracked child process, if any. Cleanup of
// a partially-populated target directory is the caller's responsibility.
func (c *Client) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	c.cancelled = true
	if err := c.current.kill(); err != nil {
		return fmt.Errorf("terminate downloader: %w", err)
	}
	return nil
}

var reProbeVersion = regexp.MustCompile(`(?i)depotdownloader(?:\s+mod)?\s+v?([0-9][\w.\-]*)`)

var probeIdentityPhrases = []string{"depotdownloader", "steamkit", "usage:"}

// ValidationResult reports the outcome of ValidateInstallation.
type ValidationResult struct {
	Path    string
	Version string // empty when the probe output carried no version
}

// ValidateInstallation resolves the downloader binary and runs a bounded
// version probe. The probe succeeds when the binary identifies itself in its
// output or exits zero.
func (c *Client) ValidateInstallation(ctx context.Context, explicitPath string) (*ValidationResult, error) {
	release, err := c.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	bin, err := ResolveBinary(explicitPath)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, validateTimeout)
	defer cancel()

	proc, err := c.runner.start(ctx, bin, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s failed to start: %v", ErrMissingBinary, bin, err)
	}
	c.setCurrent(proc)

	var output []string
	for line := range proc.lines() {
		output = append(output, line)
	}
	exitErr := proc.wait()

	joined := strings.Join(output, "\n")
	result := &ValidationResult{Path: bin}
	if m := reProbeVersion.FindStringSubmatch(joined); m != nil {
		result.Version = m[1]
	}

	if exitErr == nil || containsAny(joined, probeIdentityPhrases) {
		c.log.Debug("downloader validated", "path", bin, "version", result.Version)
		return result, nil
	}
	return nil, fmt.Errorf("%w: %s did not identify itself", ErrMissingBinary, bin)
}

// LoginOptions configures an authentication-only session.
type LoginOptions struct {
	Path     string // explicit binary path or directory, optional
	Username string
	Password string

	// GuardCode is an email one-time code obtained from a previous
	// guard-required result; written to the child's stdin when the email
	// prompt appears.
	GuardCode string
	// GuardConfirmed indicates the user already approved the mobile
	// prompt; the session then stays running until the downloader
	// observes the confirmation.
	GuardConfirmed bool

	AppID string // defaults to the managed application
	Sink  Sink
}

// LoginResult reports the outcome of Login.
type LoginResult struct {
	RequiresGuard bool
	GuardType     GuardType
}

// Login drives authentication only, in manifest-only mode so nothing is
// downloaded. It fails fast (single preflight check) when the platform
// client is running.
func (c *Client) Login(ctx context.Context, opts LoginOptions) (*LoginResult, error) {
	release, err := c.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	bin, err := ResolveBinary(opts.Path)
	if err != nil {
		return nil, err
	}

	if err := c.preflight(ctx, 1, nopSink); err != nil {
		return nil, err
	}

	args := sessionArgs{
		AppID:        defaultAppID(opts.AppID),
		Username:     opts.Username,
		Password:     opts.Password,
		ManifestOnly: true,
	}
	if err := args.validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	result, err := c.runSession(ctx, bin, args, opts.Sink, opts.GuardCode, opts.GuardConfirmed)
	if err != nil {
		return nil, err
	}
	if result.guard != GuardNone {
		return &LoginResult{RequiresGuard: true, GuardType: result.guard}, nil
	}
	return &LoginResult{}, nil
}

// DownloadOptions configures a full branch download.
type DownloadOptions struct {
	Path     string // explicit binary path or directory, optional
	Username string
	Password string

	InstallDir   string
	AppID        string
	Branch       steamapp.Branch
	MaxDownloads int
	// ManifestOnly fetches depot manifests without content, enough to
	// identify the branch's current version.
	ManifestOnly bool

	GuardCode      string
	GuardConfirmed bool

	Sink Sink
}

// DownloadBranch downloads a branch's content into InstallDir, retrying up
// to three times (delays 0/5s/15s) when the failure output matches
// authentication or platform-conflict patterns. Any other failure aborts
// immediately.
func (c *Client) DownloadBranch(ctx context.Context, opts DownloadOptions) error {
	release, err := c.acquire()
	if err != nil {
		return err
	}
	defer release()

	bin, err := ResolveBinary(opts.Path)
	if err != nil {
		return err
	}

	sink := opts.Sink
	if sink == nil {
		sink = nopSink
	}

	args := sessionArgs{
		AppID:        defaultAppID(opts.AppID),
		BranchKey:    opts.Branch.PlatformKey(),
		Username:     opts.Username,
		Password:     opts.Password,
		InstallDir:   opts.InstallDir,
		MaxDownloads: opts.MaxDownloads,
		ManifestOnly: opts.ManifestOnly,
	}
	if err := args.validate(); err != nil {
		return err
	}
	if opts.InstallDir == "" {
		return fmt.Errorf("install directory is required")
	}

	attempt := 0
	operation := func() (struct{}, error) {
		attempt++
		if attempt > 1 {
			sink(Event{Type: EventInfo, Message: fmt.Sprintf("retrying download (attempt %d of %d)", attempt, downloadAttempts)})
		}

		if err := c.preflight(ctx, preflightAttempts, sink); err != nil {
			return struct{}{}, backoff.Permanent(err)
		}

		result, err := c.runSession(ctx, bin, args, sink, opts.GuardCode, opts.GuardConfirmed)
		if err != nil {
			if isRetryable(err) {
				return struct{}{}, err
			}
			return struct{}{}, backoff.Permanent(err)
		}
		if result.guard != GuardNone {
			return struct{}{}, backoff.Permanent(fmt.Errorf("%w: %s confirmation needed", ErrGuardRequired, result.guard))
		}
		return struct{}{}, nil
	}

	_, err = backoff.Retry(ctx, operation,
		backoff.WithBackOff(c.backoffSchedule()),
		backoff.WithMaxTries(downloadAttempts),
		backoff.WithNotify(func(err error, delay time.Duration) {
			c.log.Warn("download attempt failed", "error", err, "retry_in", delay)
		}),
	)
	return err
}

// isRetryable implements the download retry policy: only authentication
// failures and platform-conflict failures are retried.
func isRetryable(err error) bool {
	return errors.Is(err, ErrAuthenticationFailed) || errors.Is(err, ErrPlatformConflict)
}

// preflight re-checks for a conflicting platform client, looping up to
// attempts times at the fixed schedule. Exhausting the attempts yields
// ErrPlatformConflict.
func (c *Client) preflight(ctx context.Context, attempts int, sink Sink) error {
	if c.checker == nil {
		return nil
	}

	operation := func() (struct{}, error) {
		running, err := c.checker.ConflictingProcessRunning(ctx)
		if err != nil {
			return struct{}{}, backoff.Permanent(fmt.Errorf("check platform client: %w", err))
		}
		if running {
			sink(Event{Type: EventInfo, Message: "waiting for the platform client to close"})
			return struct{}{}, ErrPlatformConflict
		}
		return struct{}{}, nil
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(c.backoffSchedule()),
		backoff.WithMaxTries(uint(attempts)),
	)
	return err
}

func (c *Client) setCurrent(proc childProcess) {
	c.mu.Lock()
	c.current = proc
	c.mu.Unlock()
}

func (c *Client) wasCancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

func defaultAppID(appID string) string {
	if appID == "" {
		return steamapp.DefaultAppID
	}
	return appID
}
