package depotcli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/kestrelworks/steamshelf/internal/steamapp"
)

// fakeProcess is a scripted childProcess.
type fakeProcess struct {
	out       chan string
	exitErr   error
	onInput   func(p *fakeProcess, s string)
	closeOnce sync.Once

	mu     sync.Mutex
	inputs []string
	killed bool
}

func scriptedProcess(exitErr error, lines ...string) *fakeProcess {
	p := &fakeProcess{out: make(chan string, len(lines)+8), exitErr: exitErr}
	for _, line := range lines {
		p.out <- line
	}
	p.closeOnce.Do(func() { close(p.out) })
	return p
}

// hangingProcess emits its lines and then keeps running until killed.
func hangingProcess(lines ...string) *fakeProcess {
	p := &fakeProcess{out: make(chan string, len(lines)+8)}
	for _, line := range lines {
		p.out <- line
	}
	return p
}

func (p *fakeProcess) lines() <-chan string { return p.out }

func (p *fakeProcess) writeInput(s string) error {
	p.mu.Lock()
	p.inputs = append(p.inputs, s)
	p.mu.Unlock()
	if p.onInput != nil {
		p.onInput(p, s)
	}
	return nil
}

func (p *fakeProcess) wait() error {
	if p.wasKilled() {
		return errors.New("process killed")
	}
	return p.exitErr
}

func (p *fakeProcess) kill() error {
	p.mu.Lock()
	p.killed = true
	p.mu.Unlock()
	p.closeOnce.Do(func() { close(p.out) })
	return nil
}

func (p *fakeProcess) wasKilled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killed
}

// fakeRunner hands out scripted processes in order.
type fakeRunner struct {
	procs  []*fakeProcess
	starts [][]string
}

func (r *fakeRunner) start(_ context.Context, _ string, args []string) (childProcess, error) {
	r.starts = append(r.starts, args)
	if len(r.procs) == 0 {
		return nil, errors.New("no scripted process left")
	}
	p := r.procs[0]
	r.procs = r.procs[1:]
	return p, nil
}

// fakeChecker plays back a scripted sequence of conflict answers.
type fakeChecker struct {
	answers []bool
	calls   int
}

func (c *fakeChecker) ConflictingProcessRunning(context.Context) (bool, error) {
	c.calls++
	if len(c.answers) == 0 {
		return false, nil
	}
	a := c.answers[0]
	c.answers = c.answers[1:]
	return a, nil
}

func newTestClient(r runner, checker ConflictChecker) *Client {
	c := NewClient(Options{Checker: checker})
	c.runner = r
	// Zero delays so retry paths run instantly; the real schedule is
	// asserted separately in TestRetryScheduleDelays.
	c.backoffSchedule = func() backoff.BackOff {
		return &scheduleBackOff{delays: []time.Duration{0, 0}}
	}
	return c
}

func fakeBinary(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "DepotDownloader")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRetryScheduleDelays(t *testing.T) {
	s := retrySchedule()
	if d := s.NextBackOff(); d != 5*time.Second {
		t.Errorf("first delay = %v, want 5s", d)
	}
	if d := s.NextBackOff(); d != 15*time.Second {
		t.Errorf("second delay = %v, want 15s", d)
	}
	if d := s.NextBackOff(); d != backoff.Stop {
		t.Errorf("third delay = %v, want Stop", d)
	}
}

func TestValidateInstallation(t *testing.T) {
	runner := &fakeRunner{procs: []*fakeProcess{
		scriptedProcess(nil, "DepotDownloader v2.7.4", "Usage: ..."),
	}}
	c := newTestClient(runner, nil)

	result, err := c.ValidateInstallation(context.Background(), fakeBinary(t))
	if err != nil {
		t.Fatalf("ValidateInstallation() error = %v", err)
	}
	if result.Version != "2.7.4" {
		t.Errorf("Version = %q, want 2.7.4", result.Version)
	}
}

func TestValidateInstallationIdentifiedByOutputDespiteExitCode(t *testing.T) {
	runner := &fakeRunner{procs: []*fakeProcess{
		scriptedProcess(errors.New("exit status 1"), "Usage: DepotDownloader -app <id> ..."),
	}}
	c := newTestClient(runner, nil)

	if _, err := c.ValidateInstallation(context.Background(), fakeBinary(t)); err != nil {
		t.Fatalf("probe with identifying output failed: %v", err)
	}
}

func TestValidateInstallationUnidentified(t *testing.T) {
	runner := &fakeRunner{procs: []*fakeProcess{
		scriptedProcess(errors.New("exit status 1"), "command not recognized"),
	}}
	c := newTestClient(runner, nil)

	_, err := c.ValidateInstallation(context.Background(), fakeBinary(t))
	if !errors.Is(err, ErrMissingBinary) {
		t.Errorf("err = %v, want ErrMissingBinary", err)
	}
}

func TestValidateInstallationMissingBinary(t *testing.T) {
	c := newTestClient(&fakeRunner{}, nil)
	_, err := c.ValidateInstallation(context.Background(), filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, ErrMissingBinary) {
		t.Errorf("err = %v, want ErrMissingBinary", err)
	}
}

func TestLoginSuccess(t *testing.T) {
	runner := &fakeRunner{procs: []*fakeProcess{
		scriptedProcess(nil, "Connecting to Steam3...", "Logging in user 'someone'...", "Got AppInfo"),
	}}
	c := newTestClient(runner, &fakeChecker{})

	result, err := c.Login(context.Background(), LoginOptions{
		Path: fakeBinary(t), Username: "someone", Password: "pw",
	})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if result.RequiresGuard {
		t.Errorf("RequiresGuard = true, want false")
	}

	// Login must run in manifest-only mode so nothing gets downloaded.
	found := false
	for _, arg := range runner.starts[0] {
		if arg == "-manifest-only" {
			found = true
		}
	}
	if !found {
		t.Errorf("login args %v missing -manifest-only", runner.starts[0])
	}
}

func TestLoginGuardEmailWithoutCode(t *testing.T) {
	proc := hangingProcess("STEAM GUARD! Please enter the auth code sent to the email at s****@example.com:")
	runner := &fakeRunner{procs: []*fakeProcess{proc}}
	c := newTestClient(runner, &fakeChecker{})

	var guardEvents []Event
	result, err := c.Login(context.Background(), LoginOptions{
		Path: fakeBinary(t), Username: "someone", Password: "pw",
		Sink: func(e Event) {
			if e.Type == EventGuard {
				guardEvents = append(guardEvents, e)
			}
		},
	})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if !result.RequiresGuard || result.GuardType != GuardEmail {
		t.Errorf("result = %+v, want email guard required", result)
	}
	if !proc.wasKilled() {
		t.Error("child process was not terminated on unanswered guard prompt")
	}
	if len(guardEvents) != 1 || guardEvents[0].GuardType != GuardEmail {
		t.Errorf("guard events = %+v", guardEvents)
	}
}

func TestLoginGuardEmailWithCode(t *testing.T) {
	proc := hangingProcess("Please enter the Steam Guard code from your email:")
	proc.onInput = func(p *fakeProcess, _ string) {
		p.out <- "Logging in user 'someone'..."
		p.closeOnce.Do(func() { close(p.out) })
	}
	runner := &fakeRunner{procs: []*fakeProcess{proc}}
	c := newTestClient(runner, &fakeChecker{})

	result, err := c.Login(context.Background(), LoginOptions{
		Path: fakeBinary(t), Username: "someone", Password: "pw", GuardCode: "ABC12",
	})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if result.RequiresGuard {
		t.Error("guard reported as required although the code was supplied")
	}
	if len(proc.inputs) != 1 || proc.inputs[0] != "ABC12" {
		t.Errorf("child stdin received %v, want the guard code", proc.inputs)
	}
}

func TestLoginGuardMobileWithoutConfirmation(t *testing.T) {
	proc := hangingProcess("Use the Steam Mobile App to confirm your sign in...")
	runner := &fakeRunner{procs: []*fakeProcess{proc}}
	c := newTestClient(runner, &fakeChecker{})

	result, err := c.Login(context.Background(), LoginOptions{
		Path: fakeBinary(t), Username: "someone", Password: "pw",
	})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if !result.RequiresGuard || result.GuardType != GuardMobile {
		t.Errorf("result = %+v, want mobile guard required", result)
	}
	if !proc.wasKilled() {
		t.Error("child process was not terminated")
	}
}

func TestLoginGuardMobileConfirmedKeepsRunning(t *testing.T) {
	proc := scriptedProcess(nil,
		"Use the Steam Mobile App to confirm your sign in...",
		"Logging in user 'someone'...",
	)
	runner := &fakeRunner{procs: []*fakeProcess{proc}}
	c := newTestClient(runner, &fakeChecker{})

	result, err := c.Login(context.Background(), LoginOptions{
		Path: fakeBinary(t), Username: "someone", Password: "pw", GuardConfirmed: true,
	})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if result.RequiresGuard {
		t.Error("confirmed mobile guard still reported as required")
	}
	if proc.wasKilled() {
		t.Error("process was killed despite confirmation")
	}
}

func TestLoginConflictFailsFast(t *testing.T) {
	checker := &fakeChecker{answers: []bool{true}}
	runner := &fakeRunner{}
	c := newTestClient(runner, checker)

	_, err := c.Login(context.Background(), LoginOptions{
		Path: fakeBinary(t), Username: "someone", Password: "pw",
	})
	if !errors.Is(err, ErrPlatformConflict) {
		t.Fatalf("err = %v, want ErrPlatformConflict", err)
	}
	if checker.calls != 1 {
		t.Errorf("login preflight checked %d times, want exactly 1 (fail fast)", checker.calls)
	}
	if len(runner.starts) != 0 {
		t.Error("downloader spawned despite platform conflict")
	}
}

func TestRejectsConcurrentOperations(t *testing.T) {
	c := newTestClient(&fakeRunner{}, nil)
	c.busy = true

	if _, err := c.Login(context.Background(), LoginOptions{Username: "u"}); !errors.Is(err, ErrOperationInProgress) {
		t.Errorf("Login err = %v, want ErrOperationInProgress", err)
	}
	if err := c.DownloadBranch(context.Background(), DownloadOptions{Username: "u"}); !errors.Is(err, ErrOperationInProgress) {
		t.Errorf("DownloadBranch err = %v, want ErrOperationInProgress", err)
	}
}

func downloadOpts(t *testing.T, sink Sink) DownloadOptions {
	t.Helper()
	return DownloadOptions{
		Path:       fakeBinary(t),
		Username:   "someone",
		Password:   "pw",
		InstallDir: t.TempDir(),
		Branch:     steamapp.BranchBeta,
		Sink:       sink,
	}
}

func TestDownloadConflictThenSuccess(t *testing.T) {
	// Client running during the first two preflight checks, gone on the
	// third: the download proceeds and the downloader is spawned exactly
	// once, only after the conflict cleared.
	checker := &fakeChecker{answers: []bool{true, true, false}}
	runner := &fakeRunner{procs: []*fakeProcess{
		scriptedProcess(nil, "Downloading depot 2 of 4", "Total downloaded: 5012 MB"),
	}}
	c := newTestClient(runner, checker)

	if err := c.DownloadBranch(context.Background(), downloadOpts(t, nil)); err != nil {
		t.Fatalf("DownloadBranch() error = %v", err)
	}
	if checker.calls != 3 {
		t.Errorf("preflight checks = %d, want 3", checker.calls)
	}
	if len(runner.starts) != 1 {
		t.Errorf("downloader spawned %d times, want 1", len(runner.starts))
	}
}

func TestDownloadPersistentConflict(t *testing.T) {
	checker := &fakeChecker{answers: []bool{true, true, true}}
	runner := &fakeRunner{}
	c := newTestClient(runner, checker)

	err := c.DownloadBranch(context.Background(), downloadOpts(t, nil))
	if !errors.Is(err, ErrPlatformConflict) {
		t.Fatalf("err = %v, want ErrPlatformConflict", err)
	}
	if len(runner.starts) != 0 {
		t.Error("downloader spawned while the conflict never cleared")
	}
}

func TestDownloadRetriesOnAuthFailure(t *testing.T) {
	runner := &fakeRunner{procs: []*fakeProcess{
		scriptedProcess(errors.New("exit status 1"), "Login Failed: InvalidPassword"),
		scriptedProcess(nil, "Logging in user 'someone'...", "Download complete"),
	}}
	c := newTestClient(runner, &fakeChecker{})

	if err := c.DownloadBranch(context.Background(), downloadOpts(t, nil)); err != nil {
		t.Fatalf("DownloadBranch() error = %v", err)
	}
	if len(runner.starts) != 2 {
		t.Errorf("downloader spawned %d times, want 2 (one retry)", len(runner.starts))
	}
}

func TestDownloadAbortsOnUnrecognizedFailure(t *testing.T) {
	runner := &fakeRunner{procs: []*fakeProcess{
		scriptedProcess(errors.New("exit status 3"), "Error: disk write failure"),
		scriptedProcess(nil, "Download complete"),
	}}
	c := newTestClient(runner, &fakeChecker{})

	err := c.DownloadBranch(context.Background(), downloadOpts(t, nil))
	if err == nil {
		t.Fatal("expected error")
	}
	if len(runner.starts) != 1 {
		t.Errorf("downloader spawned %d times, want 1 (no retry for unrecognized failures)", len(runner.starts))
	}
}

func TestDownloadGuardAbortsRetry(t *testing.T) {
	runner := &fakeRunner{procs: []*fakeProcess{
		hangingProcess("STEAM GUARD! Please enter the auth code sent to the email at x:"),
	}}
	c := newTestClient(runner, &fakeChecker{})

	err := c.DownloadBranch(context.Background(), downloadOpts(t, nil))
	if !errors.Is(err, ErrGuardRequired) {
		t.Fatalf("err = %v, want ErrGuardRequired", err)
	}
	if len(runner.starts) != 1 {
		t.Errorf("downloader spawned %d times, want 1", len(runner.starts))
	}
}

func TestDownloadProgressSequence(t *testing.T) {
	runner := &fakeRunner{procs: []*fakeProcess{
		scriptedProcess(nil, "Downloading depot 2 of 4", " (55%)", "Download complete"),
	}}
	c := newTestClient(runner, &fakeChecker{})

	var percents []int
	err := c.DownloadBranch(context.Background(), downloadOpts(t, func(e Event) {
		if e.Type == EventPercent {
			percents = append(percents, e.Value)
		}
	}))
	if err != nil {
		t.Fatalf("DownloadBranch() error = %v", err)
	}

	if len(percents) == 0 {
		t.Fatal("no percent events emitted")
	}
	for i := 1; i < len(percents); i++ {
		if percents[i] < percents[i-1] {
			t.Fatalf("percent regressed: %v", percents)
		}
	}
	if final := percents[len(percents)-1]; final != 100 {
		t.Errorf("final percent = %d, want 100; sequence %v", final, percents)
	}
}

func TestDownloadOutputMasksPassword(t *testing.T) {
	runner := &fakeRunner{procs: []*fakeProcess{
		scriptedProcess(nil, "using password pw-sup3r-secret for login", "Download complete"),
	}}
	c := newTestClient(runner, &fakeChecker{})

	opts := downloadOpts(t, nil)
	opts.Password = "pw-sup3r-secret"

	var outputs []string
	opts.Sink = func(e Event) {
		if e.Type == EventOutput {
			outputs = append(outputs, e.Message)
		}
	}

	if err := c.DownloadBranch(context.Background(), opts); err != nil {
		t.Fatalf("DownloadBranch() error = %v", err)
	}
	for _, line := range outputs {
		if containsAny(line, []string{"pw-sup3r-secret"}) {
			t.Fatalf("password leaked into output event: %q", line)
		}
	}
}

func TestCancelDuringDownload(t *testing.T) {
	proc := hangingProcess("Downloading depot 1 of 4")
	runner := &fakeRunner{procs: []*fakeProcess{proc}}
	c := newTestClient(runner, &fakeChecker{})

	opts := downloadOpts(t, nil)
	opts.Sink = func(e Event) {
		if e.Type == EventOutput {
			// Cancel as soon as output starts flowing.
			if err := c.Cancel(); err != nil {
				t.Errorf("Cancel() error = %v", err)
			}
		}
	}

	err := c.DownloadBranch(context.Background(), opts)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if !proc.wasKilled() {
		t.Error("child process still running after Cancel")
	}
}

func TestCancelWithNothingRunning(t *testing.T) {
	c := newTestClient(&fakeRunner{}, nil)
	if err := c.Cancel(); err != nil {
		t.Errorf("Cancel() with no process = %v, want nil", err)
	}
}
