package depotcli

import (
	"context"
	"fmt"
	"strings"
)

// The session lifecycle is: idle → preflight → spawned → (guard wait)? →
// running → succeeded | failed. Preflight runs before runSession is entered;
// the guard-wait phase either resolves immediately (input already supplied)
// or terminates the child and reports which factor is missing.

// sessionResult summarizes one finished downloader invocation.
type sessionResult struct {
	guard GuardType // set when an unanswered guard prompt ended the session
}

// tailSize bounds how much redacted output is kept for failure reporting.
const tailSize = 40

// runSession spawns the downloader and consumes its output until exit,
// handling guard prompts, streaming events, and classifying the outcome.
// The returned error covers expected failures (auth, conflict, cancel);
// a nil error with a non-empty guard field means required input is missing.
func (c *Client) runSession(ctx context.Context, bin string, args sessionArgs, sink Sink, guardCode string, guardConfirmed bool) (*sessionResult, error) {
	if sink == nil {
		sink = nopSink
	}

	c.log.Info("starting downloader", "args", strings.Join(args.masked(), " "))
	sink(Event{Type: EventInfo, Message: "starting downloader"})

	proc, err := c.runner.start(ctx, bin, args.build())
	if err != nil {
		return nil, newRedactedError(err, "spawn downloader", args.Password)
	}
	c.setCurrent(proc)

	result := &sessionResult{}
	progress := newCoalescer(sink, c.clock)

	var (
		tail         []string
		guardHandled bool
		sawSuccess   bool
		sawAuthFail  bool
		sawConflict  bool
	)

	for line := range proc.lines() {
		redacted := redactSensitiveInfo(line, args.Password)
		sink(Event{Type: EventOutput, Message: redacted})

		tail = append(tail, redacted)
		if len(tail) > tailSize {
			tail = tail[1:]
		}

		if percent, ok := parsePercent(line); ok {
			progress.offer(percent)
		}

		if guardType, ok := detectGuardPrompt(line); ok && !guardHandled {
			guardHandled = true
			switch guardType {
			case GuardEmail:
				if guardCode != "" {
					// Code already supplied: answer immediately and
					// keep the session alive.
					if err := proc.writeInput(guardCode); err != nil {
						proc.kill()
						return nil, newRedactedError(err, "supply guard code", args.Password, guardCode)
					}
					sink(Event{Type: EventInfo, Message: "submitted email guard code"})
					continue
				}
				result.guard = GuardEmail
			case GuardMobile:
				if guardConfirmed {
					// User already approved on the device; the
					// downloader completes on its own.
					sink(Event{Type: EventInfo, Message: "waiting for mobile confirmation"})
					continue
				}
				result.guard = GuardMobile
			}

			// Required input is missing. Terminate and report which
			// factor the caller must resupply.
			sink(Event{Type: EventGuard, GuardType: result.guard})
			proc.kill()
		}

		switch {
		case containsAny(line, loginFailurePhrases):
			sawAuthFail = true
		case containsAny(line, conflictPhrases):
			sawConflict = true
		case containsAny(line, loginSuccessPhrases) || containsAny(line, completionPhrases):
			sawSuccess = true
		}
	}

	exitErr := proc.wait()
	progress.flush()
	c.setCurrent(nil)

	if result.guard != GuardNone {
		return result, nil
	}

	if c.wasCancelled() {
		return nil, ErrCancelled
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("downloader session: %w", ctx.Err())
	}

	// Output substrings take priority over the exit code; the tool has
	// exited non-zero after fully successful downloads before.
	switch {
	case sawAuthFail:
		return nil, fmt.Errorf("%w: %s", ErrAuthenticationFailed, lastLine(tail))
	case sawConflict:
		return nil, ErrPlatformConflict
	case sawSuccess:
		return result, nil
	case exitErr == nil:
		return result, nil
	default:
		return nil, newRedactedError(fmt.Errorf("downloader exited: %v (%s)", exitErr, lastLine(tail)), "download failed", args.Password)
	}
}

func lastLine(tail []string) string {
	for i := len(tail) - 1; i >= 0; i-- {
		if strings.TrimSpace(tail[i]) != "" {
			return tail[i]
		}
	}
	return "no output"
}
