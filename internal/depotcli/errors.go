package depotcli

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Error taxonomy. Expected failure modes are sentinels so callers can branch
// with errors.Is; only programmer errors (malformed arguments) surface as
// plain errors.
var (
	// ErrMissingBinary means the downloader could not be resolved. Fatal
	// and user-actionable; never retried.
	ErrMissingBinary = errors.New("downloader binary not found")

	// ErrPlatformConflict means the platform client is running and held the
	// session through every preflight attempt.
	ErrPlatformConflict = errors.New("platform client is running")

	// ErrAuthenticationFailed means the downloader rejected the supplied
	// credentials. Terminal for the attempt.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrGuardRequired means a second-factor challenge must be answered
	// before the operation can be retried. Not a failure of credentials.
	ErrGuardRequired = errors.New("second-factor confirmation required")

	// ErrOperationInProgress means another download or login session owns
	// the single process slot.
	ErrOperationInProgress = errors.New("another download operation is in progress")

	// ErrCancelled means the session was terminated via Cancel.
	ErrCancelled = errors.New("operation cancelled")
)

// RedactedError wraps an error with a scrubbed message while preserving the
// chain for errors.Is/errors.As checks.
type RedactedError struct {
	message string
	wrapped error
}

// Error returns the redacted message.
func (e *RedactedError) Error() string {
	return e.message
}

// Unwrap returns the wrapped error.
func (e *RedactedError) Unwrap() error {
	return e.wrapped
}

// newRedactedError builds a RedactedError from err, scrubbing the given
// secrets out of the message at construction time. Nothing downstream (logs,
// events, wrapping) ever sees the raw text.
func newRedactedError(err error, context string, secrets ...string) error {
	if err == nil {
		return nil
	}
	return &RedactedError{
		message: fmt.Sprintf("%s: %s", context, redactSensitiveInfo(err.Error(), secrets...)),
		wrapped: err,
	}
}

var (
	reHomeLinux = regexp.MustCompile(`/home/[^/\s]+`)
	reHomeMac   = regexp.MustCompile(`/Users/[^/\s]+`)
)

// redactSensitiveInfo removes credential material and username-bearing paths
// from a message.
func redactSensitiveInfo(msg string, secrets ...string) string {
	const maxLen = 400
	if len(msg) > maxLen {
		msg = msg[:maxLen] + "..."
	}

	for _, secret := range secrets {
		if secret != "" {
			msg = strings.ReplaceAll(msg, secret, maskValue)
		}
	}

	if home, err := os.UserHomeDir(); err == nil && home != "" {
		msg = strings.ReplaceAll(msg, home, "$HOME")
	}
	msg = reHomeLinux.ReplaceAllString(msg, "/home/<user>")
	msg = reHomeMac.ReplaceAllString(msg, "/Users/<user>")

	return msg
}
