package depotcli

import "time"

// Clock provides time operations. This interface enables deterministic
// testing of progress coalescing.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the actual system time.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// TestClock implements Clock with a settable time for testing.
type TestClock struct {
	Current time.Time
}

// Now returns the test clock's current time.
func (t *TestClock) Now() time.Time {
	return t.Current
}

// Advance moves the test clock forward.
func (t *TestClock) Advance(d time.Duration) {
	t.Current = t.Current.Add(d)
}
