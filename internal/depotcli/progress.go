package depotcli

import (
	"regexp"
	"strconv"
	"time"
)

// flushInterval bounds event volume: percent emissions are coalesced so
// listeners see at most one every 50ms.
const flushInterval = 50 * time.Millisecond

var (
	reLeadingPercent = regexp.MustCompile(`^\s*(\d{1,3})%`)
	reParenPercent   = regexp.MustCompile(`\((\d{1,3})%\)`)
	reLabeledPercent = regexp.MustCompile(`(?i)progress:\s*(\d{1,3})%`)
	reBarePercent    = regexp.MustCompile(`(\d{1,3})%`)
	reDepotOfTotal   = regexp.MustCompile(`(?i)downloading depot (\d+) of (\d+)`)
)

// parsePercent extracts a progress percentage from one output line. The
// matchers run in priority order; the first hit wins. Returns -1, false when
// the line carries no progress information.
func parsePercent(line string) (int, bool) {
	for _, re := range []*regexp.Regexp{reLeadingPercent, reParenPercent, reLabeledPercent, reBarePercent} {
		if m := re.FindStringSubmatch(line); m != nil {
			if v, err := strconv.Atoi(m[1]); err == nil && v <= 100 {
				return v, true
			}
		}
	}

	if m := reDepotOfTotal.FindStringSubmatch(line); m != nil {
		current, err1 := strconv.Atoi(m[1])
		total, err2 := strconv.Atoi(m[2])
		if err1 == nil && err2 == nil && total > 0 && current <= total {
			return current * 100 / total, true
		}
	}

	if containsAny(line, completionPhrases) {
		return 100, true
	}

	return -1, false
}

// coalescer batches percent values into flush windows. Within one window the
// latest value wins (earlier ones are discarded, not averaged), and emitted
// values never decrease across a run.
type coalescer struct {
	sink      Sink
	clock     Clock
	lastFlush time.Time
	pending   int
	hasValue  bool
	emitted   int
}

func newCoalescer(sink Sink, clock Clock) *coalescer {
	return &coalescer{
		sink:    sink,
		clock:   clock,
		pending: -1,
		emitted: -1,
	}
}

// offer records a percent observation and flushes if the window has elapsed.
func (c *coalescer) offer(percent int) {
	if percent < 0 || percent > 100 {
		return
	}
	// Regressions are dropped at intake so a late low value can never
	// become the pending one.
	if percent <= c.emitted {
		return
	}

	c.pending = percent
	c.hasValue = true

	now := c.clock.Now()
	if c.lastFlush.IsZero() || now.Sub(c.lastFlush) >= flushInterval {
		c.flushAt(now)
	}
}

// flush emits any pending value regardless of window timing. Called at
// session end so the final percentage always reaches listeners.
func (c *coalescer) flush() {
	c.flushAt(c.clock.Now())
}

func (c *coalescer) flushAt(now time.Time) {
	if !c.hasValue {
		return
	}
	c.hasValue = false
	c.lastFlush = now

	if c.pending <= c.emitted {
		return
	}
	c.emitted = c.pending
	c.sink(Event{Type: EventPercent, Value: c.pending})
}
