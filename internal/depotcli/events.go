package depotcli

// EventType classifies a progress event. The set and its string values are
// schema-stable: the GUI shell deserializes them.
type EventType string

const (
	EventInfo    EventType = "info"
	EventOutput  EventType = "output"
	EventError   EventType = "error"
	EventPercent EventType = "percent"
	EventGuard   EventType = "steam-guard"
)

// GuardType names the kind of second-factor challenge the downloader raised.
type GuardType string

const (
	GuardNone   GuardType = ""
	GuardEmail  GuardType = "email"
	GuardMobile GuardType = "mobile"
)

// Event is one progress notification streamed to the caller.
type Event struct {
	Type      EventType `json:"type"`
	Value     int       `json:"value,omitempty"`
	Message   string    `json:"message,omitempty"`
	GuardType GuardType `json:"guardType,omitempty"`
}

// Sink receives events. Implementations must be fast or buffer internally;
// the session loop calls them inline.
type Sink func(Event)

// nopSink discards events so a nil sink is always safe.
func nopSink(Event) {}
