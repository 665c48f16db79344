package trace

// Kind represents the type of trace event.
type Kind uint8

const (
	// KindBegin marks the start of a frame or zone.
	KindBegin Kind = iota + 1
	// KindEnd marks the end of a frame or zone.
	KindEnd
	// KindPoint represents an instant event.
	KindPoint
	KindHeartbeat // periodic liveness signal
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindBegin:
		return "begin"
	case KindEnd:
		return "end"
	case KindPoint:
		return "point"
	case KindHeartbeat:
		return "heartbeat"
	default:
		return "unknown"
	}
}

// Category groups events by what produced them.
// Lower numeric values are emitted at lower levels.
type Category uint8

const (
	CategoryFault   Category = iota + 1 // contract violations
	CategorySession                     // tool lifecycle, heartbeats
	CategoryFrame                       // frame boundaries
	CategoryRetire                      // ring slot reuse
	CategoryZone                        // instrumented scopes
)

// String returns the string representation of Category.
func (c Category) String() string {
	switch c {
	case CategoryFault:
		return "fault"
	case CategorySession:
		return "session"
	case CategoryFrame:
		return "frame"
	case CategoryRetire:
		return "retire"
	case CategoryZone:
		return "zone"
	default:
		return "unknown"
	}
}

// Event represents a single trace event.
type Event struct {
	Ticks    uint64            // time source reading
	Seq      uint64            // global sequence number (monotonic)
	Kind     Kind              // event kind
	Category Category          // producer
	Frame    uint64            // frame sequence number, 0 outside frames
	Depth    int               // zone depth below the frame root
	Name     string            // e.g. "frame", "physics", "retire"
	Detail   string            // optional detail message
	Extra    map[string]string // extensible key-value pairs
}
