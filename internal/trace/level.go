package trace

import "fmt"

// Level controls tracing verbosity.
type Level uint8

const (
	// LevelOff disables tracing.
	LevelOff    Level = iota // no tracing
	LevelError               // contract violations
	LevelFrame               // session + frame boundaries
	LevelDetail              // plus retire events
	LevelDebug               // everything including zones
)

// String returns the string representation of Level.
func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelError:
		return "error"
	case LevelFrame:
		return "frame"
	case LevelDetail:
		return "detail"
	case LevelDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// ParseLevel converts a string to a Level.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "off", "OFF":
		return LevelOff, nil
	case "error", "ERROR":
		return LevelError, nil
	case "frame", "FRAME":
		return LevelFrame, nil
	case "detail", "DETAIL":
		return LevelDetail, nil
	case "debug", "DEBUG":
		return LevelDebug, nil
	default:
		return LevelOff, fmt.Errorf("invalid trace level: %q (expected: off|error|frame|detail|debug)", s)
	}
}

// ShouldEmit returns true if events of the given category pass this level.
func (l Level) ShouldEmit(c Category) bool {
	switch l {
	case LevelOff:
		return false
	case LevelError:
		return c == CategoryFault
	case LevelFrame:
		return c <= CategoryFrame
	case LevelDetail:
		return c <= CategoryRetire
	case LevelDebug:
		return true
	}
	return false
}
