package trace

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
)

// Tracer receives the diagnostic events of a run. Emit must be safe for
// concurrent use.
type Tracer interface {
	Emit(ev *Event)
	Flush() error
	Close() error
	Level() Level
	Enabled() bool // Level() > LevelOff
}

var seq atomic.Uint64

// NextSeq hands out event sequence numbers, starting at 1.
func NextSeq() uint64 { return seq.Add(1) }

// Sink selects where a tracer keeps its events.
type Sink uint8

const (
	SinkStream Sink = iota + 1 // written as they happen
	SinkRing                   // last RingSize events, dumped on exit
)

var sinkNames = map[Sink]string{
	SinkStream: "stream",
	SinkRing:   "ring",
}

func (s Sink) String() string {
	if name, ok := sinkNames[s]; ok {
		return name
	}
	return fmt.Sprintf("sink(%d)", uint8(s))
}

// ParseSink reads a --trace-mode value. Case and surrounding blanks are
// ignored; the empty string means SinkStream.
func ParseSink(s string) (Sink, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SinkStream, nil
	}
	for sink, name := range sinkNames {
		if strings.EqualFold(s, name) {
			return sink, nil
		}
	}
	return 0, fmt.Errorf("unknown trace sink %q, want stream or ring", s)
}

// DefaultRingSize is used when Config.RingSize is not positive.
const DefaultRingSize = 4096

// Config describes the tracer New builds.
type Config struct {
	Level      Level
	Sink       Sink
	Format     Format    // FormatAuto picks one from OutputPath
	Output     io.Writer // stream sink; overrides OutputPath
	OutputPath string    // stream sink; "" or "-" is stderr
	RingSize   int       // ring sink capacity
}

// New builds the tracer cfg describes. LevelOff always yields Nop.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	switch cfg.Sink {
	case SinkRing:
		size := cfg.RingSize
		if size <= 0 {
			size = DefaultRingSize
		}
		return NewRingTracer(size, cfg.Level), nil
	case SinkStream, 0:
		w, err := cfg.writer()
		if err != nil {
			return nil, err
		}
		format := cfg.Format
		if format == FormatAuto {
			format = FormatForPath(cfg.OutputPath)
		}
		return NewStreamTracer(w, cfg.Level, format), nil
	}
	return nil, fmt.Errorf("trace: unsupported sink %v", cfg.Sink)
}

func (cfg Config) writer() (io.Writer, error) {
	switch {
	case cfg.Output != nil:
		return cfg.Output, nil
	case cfg.OutputPath == "", cfg.OutputPath == "-":
		// hide os.Stderr's Close from StreamTracer
		return struct{ io.Writer }{os.Stderr}, nil
	}
	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("trace: open output: %w", err)
	}
	return f, nil
}
