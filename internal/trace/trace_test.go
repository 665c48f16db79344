package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelShouldEmit(t *testing.T) {
	tests := []struct {
		level Level
		cat   Category
		want  bool
	}{
		{LevelOff, CategoryFault, false},
		{LevelError, CategoryFault, true},
		{LevelError, CategorySession, false},
		{LevelFrame, CategoryFrame, true},
		{LevelFrame, CategoryRetire, false},
		{LevelDetail, CategoryRetire, true},
		{LevelDetail, CategoryZone, false},
		{LevelDebug, CategoryZone, true},
	}
	for _, tt := range tests {
		if got := tt.level.ShouldEmit(tt.cat); got != tt.want {
			t.Errorf("%s.ShouldEmit(%s) = %v, want %v", tt.level, tt.cat, got, tt.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"off", "error", "frame", "detail", "debug"} {
		l, err := ParseLevel(s)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", s, err)
		}
		if l.String() != s {
			t.Errorf("round trip %q -> %q", s, l.String())
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("ParseLevel(loud) should fail")
	}
}

func TestRingTracerWraps(t *testing.T) {
	r := NewRingTracer(3, LevelDebug)
	for i := range 5 {
		r.Emit(&Event{Kind: KindPoint, Category: CategoryFrame, Frame: uint64(i + 1), Name: "f"})
	}
	got := r.Snapshot()
	if len(got) != 3 {
		t.Fatalf("Snapshot len = %d, want 3", len(got))
	}
	for i, ev := range got {
		if want := uint64(i + 3); ev.Frame != want {
			t.Errorf("event %d frame = %d, want %d", i, ev.Frame, want)
		}
	}
	if got[0].Seq >= got[1].Seq || got[1].Seq >= got[2].Seq {
		t.Errorf("sequence numbers not increasing: %d %d %d", got[0].Seq, got[1].Seq, got[2].Seq)
	}
}

func TestRingTracerFiltersByLevel(t *testing.T) {
	r := NewRingTracer(8, LevelFrame)
	r.Emit(&Event{Kind: KindBegin, Category: CategoryZone, Name: "zone"})
	r.Emit(&Event{Kind: KindBegin, Category: CategoryFrame, Name: "frame"})
	r.Emit(&Event{Kind: KindHeartbeat, Category: CategoryZone, Name: "heartbeat"})
	got := r.Snapshot()
	if len(got) != 2 || got[0].Name != "frame" || got[1].Name != "heartbeat" {
		t.Errorf("Snapshot = %+v", got)
	}
}

func TestStreamTracerText(t *testing.T) {
	var buf bytes.Buffer
	s := NewStreamTracer(&buf, LevelDebug, FormatText)
	s.Emit(&Event{
		Ticks: 42, Kind: KindBegin, Category: CategoryZone, Frame: 7, Depth: 2,
		Name: "physics", Extra: map[string]string{"b": "2", "a": "1"},
	})
	line := buf.String()
	for _, want := range []string{"#7", "    → physics", "{a=1, b=2}"} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q does not contain %q", line, want)
		}
	}
	if s.Err() != nil {
		t.Errorf("Err = %v", s.Err())
	}
}

func TestStreamTracerNDJSON(t *testing.T) {
	var buf bytes.Buffer
	s := NewStreamTracer(&buf, LevelError, FormatNDJSON)
	s.Emit(&Event{Kind: KindPoint, Category: CategoryFault, Frame: 3, Name: "violation", Detail: "boom"})
	s.Emit(&Event{Kind: KindBegin, Category: CategoryFrame, Name: "frame"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["category"] != "fault" || decoded["detail"] != "boom" || decoded["frame"] != float64(3) {
		t.Errorf("decoded = %v", decoded)
	}
}

func TestNewOffIsNop(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil {
		t.Fatal(err)
	}
	if tr.Enabled() {
		t.Error("off tracer is enabled")
	}
}

func TestNewPicksSink(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelFrame, Sink: SinkStream, Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := tr.(*StreamTracer); !ok {
		t.Fatalf("New(SinkStream) = %T", tr)
	}
	tr.Emit(&Event{Kind: KindBegin, Category: CategoryFrame, Name: "frame"})
	if buf.Len() == 0 {
		t.Error("stream did not receive the event")
	}

	tr, err = New(Config{Level: LevelFrame, Sink: SinkRing})
	if err != nil {
		t.Fatal(err)
	}
	ring, ok := tr.(*RingTracer)
	if !ok {
		t.Fatalf("New(SinkRing) = %T", tr)
	}
	ring.Emit(&Event{Kind: KindBegin, Category: CategoryFrame, Name: "frame"})
	if len(ring.Snapshot()) != 1 {
		t.Error("ring did not keep the event")
	}

	if _, err := New(Config{Level: LevelFrame, Sink: Sink(9)}); err == nil {
		t.Error("unknown sink accepted")
	}
}

func TestParseSink(t *testing.T) {
	for in, want := range map[string]Sink{"": SinkStream, "stream": SinkStream, " Ring ": SinkRing} {
		got, err := ParseSink(in)
		if err != nil || got != want {
			t.Errorf("ParseSink(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseSink("both"); err == nil {
		t.Error("ParseSink(both) accepted")
	}
}

func TestContextRoundTrip(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Error("empty context should yield Nop")
	}
	r := NewRingTracer(1, LevelDebug)
	ctx := WithTracer(context.Background(), r)
	if FromContext(ctx) != Tracer(r) {
		t.Error("tracer lost in context")
	}
}

func TestFormatForPath(t *testing.T) {
	tests := map[string]Format{
		"out.ndjson": FormatNDJSON,
		"out.json":   FormatNDJSON,
		"out.txt":    FormatText,
		"":           FormatText,
	}
	for path, want := range tests {
		if got := FormatForPath(path); got != want {
			t.Errorf("FormatForPath(%q) = %v, want %v", path, got, want)
		}
	}
}
