package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"perfring/internal/clock"
	"perfring/internal/profiler"
)

func init() { color.NoColor = true }

func TestFormatMicros(t *testing.T) {
	tests := []struct {
		us   float64
		want string
	}{
		{0, "0 uS"},
		{999.9, "999 uS"},
		{1000, "1.00 MS"},
		{16667, "16.67 MS"},
		{1_234_500, "1,234.50 MS"},
	}
	for _, tt := range tests {
		if got := FormatMicros(tt.us); got != tt.want {
			t.Errorf("FormatMicros(%v) = %q, want %q", tt.us, got, tt.want)
		}
	}
	if got := FormatDuration(1500 * time.Microsecond); got != "1.50 MS" {
		t.Errorf("FormatDuration = %q", got)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    uint64
		want string
	}{
		{512, "512 B"},
		{2048, "2 KB"},
		{3 << 20, "3 MB"},
		{5000 << 20, "5,000 MB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.n); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("physics", 20); got != "physics" {
		t.Errorf("short name changed: %q", got)
	}
	got := Truncate("a_very_long_scope_name", 8)
	if got != "a_very_…" {
		t.Errorf("Truncate = %q", got)
	}
	// wide runes count two columns
	if got := Truncate("物理演算処理", 5); got != "物理…" {
		t.Errorf("Truncate wide = %q", got)
	}
}

func record(t *testing.T) *profiler.Profiler {
	t.Helper()
	clk := clock.NewManual(1, 1_000_000)
	p := profiler.New(profiler.Config{Clock: clk, Budget: 10 * time.Millisecond})
	for _, frameUS := range []uint64{4000, 12000} {
		p.BeginFrame()
		p.BeginScope("update", 1)
		clk.Advance(500)
		p.BeginScope("physics", 2)
		clk.Advance(frameUS - 1000)
		p.EndScope()
		clk.Advance(500)
		p.EndScope()
		p.EndFrame()
	}
	return p
}

func TestBuild(t *testing.T) {
	r := Build(record(t), 8, 10*time.Millisecond)
	if len(r.Frames) != 2 {
		t.Fatalf("frames = %d", len(r.Frames))
	}
	newest := r.Frames[0]
	if newest.Seq != 2 || newest.Offset != 0 || !newest.OverBudget || newest.DurationUS != 12000 {
		t.Errorf("newest = %+v", newest)
	}
	if r.Frames[1].OverBudget {
		t.Error("4ms frame marked over budget")
	}
	if len(newest.Scopes) != 2 || newest.Scopes[1].Name != "physics" || newest.Scopes[1].Depth != 2 {
		t.Errorf("scopes = %+v", newest.Scopes)
	}
	if newest.Scopes[1].DurationUS != 11000 {
		t.Errorf("physics = %v us", newest.Scopes[1].DurationUS)
	}
	if r.BudgetUS != 10000 || r.Stats.Frames != 2 || r.Stats.LiveMarkers != 2 {
		t.Errorf("report = %+v", r)
	}

	if one := Build(record(t), 1, time.Millisecond); len(one.Frames) != 1 || one.Frames[0].Seq != 2 {
		t.Errorf("limited build = %+v", one.Frames)
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, Build(record(t), 8, 10*time.Millisecond), TextOptions{}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"frame #2  12.00 MS  over budget",
		"frame #1  4.00 MS  ok",
		"    physics",
		"11.00 MS",
		"markers 2 live / 0 free",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
}

func TestWriteTextOpenScope(t *testing.T) {
	p := profiler.New(profiler.Config{Clock: clock.NewStepping(1, 1000, 1)})
	p.BeginFrame()
	p.BeginScope("dangling", 0)
	p.EndFrame()

	var buf bytes.Buffer
	if err := WriteText(&buf, Build(p, 1, time.Second), TextOptions{}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "open") || !strings.Contains(buf.String(), "last violation") {
		t.Errorf("output:\n%s", buf.String())
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, Build(record(t), 8, 10*time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	var back Report
	if err := json.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatal(err)
	}
	if len(back.Frames) != 2 || back.Frames[0].Scopes[0].Name != "update" {
		t.Errorf("decoded = %+v", back)
	}
	if !strings.Contains(buf.String(), `"over_budget": true`) {
		t.Errorf("json:\n%s", buf.String())
	}
}
