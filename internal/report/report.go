// Package report renders recorded frames as text or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"perfring/internal/profiler"
)

// ScopeReport is one scope line of a frame.
type ScopeReport struct {
	Name       string  `json:"name"`
	Depth      int     `json:"depth"`
	Color      uint8   `json:"color"`
	DurationUS float64 `json:"duration_us"`
	Open       bool    `json:"open,omitempty"`
}

// FrameReport describes one completed frame.
type FrameReport struct {
	Seq        uint64        `json:"seq"`
	Offset     int           `json:"offset"`
	DurationUS float64       `json:"duration_us"`
	OverBudget bool          `json:"over_budget"`
	MemUsage   uint64        `json:"mem_usage"`
	Allocs     uint64        `json:"allocs"`
	Scopes     []ScopeReport `json:"scopes"`
}

// StatsReport mirrors profiler.Stats.
type StatsReport struct {
	Frames       uint64 `json:"frames"`
	LiveMarkers  int    `json:"live_markers"`
	FreeMarkers  int    `json:"free_markers"`
	ScopesInUse  int    `json:"scopes_in_use"`
	FreeScopes   int    `json:"free_scopes"`
	ScopeRecords int    `json:"scope_records"`
	Violations   uint64 `json:"violations"`
}

// Report is the document printed by `perfring report`.
type Report struct {
	BudgetUS  float64       `json:"budget_us"`
	LastError string        `json:"last_error,omitempty"`
	Stats     StatsReport   `json:"stats"`
	Frames    []FrameReport `json:"frames"`
}

// Frame converts a snapshot taken at offset.
func Frame(s profiler.Snapshot, offset int) FrameReport {
	fr := FrameReport{
		Seq:        s.Seq,
		Offset:     offset,
		DurationUS: micros(s.TicksToDuration(s.Elapsed)),
		OverBudget: s.OverBudget,
		MemUsage:   s.Counters.MemUsage,
		Allocs:     s.Counters.Allocs,
		Scopes:     make([]ScopeReport, 0, len(s.Scopes)),
	}
	for _, sc := range s.Scopes {
		fr.Scopes = append(fr.Scopes, ScopeReport{
			Name:       sc.Name,
			Depth:      sc.Depth,
			Color:      uint8(sc.Color),
			DurationUS: micros(s.TicksToDuration(sc.Elapsed())),
			Open:       sc.Open(),
		})
	}
	return fr
}

// Build collects up to n of the newest completed frames of p.
func Build(p *profiler.Profiler, n int, budget time.Duration) Report {
	st := p.Stats()
	r := Report{
		BudgetUS: micros(budget),
		Stats: StatsReport{
			Frames:       st.Frames,
			LiveMarkers:  st.LiveMarkers,
			FreeMarkers:  st.FreeMarkers,
			ScopesInUse:  st.ScopesInUse,
			FreeScopes:   st.FreeScopes,
			ScopeRecords: st.ScopeRecords,
			Violations:   st.Violations,
		},
	}
	if err := p.Err(); err != nil {
		r.LastError = err.Error()
	}
	for off, v := range p.Frames() {
		if len(r.Frames) >= n {
			break
		}
		r.Frames = append(r.Frames, Frame(v.Snapshot(), off))
	}
	return r
}

func micros(d time.Duration) float64 {
	return float64(d) / float64(time.Microsecond)
}

// WriteJSON writes r as indented JSON.
func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// TextOptions tune WriteText.
type TextOptions struct {
	NameWidth int // columns for scope names, default 28
}

var (
	okColor    = color.New(color.FgGreen)
	overColor  = color.New(color.FgRed, color.Bold)
	dimColor   = color.New(color.Faint)
	printer    = message.NewPrinter(language.English)
	ellipsis   = "…"
	indentUnit = "  "
)

// WriteText writes r as an indented scope listing per frame. Colors follow
// color.NoColor.
func WriteText(w io.Writer, r Report, opts TextOptions) error {
	if opts.NameWidth <= 0 {
		opts.NameWidth = 28
	}
	var b strings.Builder
	for _, f := range r.Frames {
		status := okColor.Sprint("ok")
		if f.OverBudget {
			status = overColor.Sprint("over budget")
		}
		fmt.Fprintf(&b, "frame #%s  %s  %s  mem %s  allocs %s\n",
			printer.Sprintf("%d", f.Seq), FormatMicros(f.DurationUS), status,
			FormatBytes(f.MemUsage), printer.Sprintf("%d", f.Allocs))
		for _, sc := range f.Scopes {
			indent := strings.Repeat(indentUnit, sc.Depth)
			width := max(opts.NameWidth-runewidth.StringWidth(indent), 4)
			name := runewidth.FillRight(Truncate(sc.Name, width), width)
			dur := FormatMicros(sc.DurationUS)
			if sc.Open {
				dur = dimColor.Sprint("open")
			}
			fmt.Fprintf(&b, "%s%s %s\n", indent, name, dur)
		}
	}
	st := r.Stats
	fmt.Fprintf(&b, "frames %s  markers %d live / %d free  scopes %d in use / %d free  violations %d\n",
		printer.Sprintf("%d", st.Frames), st.LiveMarkers, st.FreeMarkers, st.ScopesInUse, st.FreeScopes, st.Violations)
	if r.LastError != "" {
		fmt.Fprintf(&b, "last violation: %s\n", overColor.Sprint(r.LastError))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Truncate shortens name to at most width terminal columns. The result is a
// new string.
func Truncate(name string, width int) string {
	return runewidth.Truncate(name, width, ellipsis)
}

// FormatMicros renders a duration in microseconds: whole uS below one
// millisecond, MS with two decimals above.
func FormatMicros(us float64) string {
	if us < 1000 {
		return printer.Sprintf("%d uS", int64(us))
	}
	return printer.Sprintf("%.2f MS", us/1000)
}

// FormatDuration is FormatMicros for a time.Duration.
func FormatDuration(d time.Duration) string { return FormatMicros(micros(d)) }

// FormatBytes renders n as B, KB or MB.
func FormatBytes(n uint64) string {
	switch {
	case n < 1<<10:
		return printer.Sprintf("%d B", n)
	case n < 1<<20:
		return printer.Sprintf("%d KB", n>>10)
	default:
		return printer.Sprintf("%d MB", n>>20)
	}
}
