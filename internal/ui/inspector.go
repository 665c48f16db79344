// Package ui renders a live frame inspector with Bubble Tea.
package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"fortio.org/safecast"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"perfring/internal/frame"
	"perfring/internal/marker"
	"perfring/internal/profiler"
	"perfring/internal/report"
)

// Update is what the recording goroutine sends after each driven frame.
type Update struct {
	Driven  int                // frames driven so far, recorded or paused
	Frame   *profiler.Snapshot // nil when the frame was paused
	Stats   profiler.Stats
	LastErr string
}

type inspectorModel struct {
	title   string
	total   int
	budget  time.Duration
	updates <-chan Update
	spinner spinner.Model
	gauge   progress.Model

	history []profiler.Snapshot // oldest first, at most frame.Capacity
	last    Update
	follow  bool
	seq     uint64 // selected frame when not following
	cursor  int    // selected scope index within the selected frame
	width   int
	done    bool
	stay    bool
}

type updateMsg Update
type doneMsg struct{}

// Options configure the inspector.
type Options struct {
	Title  string
	Frames int           // frames the workload will drive
	Budget time.Duration // frame budget shown by the gauge
	// Stay keeps the inspector open after the workload finished, until the
	// user quits.
	Stay bool
}

// NewInspectorModel returns a Bubble Tea model that shows the frames
// received on updates. The channel is closed by the sender when recording
// stops.
func NewInspectorModel(opts Options, updates <-chan Update) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	gauge := progress.New(progress.WithDefaultGradient())
	gauge.Width = 40

	return &inspectorModel{
		title:   opts.Title,
		total:   opts.Frames,
		budget:  opts.Budget,
		updates: updates,
		spinner: sp,
		gauge:   gauge,
		follow:  true,
		width:   80,
		stay:    opts.Stay,
	}
}

func (m *inspectorModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForUpdate())
}

func (m *inspectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case updateMsg:
		m.apply(Update(msg))
		return m, m.listenForUpdate()
	case doneMsg:
		m.done = true
		if !m.stay {
			return m, tea.Quit
		}
		return m, nil
	case tea.KeyMsg:
		return m, m.handleKey(msg.String())
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.gauge.Width = max(msg.Width/2, 10)
		}
		return m, nil
	case progress.FrameMsg:
		gaugeModel, cmd := m.gauge.Update(msg)
		m.gauge = gaugeModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *inspectorModel) handleKey(key string) tea.Cmd {
	switch key {
	case "q", "ctrl+c", "esc":
		return tea.Quit
	case "left", "h":
		m.step(-1)
	case "right", "l":
		m.step(1)
	case "f", "end":
		m.follow = true
		m.cursor = 0
	case "up", "k":
		m.cursor = max(m.cursor-1, 0)
	case "down", "j":
		if s, ok := m.selected(); ok {
			m.cursor = min(m.cursor+1, max(len(s.Scopes)-1, 0))
		}
	}
	return nil
}

// step moves the frame selection towards older (-1) or newer (+1) frames
// and pins it.
func (m *inspectorModel) step(dir int) {
	if len(m.history) == 0 {
		return
	}
	idx := len(m.history) - 1
	if !m.follow {
		if i, ok := m.indexOf(m.seq); ok {
			idx = i
		}
	}
	idx = min(max(idx+dir, 0), len(m.history)-1)
	if idx == len(m.history)-1 && dir > 0 {
		m.follow = true
	} else {
		m.follow = false
	}
	m.seq = m.history[idx].Seq
	m.cursor = 0
}

func (m *inspectorModel) apply(u Update) {
	m.last = u
	if u.Frame == nil {
		return
	}
	if len(m.history) == frame.Capacity {
		copy(m.history, m.history[1:])
		m.history = m.history[:len(m.history)-1]
	}
	m.history = append(m.history, *u.Frame)
	if m.follow {
		m.cursor = 0
	} else if _, ok := m.indexOf(m.seq); !ok {
		// pinned frame fell out of the window
		m.follow = true
		m.cursor = 0
	}
}

func (m *inspectorModel) indexOf(seq uint64) (int, bool) {
	for i := range m.history {
		if m.history[i].Seq == seq {
			return i, true
		}
	}
	return 0, false
}

func (m *inspectorModel) selected() (*profiler.Snapshot, bool) {
	if len(m.history) == 0 {
		return nil, false
	}
	if m.follow {
		return &m.history[len(m.history)-1], true
	}
	i, ok := m.indexOf(m.seq)
	if !ok {
		return nil, false
	}
	return &m.history[i], true
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	overStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	cursorStyle = lipgloss.NewStyle().Reverse(true)
)

func (m *inspectorModel) View() string {
	var b strings.Builder

	header := fmt.Sprintf("%s  frame %d/%d", m.title, m.last.Driven, m.total)
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	b.WriteString(m.historyBars())
	b.WriteString("\n")

	sel, ok := m.selected()
	if !ok {
		b.WriteString(dimStyle.Render("waiting for frames"))
		b.WriteString("\n")
		return b.String()
	}

	mode := "following"
	if !m.follow {
		mode = "pinned"
	}
	durStyle := okStyle
	if sel.OverBudget {
		durStyle = overStyle
	}
	fmt.Fprintf(&b, "frame #%d (%s)  %s  mem %s\n", sel.Seq, mode,
		durStyle.Render(report.FormatDuration(sel.TicksToDuration(sel.Elapsed))),
		report.FormatBytes(sel.Counters.MemUsage))
	b.WriteString(m.gauge.ViewAs(budgetRatio(sel.TicksToDuration(sel.Elapsed), m.budget)))
	b.WriteString("\n\n")

	nameWidth := 24
	barWidth := max(m.width-nameWidth-16, 10)
	for i, sc := range sel.Scopes {
		indent := strings.Repeat("  ", sc.Depth-1)
		width := max(nameWidth-runewidth.StringWidth(indent), 4)
		name := runewidth.FillRight(report.Truncate(sc.Name, width), width)
		dur := report.FormatDuration(sel.TicksToDuration(sc.Elapsed()))
		if sc.Open() {
			dur = "open"
		}
		bar := scopeStyle(sc.Color).Render(strings.Repeat("█", barCells(sc.Elapsed(), sel.Elapsed, barWidth)))
		prefix := indent + name
		if i == m.cursor {
			prefix = cursorStyle.Render(prefix)
		}
		fmt.Fprintf(&b, "%s %10s %s", prefix, dur, bar)
		b.WriteString("\n")
	}

	st := m.last.Stats
	fmt.Fprintf(&b, "\n%s\n", dimStyle.Render(fmt.Sprintf(
		"markers %d live / %d free  scopes %d in use / %d free  violations %d",
		st.LiveMarkers, st.FreeMarkers, st.ScopesInUse, st.FreeScopes, st.Violations)))
	if m.last.LastErr != "" {
		b.WriteString(overStyle.Render("last violation: " + m.last.LastErr))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("←/→ frame  ↑/↓ scope  f follow  q quit"))
	b.WriteString("\n")
	return b.String()
}

var levels = []rune("▁▂▃▄▅▆▇█")

// historyBars draws one column per frame, scaled so that twice the budget
// fills the column.
func (m *inspectorModel) historyBars() string {
	var b strings.Builder
	for i := range m.history {
		s := &m.history[i]
		r := budgetRatio(s.TicksToDuration(s.Elapsed), 2*m.budget)
		cell := string(levels[barCells(uint64(r*1000), 1000, len(levels)-1)])
		style := okStyle
		if s.OverBudget {
			style = overStyle
		}
		if !m.follow && s.Seq == m.seq {
			style = style.Reverse(true)
		}
		b.WriteString(style.Render(cell))
	}
	return b.String()
}

// budgetRatio is d/budget clamped to [0, 1].
func budgetRatio(d, budget time.Duration) float64 {
	if budget <= 0 {
		return 0
	}
	return min(max(float64(d)/float64(budget), 0), 1)
}

// barCells scales part/whole to at most width cells.
func barCells(part, whole uint64, width int) int {
	if whole == 0 || width <= 0 {
		return 0
	}
	w, err := safecast.Conv[uint64](width)
	if err != nil {
		return 0
	}
	cells := min(part, whole) * w / whole
	n, err := safecast.Conv[int](cells)
	if err != nil {
		return width
	}
	return n
}

// scopeStyle maps marker colors onto the 16 ANSI colors, skipping black.
func scopeStyle(c marker.Color) lipgloss.Style {
	if c == 0 {
		return dimStyle
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(strconv.Itoa(1 + (int(c)-1)%15)))
}

func (m *inspectorModel) listenForUpdate() tea.Cmd {
	return func() tea.Msg {
		u, ok := <-m.updates
		if !ok {
			return doneMsg{}
		}
		return updateMsg(u)
	}
}
