package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"perfring/internal/frame"
	"perfring/internal/profiler"
)

func snap(seq uint64, elapsedUS uint64, names ...string) *profiler.Snapshot {
	s := &profiler.Snapshot{
		Seq:       seq,
		Start:     1,
		End:       1 + elapsedUS,
		Elapsed:   elapsedUS,
		Frequency: 1_000_000,
	}
	for i, n := range names {
		s.Scopes = append(s.Scopes, profiler.ScopeInfo{Name: n, Depth: i + 1, Start: 1, End: 1 + elapsedUS/2})
	}
	return s
}

func feed(t *testing.T, m tea.Model, updates ...Update) tea.Model {
	t.Helper()
	for _, u := range updates {
		m, _ = m.Update(updateMsg(u))
	}
	return m
}

func key(m tea.Model, k string) tea.Model {
	var msg tea.KeyMsg
	switch k {
	case "left":
		msg = tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		msg = tea.KeyMsg{Type: tea.KeyRight}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	m, _ = m.Update(msg)
	return m
}

func newModel() tea.Model {
	return NewInspectorModel(Options{Title: "run", Frames: 10, Budget: 16 * time.Millisecond}, nil)
}

func TestInspectorFollowsNewest(t *testing.T) {
	m := feed(t, newModel(),
		Update{Driven: 1, Frame: snap(1, 800, "update")},
		Update{Driven: 2, Frame: snap(2, 1500, "update", "physics")},
	)
	out := m.View()
	for _, want := range []string{"frame 2/10", "frame #2 (following)", "1.50 MS", "physics"} {
		if !strings.Contains(out, want) {
			t.Errorf("view lacks %q:\n%s", want, out)
		}
	}
}

func TestInspectorPinsSelection(t *testing.T) {
	m := feed(t, newModel(),
		Update{Driven: 1, Frame: snap(1, 800, "a")},
		Update{Driven: 2, Frame: snap(2, 900, "b")},
	)
	m = key(m, "left")
	m = feed(t, m, Update{Driven: 3, Frame: snap(3, 1000, "c")})
	if out := m.View(); !strings.Contains(out, "frame #1 (pinned)") {
		t.Errorf("pinned view:\n%s", out)
	}
	m = key(m, "f")
	if out := m.View(); !strings.Contains(out, "frame #3 (following)") {
		t.Errorf("follow view:\n%s", out)
	}
}

func TestInspectorPausedFrameKeepsHistory(t *testing.T) {
	m := feed(t, newModel(),
		Update{Driven: 1, Frame: snap(1, 800, "a")},
		Update{Driven: 2, Frame: nil},
	)
	out := m.View()
	if !strings.Contains(out, "frame 2/10") || !strings.Contains(out, "frame #1") {
		t.Errorf("view:\n%s", out)
	}
}

func TestInspectorHistoryBounded(t *testing.T) {
	m := newModel()
	for i := range frame.Capacity + 10 {
		m = feed(t, m, Update{Driven: i + 1, Frame: snap(uint64(i+1), 100)})
	}
	im := m.(*inspectorModel)
	if len(im.history) != frame.Capacity || im.history[0].Seq != 11 {
		t.Errorf("history len %d, oldest %d", len(im.history), im.history[0].Seq)
	}
}

func TestInspectorDone(t *testing.T) {
	m, cmd := newModel().Update(doneMsg{})
	if cmd == nil {
		t.Error("done without stay should quit")
	}
	if !strings.HasPrefix(m.View(), "done:") {
		t.Errorf("view: %q", m.View())
	}

	stay := NewInspectorModel(Options{Stay: true}, nil)
	if _, cmd := stay.Update(doneMsg{}); cmd != nil {
		t.Error("stay model quit on done")
	}
}

func TestBarCells(t *testing.T) {
	tests := []struct {
		part, whole uint64
		width, want int
	}{
		{0, 100, 10, 0},
		{50, 100, 10, 5},
		{100, 100, 10, 10},
		{300, 100, 10, 10},
		{1, 0, 10, 0},
		{1, 1, 0, 0},
	}
	for _, tt := range tests {
		if got := barCells(tt.part, tt.whole, tt.width); got != tt.want {
			t.Errorf("barCells(%d, %d, %d) = %d, want %d", tt.part, tt.whole, tt.width, got, tt.want)
		}
	}
}

func TestBudgetRatio(t *testing.T) {
	if r := budgetRatio(8*time.Millisecond, 16*time.Millisecond); r != 0.5 {
		t.Errorf("ratio = %v", r)
	}
	if r := budgetRatio(time.Second, time.Millisecond); r != 1 {
		t.Errorf("ratio not clamped: %v", r)
	}
	if r := budgetRatio(time.Second, 0); r != 0 {
		t.Errorf("zero budget ratio = %v", r)
	}
}
