package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"perfring/internal/report"
)

// execute runs the root command with args from inside dir and returns
// stdout. Flags keep their values between Execute calls, so every test
// passes the flags it depends on.
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(wd) }()

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err = rootCmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, text string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "perfring.toml"), []byte(text), 0o600); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestReportJSON(t *testing.T) {
	dir := writeConfig(t, `
[workload]
frames = 80
names = ["update", "physics", "render"]
pause_every = 10

[report]
frames = 4
`)
	out, err := execute(t, dir, "report", "--color", "off", "--format", "json", "--select", "-1", "--last", "4")
	if err != nil {
		t.Fatal(err)
	}
	var r report.Report
	if err := json.Unmarshal([]byte(out), &r); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	// 80 driven, 7 paused (10, 20, ..., 70)
	if r.Stats.Frames != 73 {
		t.Errorf("frames = %d", r.Stats.Frames)
	}
	if len(r.Frames) != 4 || r.Frames[0].Offset != 0 {
		t.Errorf("report frames = %+v", r.Frames)
	}
	if r.Stats.LiveMarkers > 3 || r.Stats.Violations != 0 {
		t.Errorf("stats = %+v", r.Stats)
	}
}

func TestReportSelect(t *testing.T) {
	dir := writeConfig(t, "[workload]\nframes = 10\n")
	out, err := execute(t, dir, "report", "--color", "off", "--format", "text", "--select", "2", "--last", "8")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(out, "frame #") != 1 || !strings.Contains(out, "frame #8 ") {
		t.Errorf("output:\n%s", out)
	}

	if _, err := execute(t, dir, "report", "--select", "64"); err == nil {
		t.Error("selecting an unavailable frame succeeded")
	}
}

func TestRunWithoutUI(t *testing.T) {
	dir := writeConfig(t, "[workload]\nframes = 5\n[report]\nframes = 2\n")
	out, err := execute(t, dir, "run", "--ui", "off", "--color", "off", "--frames", "3")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "frame #3 ") || !strings.Contains(out, "frame #2 ") || strings.Contains(out, "frame #1 ") {
		t.Errorf("output:\n%s", out)
	}
}

func TestBadConfig(t *testing.T) {
	dir := writeConfig(t, "[workload]\nframes = -1\n")
	if _, err := execute(t, dir, "report", "--select", "-1"); err == nil {
		t.Error("invalid config accepted")
	}
}

func TestReadUIMode(t *testing.T) {
	for in, want := range map[string]uiMode{"": uiModeAuto, "AUTO": uiModeAuto, " on ": uiModeOn, "off": uiModeOff} {
		got, err := readUIMode(in)
		if err != nil || got != want {
			t.Errorf("readUIMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := readUIMode("sometimes"); err == nil {
		t.Error("invalid mode accepted")
	}
	if !shouldUseTUI(uiModeOn) || shouldUseTUI(uiModeOff) {
		t.Error("explicit modes ignored")
	}
}

func TestVersionJSON(t *testing.T) {
	out, err := execute(t, t.TempDir(), "version", "--format", "json")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"tool": "perfring"`) {
		t.Errorf("output:\n%s", out)
	}
}
