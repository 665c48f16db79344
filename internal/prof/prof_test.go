package prof

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSessionWritesFiles(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		CPUProfile:   filepath.Join(dir, "cpu.pprof"),
		MemProfile:   filepath.Join(dir, "mem.pprof"),
		RuntimeTrace: filepath.Join(dir, "run.trace"),
	}
	s, err := Start(opts)
	if err != nil {
		t.Fatal(err)
	}
	if !s.Active() {
		t.Error("session with outputs reports inactive")
	}
	if err := s.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := s.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}
	for _, p := range []string{opts.CPUProfile, opts.MemProfile, opts.RuntimeTrace} {
		if fi, err := os.Stat(p); err != nil || fi.Size() == 0 {
			t.Errorf("%s: %v", filepath.Base(p), err)
		}
	}
}

func TestSessionEmpty(t *testing.T) {
	s, err := Start(Options{})
	if err != nil {
		t.Fatal(err)
	}
	if s.Active() {
		t.Error("empty session reports active")
	}
	if err := s.Stop(); err != nil {
		t.Error(err)
	}
}

func TestStartFailsCleanly(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "missing", "cpu.pprof")
	if _, err := Start(Options{CPUProfile: bad}); err == nil {
		t.Fatal("expected error")
	}
	// the CPU profiler must not be left running
	s, err := Start(Options{CPUProfile: filepath.Join(t.TempDir(), "cpu.pprof")})
	if err != nil {
		t.Fatal(err)
	}
	_ = s.Stop()
}
