// Package config loads perfring.toml.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/unicode/norm"

	"perfring/internal/frame"
)

// FileName is the name searched for by Find.
const FileName = "perfring.toml"

// Config is the decoded perfring.toml.
type Config struct {
	Workload Workload `toml:"workload"`
	Profiler Profiler `toml:"profiler"`
	Report   Report   `toml:"report"`
}

// Workload shapes the synthetic frames recorded by `perfring run`.
type Workload struct {
	Frames     int      `toml:"frames"`
	BudgetMS   float64  `toml:"budget_ms"`
	Names      []string `toml:"names"`
	Depth      int      `toml:"depth"`
	Fanout     int      `toml:"fanout"`
	PauseEvery int      `toml:"pause_every"` // 0 disables pausing
	Seed       int64    `toml:"seed"`
}

// Budget converts BudgetMS to a duration.
func (w Workload) Budget() time.Duration {
	return time.Duration(w.BudgetMS * float64(time.Millisecond))
}

type Profiler struct {
	Strict bool `toml:"strict"`
}

type Report struct {
	Frames int    `toml:"frames"`
	Format string `toml:"format"`
}

// Default returns the configuration used when no file is found.
func Default() Config {
	return Config{
		Workload: Workload{
			Frames:   600,
			BudgetMS: 16.667,
			Names:    []string{"update", "physics", "ai", "render", "audio"},
			Depth:    3,
			Fanout:   3,
			Seed:     1,
		},
		Report: Report{
			Frames: 8,
			Format: "text",
		},
	}
}

// Find walks up from startDir looking for perfring.toml.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Resolve loads path if given, otherwise the nearest perfring.toml above
// startDir, otherwise the defaults. The returned path is empty when the
// defaults were used.
func Resolve(path, startDir string) (Config, string, error) {
	if path == "" {
		found, ok, err := Find(startDir)
		if err != nil {
			return Config{}, "", err
		}
		if !ok {
			return Default(), "", nil
		}
		path = found
	}
	cfg, err := Load(path)
	if err != nil {
		return Config{}, "", err
	}
	return cfg, path, nil
}

// Load decodes path on top of Default and validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(string(data))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML text on top of Default and validates the result.
func Parse(text string) (Config, error) {
	cfg := Default()
	meta, err := toml.Decode(text, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("unknown key %s", undecoded[0])
	}
	if meta.IsDefined("workload", "names") && len(cfg.Workload.Names) == 0 {
		return Config{}, errors.New("[workload].names must not be empty")
	}
	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// normalize trims scope names and puts them in NFC so that visually equal
// names intern to one marker.
func (c *Config) normalize() error {
	seen := make(map[string]struct{}, len(c.Workload.Names))
	out := c.Workload.Names[:0]
	for _, name := range c.Workload.Names {
		name = norm.NFC.String(strings.TrimSpace(name))
		if name == "" {
			return errors.New("[workload].names: empty name")
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("[workload].names: duplicate name %q", name)
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	c.Workload.Names = out
	c.Report.Format = strings.ToLower(strings.TrimSpace(c.Report.Format))
	return nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	w := c.Workload
	switch {
	case w.Frames <= 0:
		return fmt.Errorf("[workload].frames must be positive, got %d", w.Frames)
	case w.BudgetMS <= 0 || math.IsNaN(w.BudgetMS) || math.IsInf(w.BudgetMS, 0):
		return fmt.Errorf("[workload].budget_ms must be positive, got %v", w.BudgetMS)
	case len(w.Names) == 0:
		return errors.New("[workload].names must not be empty")
	case w.Depth < 1 || w.Depth > 32:
		return fmt.Errorf("[workload].depth must be in [1, 32], got %d", w.Depth)
	case w.Fanout < 1 || w.Fanout > 16:
		return fmt.Errorf("[workload].fanout must be in [1, 16], got %d", w.Fanout)
	case w.PauseEvery < 0:
		return fmt.Errorf("[workload].pause_every must not be negative, got %d", w.PauseEvery)
	}
	r := c.Report
	if r.Frames < 1 || r.Frames > frame.Capacity {
		return fmt.Errorf("[report].frames must be in [1, %d], got %d", frame.Capacity, r.Frames)
	}
	if r.Format != "text" && r.Format != "json" {
		return fmt.Errorf("[report].format must be text or json, got %q", r.Format)
	}
	return nil
}
