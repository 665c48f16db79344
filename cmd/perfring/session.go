package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"perfring/internal/clock"
	"perfring/internal/config"
	"perfring/internal/memstat"
	"perfring/internal/observ"
	"perfring/internal/profiler"
	"perfring/internal/trace"
	"perfring/internal/workload"
)

// session is everything a workload command needs: the resolved config,
// the profiler and the generator feeding it.
type session struct {
	cfg        config.Config
	configPath string
	clock      *clock.Monotonic
	gate       *profiler.Switch
	prof       *profiler.Profiler
	gen        *workload.Generator
	timer      *observ.Timer
	cleanups   []func()
}

// openSession resolves configuration, applies flag overrides, and wires
// tracing, Go profiling and the profiler. close must be called when done.
func openSession(cmd *cobra.Command) (*session, error) {
	s := &session{clock: clock.NewMonotonic()}
	s.timer = observ.NewTimer(s.clock)

	phase := s.timer.Begin("config")
	if err := s.loadConfig(cmd); err != nil {
		return nil, err
	}
	note := "defaults"
	if s.configPath != "" {
		note = s.configPath
	}
	s.timer.End(phase, note)

	traceCleanup, err := setupTracing(cmd, s.clock)
	if err != nil {
		return nil, err
	}
	s.cleanups = append(s.cleanups, traceCleanup)

	profCleanup, err := setupProfiling(cmd)
	if err != nil {
		s.close()
		return nil, err
	}
	s.cleanups = append(s.cleanups, profCleanup)

	tracer := trace.FromContext(cmd.Context())
	if tracer.Level().ShouldEmit(trace.CategorySession) {
		tracer.Emit(&trace.Event{
			Ticks:    s.clock.Now(),
			Seq:      trace.NextSeq(),
			Kind:     trace.KindPoint,
			Category: trace.CategorySession,
			Name:     cmd.Name(),
			Detail:   note,
		})
	}

	s.gate = profiler.NewSwitch(true)
	s.prof = profiler.New(profiler.Config{
		Clock:   s.clock,
		Gate:    s.gate,
		Tracer:  tracer,
		Sampler: memstat.New(),
		Budget:  s.cfg.Workload.Budget(),
		Strict:  s.cfg.Profiler.Strict,
	})
	s.gen = workload.New(s.cfg.Workload)
	return s, nil
}

func (s *session) loadConfig(cmd *cobra.Command) error {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	cfg, found, err := config.Resolve(path, wd)
	if err != nil {
		return err
	}
	if err := applyWorkloadFlags(cmd, &cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	s.cfg = cfg
	s.configPath = found
	return nil
}

// applyWorkloadFlags copies explicitly set command flags over file values.
func applyWorkloadFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error
	if flags.Changed("frames") {
		if cfg.Workload.Frames, err = flags.GetInt("frames"); err != nil {
			return err
		}
	}
	if flags.Changed("seed") {
		if cfg.Workload.Seed, err = flags.GetInt64("seed"); err != nil {
			return err
		}
	}
	if flags.Changed("pause-every") {
		if cfg.Workload.PauseEvery, err = flags.GetInt("pause-every"); err != nil {
			return err
		}
	}
	if flags.Changed("budget") {
		budget, err := flags.GetDuration("budget")
		if err != nil {
			return err
		}
		cfg.Workload.BudgetMS = float64(budget.Microseconds()) / 1000
	}
	if flags.Changed("strict") {
		if cfg.Profiler.Strict, err = flags.GetBool("strict"); err != nil {
			return err
		}
	}
	return nil
}

// addWorkloadFlags registers the flags read by applyWorkloadFlags.
func addWorkloadFlags(cmd *cobra.Command) {
	cmd.Flags().Int("frames", 0, "frames to drive (overrides [workload].frames)")
	cmd.Flags().Int64("seed", 0, "workload seed (overrides [workload].seed)")
	cmd.Flags().Int("pause-every", 0, "pause recording every N frames (overrides [workload].pause_every)")
	cmd.Flags().Duration("budget", 0, "frame budget (overrides [workload].budget_ms)")
	cmd.Flags().Bool("strict", false, "panic on instrumentation misuse (overrides [profiler].strict)")
}

func (s *session) close() {
	for i := len(s.cleanups) - 1; i >= 0; i-- {
		s.cleanups[i]()
	}
	s.cleanups = nil
}

// printTimings writes the phase summary when --timings is set.
func (s *session) printTimings(cmd *cobra.Command) {
	show, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil || !show {
		return
	}
	fmt.Fprint(cmd.ErrOrStderr(), s.timer.Summary())
}

func quiet(cmd *cobra.Command) bool {
	q, err := cmd.Root().PersistentFlags().GetBool("quiet")
	return err == nil && q
}
