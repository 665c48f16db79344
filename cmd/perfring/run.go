package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"perfring/internal/report"
	"perfring/internal/ui"
	"perfring/internal/workload"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive the synthetic workload and inspect the recorded frames",
	Long: `run records the configured workload frame by frame. With a terminal it shows
a live inspector; otherwise it prints the newest frames when done.`,
	Args: cobra.NoArgs,
	RunE: runExecution,
}

func init() {
	addWorkloadFlags(runCmd)
	runCmd.Flags().String("ui", "auto", "live inspector (auto|on|off)")
	runCmd.Flags().Duration("pace", 0, "minimum wall time per frame (default: the frame budget when the inspector is on)")
	runCmd.Flags().Bool("stay", true, "keep the inspector open after the workload finishes")
}

func runExecution(cmd *cobra.Command, _ []string) error {
	uiFlag, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	mode, err := readUIMode(uiFlag)
	if err != nil {
		return err
	}
	pace, err := cmd.Flags().GetDuration("pace")
	if err != nil {
		return fmt.Errorf("failed to get pace flag: %w", err)
	}
	stay, err := cmd.Flags().GetBool("stay")
	if err != nil {
		return fmt.Errorf("failed to get stay flag: %w", err)
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	useTUI := shouldUseTUI(mode)
	if useTUI && !cmd.Flags().Changed("pace") {
		pace = s.cfg.Workload.Budget()
	}

	phase := s.timer.Begin("record")
	if useTUI {
		err = recordWithUI(cmd.Context(), s, pace, stay)
	} else {
		err = s.gen.Run(cmd.Context(), s.prof, workload.Options{
			Frames: s.cfg.Workload.Frames,
			Gate:   s.gate,
			Pace:   pace,
		})
	}
	s.timer.End(phase, fmt.Sprintf("%d frames", s.prof.Stats().Frames))
	if err != nil {
		return err
	}

	if !useTUI && !quiet(cmd) {
		phase = s.timer.Begin("report")
		r := report.Build(s.prof, s.cfg.Report.Frames, s.cfg.Workload.Budget())
		err = report.WriteText(cmd.OutOrStdout(), r, report.TextOptions{})
		s.timer.End(phase, "")
		if err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}
	s.printTimings(cmd)
	return nil
}

// recordWithUI runs the workload on one goroutine and the inspector on
// another. The profiler is only touched by the recording goroutine; the
// inspector sees owned snapshots. Quitting the inspector stops recording.
func recordWithUI(ctx context.Context, s *session, pace time.Duration, stay bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	updates := make(chan ui.Update, 16)

	g.Go(func() error {
		defer close(updates)
		return s.gen.Run(ctx, s.prof, workload.Options{
			Frames: s.cfg.Workload.Frames,
			Gate:   s.gate,
			Pace:   pace,
			After: func(i int) {
				u := ui.Update{Driven: i + 1, Stats: s.prof.Stats()}
				if !s.gen.Paused(i) {
					if v, ok := s.prof.FrameAt(0); ok {
						snap := v.Snapshot()
						u.Frame = &snap
					}
				}
				if err := s.prof.Err(); err != nil {
					u.LastErr = err.Error()
				}
				select {
				case updates <- u:
				case <-ctx.Done():
				}
			},
		})
	})

	g.Go(func() error {
		model := ui.NewInspectorModel(ui.Options{
			Title:  "perfring run",
			Frames: s.cfg.Workload.Frames,
			Budget: s.cfg.Workload.Budget(),
			Stay:   stay,
		}, updates)
		_, err := tea.NewProgram(model, tea.WithContext(ctx)).Run()
		cancel()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		// the user quit the inspector before the workload finished
		return nil
	}
	return err
}
