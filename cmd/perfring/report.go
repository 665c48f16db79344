package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"perfring/internal/report"
	"perfring/internal/workload"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Drive the workload and print the newest recorded frames",
	Args:  cobra.NoArgs,
	RunE:  reportExecution,
}

func init() {
	addWorkloadFlags(reportCmd)
	reportCmd.Flags().Int("last", 0, "frames to print (overrides [report].frames)")
	reportCmd.Flags().String("format", "", "output format text|json (overrides [report].format)")
	reportCmd.Flags().Int("select", -1, "print only the frame at this offset from the newest")
}

func reportExecution(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	last := s.cfg.Report.Frames
	if cmd.Flags().Changed("last") {
		if last, err = cmd.Flags().GetInt("last"); err != nil {
			return fmt.Errorf("failed to get last flag: %w", err)
		}
	}
	format := s.cfg.Report.Format
	if cmd.Flags().Changed("format") {
		f, err := cmd.Flags().GetString("format")
		if err != nil {
			return fmt.Errorf("failed to get format flag: %w", err)
		}
		format = strings.ToLower(strings.TrimSpace(f))
	}
	if format != "text" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be text or json)", format)
	}
	selectOffset, err := cmd.Flags().GetInt("select")
	if err != nil {
		return fmt.Errorf("failed to get select flag: %w", err)
	}

	phase := s.timer.Begin("record")
	err = s.gen.Run(cmd.Context(), s.prof, workload.Options{
		Frames: s.cfg.Workload.Frames,
		Gate:   s.gate,
	})
	s.timer.End(phase, fmt.Sprintf("%d frames", s.prof.Stats().Frames))
	if err != nil {
		return err
	}

	phase = s.timer.Begin("report")
	r := report.Build(s.prof, last, s.cfg.Workload.Budget())
	if selectOffset >= 0 {
		if !s.prof.Select(selectOffset) {
			return fmt.Errorf("no completed frame at offset %d", selectOffset)
		}
		v, off, ok := s.prof.Selected()
		if !ok {
			return fmt.Errorf("no completed frame at offset %d", selectOffset)
		}
		r.Frames = []report.FrameReport{report.Frame(v.Snapshot(), off)}
	}
	if format == "json" {
		err = report.WriteJSON(cmd.OutOrStdout(), r)
	} else {
		err = report.WriteText(cmd.OutOrStdout(), r, report.TextOptions{})
	}
	s.timer.End(phase, format)
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	s.printTimings(cmd)
	return nil
}
