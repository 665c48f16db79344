package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"perfring/internal/trace"
)

// setupTracing inspects trace-related flags, attaches the tracer to the
// command context and starts the heartbeat. clock is shared with the
// profiler so heartbeat ticks line up with frame ticks.
func setupTracing(cmd *cobra.Command, clock trace.TickSource) (func(), error) {
	flags := cmd.Root().PersistentFlags()

	traceOutput, err := flags.GetString("trace")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := flags.GetString("trace-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	modeStr, err := flags.GetString("trace-mode")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	ringSize, err := flags.GetInt("trace-ring-size")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}
	heartbeatInterval, err := flags.GetDuration("trace-heartbeat")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace level: %w", err)
	}
	// an output path alone turns on error-level tracing
	if level == trace.LevelOff && traceOutput != "" {
		level = trace.LevelError
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func() {}, nil
	}

	sink, err := trace.ParseSink(modeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace mode: %w", err)
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Sink:       sink,
		OutputPath: traceOutput,
		RingSize:   ringSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))

	var heartbeat *trace.Heartbeat
	if heartbeatInterval > 0 {
		heartbeat = trace.StartHeartbeat(tracer, clock, heartbeatInterval)
	}

	cleanup := func() {
		heartbeat.Stop()
		// ring mode keeps events in memory only; print them on the way out
		if ring, ok := tracer.(*trace.RingTracer); ok {
			if err := dumpRing(ring, traceOutput); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "trace: dump error: %v\n", err)
			}
		}
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	return cleanup, nil
}

func dumpRing(ring *trace.RingTracer, path string) error {
	if path == "" || path == "-" {
		return ring.Dump(os.Stderr, trace.FormatText)
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := ring.Dump(out, trace.FormatForPath(path)); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
