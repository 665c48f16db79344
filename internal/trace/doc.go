// Package trace provides the diagnostic event stream of perfring.
//
// The profiler and the CLI report what they do through a Tracer: frame
// boundaries, retired frames, individual zones and contract violations. When
// tracing is off the Nop tracer is used and the profiler only pays for a
// level check.
//
// # Usage
//
// Enable tracing via command-line flags:
//
//	perfring run --trace=- --trace-level=frame
//
// # Architecture
//
//   - Nop: zero-overhead tracer when disabled
//   - StreamTracer: immediate write to output (file/stderr)
//   - RingTracer: circular buffer of the most recent events, dumped on exit
//
// New picks one of them from Config.Level and Config.Sink.
//
// # Levels
//
//   - LevelOff: no tracing
//   - LevelError: contract violations only
//   - LevelFrame: session and frame boundaries
//   - LevelDetail: plus retired frames
//   - LevelDebug: everything including every zone
//
// # Categories
//
//   - CategoryFault: contract violations
//   - CategorySession: CLI run start/stop, heartbeats
//   - CategoryFrame: begin/end frame
//   - CategoryRetire: ring slot reuse
//   - CategoryZone: begin/end of instrumented scopes
//
// # Context Propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
package trace
