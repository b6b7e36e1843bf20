// Package trace records what the interpreter is doing: driver phases, garbage
// collection cycles and, at the most verbose level, every executed instruction.
//
// # Usage
//
//	ember run --trace=phase prog.em
//	ember run --trace=debug --trace-out=run.ndjson prog.em
//
// # Sinks
//
//   - Nop: zero-cost tracer used when tracing is off
//   - StreamTracer: writes each event immediately (text or NDJSON)
//   - RingTracer: keeps the last N events for a dump after a runtime error
//   - MultiTracer: fans out to several sinks
//
// # Levels
//
//   - LevelOff: nothing
//   - LevelError: ring only, dumped when execution fails
//   - LevelPhase: driver and phase spans (lex+compile, relax, execute)
//   - LevelDetail: runtime events such as collection cycles
//   - LevelDebug: one event per executed instruction
//
// Tracers travel through the driver in a context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePhase, "compile", trace.SpanFrom(ctx))
//	defer span.End("")
package trace
