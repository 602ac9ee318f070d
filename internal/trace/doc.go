// Package trace is the structured event log of the mixer.
//
// A compile request opens a driver span, each pipeline phase a pass span and
// each fragment analysis a fragment span. Spans nest through the context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span, ctx := trace.Start(ctx, trace.ScopePass, "mix")
//	defer span.End("")
//
// A batch tags the context of each request with WithJob so interleaved
// events of parallel compilations can be told apart.
//
// Levels: off, error (driver spans, for the ring), phase (driver and pass),
// detail (plus fragments), debug (everything).
package trace
