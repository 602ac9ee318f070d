// Package diag defines the diagnostic model shared by every phase of the
// mixin pipeline: loading, graph building, virtual-table resolution,
// composition, mixing and stream structuring.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity – Info, Warning or Error (severity.go).
//   - Code – compact numeric identifier with a stable string form
//     (GRA graph, OVR override, NAM name conflicts, LNK link, STR streams,
//     SYN syntax, IO input/output).
//   - Message – short, actionable text.
//   - Primary – the source.Span the finding points at.
//   - Fragment – the shader class whose analysis produced it.
//   - Notes – secondary spans, e.g. the base declaration of an override.
//
// # Emitting diagnostics
//
// Phases never return domain failures as Go errors and never panic on
// them. They report through a Reporter; BagReporter stores into a Bag,
// DedupReporter filters repeats. ReportBuilder (ReportError/ReportWarning)
// lets a producer attach notes before Emit. A compilation has failed when
// its Bag HasErrors; warnings only describe corrections already applied to
// the AST.
package diag
