// Package format prints shader classes and flattened programs.
//
// The output is deterministic: the CLI prints it, the result store keeps it
// and the graph builder hashes it as the structural identity of a record.
// Source formatting and comments are not preserved.
package format
