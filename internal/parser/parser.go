// Package parser turns SDSL source text into the arena AST consumed by the
// mixin pipeline. It understands the subset of the language the linker needs:
// class headers with generics and bases, cbuffer/rgroup blocks, structs,
// typedefs, qualified fields and methods, and HLSL-style statements and
// expressions (no casts, no switch, no do-while).
package parser

import (
	"errors"

	"github.com/alecthomas/participle/v2"

	"github.com/stride3d/stride-sub014/internal/ast"
	"github.com/stride3d/stride-sub014/internal/diag"
	"github.com/stride3d/stride-sub014/internal/mixin"
	"github.com/stride3d/stride-sub014/internal/source"
)

// Parse preprocesses and parses one shader file. It returns nil after
// reporting a syntax error.
func Parse(file *source.File, macros mixin.Macros, r diag.Reporter) *ast.Shader {
	if r == nil {
		r = diag.NopReporter{}
	}
	text := preprocess(file, macros, r)
	node, err := sdslParser.ParseBytes(file.Path, text.text)
	if err != nil {
		reportSyntax(file, text, err, r)
		return nil
	}
	var sn *shaderNode
	switch {
	case node.Shader != nil:
		sn = node.Shader
	case node.Namespace != nil:
		sn = node.Namespace.Shader
	}
	if sn == nil {
		diag.Errorf(r, diag.SynError, source.Span{File: file.ID}, "%s: no shader class declared", file.Path)
		return nil
	}
	l := &lowerer{file: file, text: text, tree: ast.NewTree()}
	return l.shader(sn)
}

func reportSyntax(file *source.File, text *expanded, err error, r diag.Reporter) {
	sp := source.Span{File: file.ID}
	msg := err.Error()
	var perr participle.Error
	if errors.As(err, &perr) {
		off := text.original(perr.Position().Offset)
		sp.Start, sp.End = off, off
		msg = perr.Message()
	}
	diag.ReportError(r, diag.SynError, sp, msg).Emit()
}
