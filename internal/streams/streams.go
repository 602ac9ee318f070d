// Package streams turns the `streams.X` accesses of a flattened program into
// per-stage input, output and working records.
//
// Structure works on the program produced by the mixer:
//
//  1. record how every method touches each stream field
//  2. aggregate per entry point through the call graph
//  3. check the tessellation stages come as a set
//  4. keep only render targets and depth as pixel outputs
//  5. bubble requirements back through the stage sequence
//  6. a compute stage has no outputs
//  7. synthesize <Stage>_INPUT, <Stage>_OUTPUT and <Stage>_STREAMS
//  8. rewrite the entry points around them
//  9. thread the working record through every method that needs it
//  10. order methods callees first and drop what no entry point reaches
package streams

import (
	"context"
	"strconv"

	"github.com/stride3d/stride-sub014/internal/ast"
	"github.com/stride3d/stride-sub014/internal/diag"
	"github.com/stride3d/stride-sub014/internal/trace"
)

// InputAttribute is one wire identifier of the first stage's input.
type InputAttribute struct {
	SemanticName  string
	SemanticIndex int
}

// Records names the synthesized records of one stage. Input and Output are
// empty when the stage has none.
type Records struct {
	Input   string
	Output  string
	Streams string
}

// Result describes what Structure did to the program.
type Result struct {
	// Stages holds the present stages in pipeline order.
	Stages  []*StageUsage
	Records map[ast.Stage]Records
	// InputAttributes lists the input of the first stage of the pipeline.
	InputAttributes []InputAttribute
}

// Stage returns the usage of stage s, or nil.
func (r *Result) Stage(s ast.Stage) *StageUsage {
	for _, u := range r.Stages {
		if u.Stage == s {
			return u
		}
	}
	return nil
}

type structurer struct {
	prog   *ast.Program
	r      diag.Reporter
	usages map[ast.MethodID][]usage

	// threaded maps a method that received a working record to the stage that owns it.
	threaded map[ast.MethodID]ast.Stage
}

// Structure rewrites prog in place. Problems go to r; the result is nil when
// the stage set is unusable.
func Structure(ctx context.Context, prog *ast.Program, r diag.Reporter) *Result {
	span, _ := trace.Start(ctx, trace.ScopePass, "streams")
	if r == nil {
		r = diag.NopReporter{}
	}
	s := &structurer{
		prog:     prog,
		r:        r,
		usages:   collectUsages(prog),
		threaded: make(map[ast.MethodID]ast.Stage),
	}

	_, hs := prog.Entries[ast.StageHull]
	_, hsc := prog.Entries[ast.StageHullConstant]
	_, ds := prog.Entries[ast.StageDomain]
	if (hs || hsc || ds) && !(hs && hsc && ds) {
		diag.Errorf(r, diag.StrIncompleteTessellation, prog.Method(s.anyEntry()).Span,
			"hull, hull constant and domain stages must be declared together")
		span.End("incomplete tessellation")
		return nil
	}

	res := &Result{Records: make(map[ast.Stage]Records)}
	byStage := make(map[ast.Stage]*StageUsage)
	for _, st := range ast.Stages() {
		entry, ok := prog.Entries[st]
		if !ok {
			continue
		}
		u := s.aggregate(st, entry)
		byStage[st] = u
		res.Stages = append(res.Stages, u)
	}

	if vs, gs := byStage[ast.StageVertex], byStage[ast.StageGeometry]; vs != nil && gs != nil {
		s.keepPosition(vs, gs)
	}
	if ps := byStage[ast.StagePixel]; ps != nil {
		s.splitPixel(ps)
	}
	var pipeline []*StageUsage
	for _, u := range res.Stages {
		if u.Stage != ast.StageCompute {
			pipeline = append(pipeline, u)
		}
	}
	s.bubble(pipeline)
	if cs := byStage[ast.StageCompute]; cs != nil {
		cs.Inter = append(cs.Inter, cs.Out...)
		cs.Out = nil
	}

	var prevOut *ast.Struct
	for _, u := range pipeline {
		rec, out := s.generate(u, prevOut, u.Stage != ast.StagePixel)
		res.Records[u.Stage] = rec
		if out != nil {
			prevOut = out
		}
	}
	if cs := byStage[ast.StageCompute]; cs != nil {
		rec, _ := s.generate(cs, nil, true)
		res.Records[ast.StageCompute] = rec
	}

	if len(pipeline) > 0 {
		for _, v := range pipeline[0].In {
			if sem := prog.Var(v).Semantic; sem != "" {
				name, idx := ParseSemantic(sem)
				res.InputAttributes = append(res.InputAttributes, InputAttribute{SemanticName: name, SemanticIndex: idx})
			}
		}
	}

	s.order()
	span.End(strconv.Itoa(len(res.Stages)) + " stages")
	return res
}

func (s *structurer) anyEntry() ast.MethodID {
	for _, st := range ast.Stages() {
		if id, ok := s.prog.Entries[st]; ok {
			return id
		}
	}
	return 0
}

// ParseSemantic splits a trailing index off a semantic: `TEXCOORD3` is
// (`TEXCOORD`, 3) and `COLOR` is (`COLOR`, 0).
func ParseSemantic(sem string) (string, int) {
	i := len(sem)
	for i > 0 && sem[i-1] >= '0' && sem[i-1] <= '9' {
		i--
	}
	if i == len(sem) || i == 0 {
		return sem, 0
	}
	n, err := strconv.Atoi(sem[i:])
	if err != nil {
		return sem, 0
	}
	return sem[:i], n
}
