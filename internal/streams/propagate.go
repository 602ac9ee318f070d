package streams

import (
	"github.com/stride3d/stride-sub014/internal/ast"
	"github.com/stride3d/stride-sub014/internal/diag"
)

// StreamsType is the declared type of a parameter receiving the whole stream record.
const StreamsType = "Streams"

// propagate threads the working record of stage through every method below
// entry that touches streams, directly or through a callee.
func (s *structurer) propagate(stage ast.Stage, entry ast.MethodID, work string) {
	done := make(map[ast.MethodID]bool)
	var needs func(m ast.MethodID) bool
	needs = func(m ast.MethodID) bool {
		if need, ok := done[m]; ok {
			return need
		}
		// in progress; recursion was reported during aggregation
		done[m] = false
		need := false
		for _, x := range s.usages[m] {
			switch x.kind {
			case usageField, usageDirect:
				need = true
			case usageCall:
				if needs(x.call) {
					need = true
				}
			}
		}
		done[m] = need
		if !need {
			return false
		}
		if _, entryPoint := s.prog.IsEntry(m); !entryPoint {
			s.thread(stage, m, work)
		}
		return true
	}
	needs(entry)
}

// thread adds `inout <work> streams` as the first parameter of m and passes
// `streams` at every call site.
func (s *structurer) thread(stage ast.Stage, m ast.MethodID, work string) {
	method := s.prog.Method(m)
	if owner, ok := s.threaded[m]; ok {
		if owner != stage {
			diag.Errorf(s.r, diag.StrCrossStageCall, method.Span,
				"%s uses streams and is called from both the %s and the %s stage", method.Name, owner, stage)
		}
		return
	}
	s.threaded[m] = stage

	params := make([]ast.Param, 0, len(method.Params)+1)
	params = append(params, ast.Param{Name: StreamsName, Type: ast.Named(work), Qual: ast.QualInOut, Span: method.Span})
	for _, p := range method.Params {
		if p.Type.Name == StreamsType {
			p.Type = ast.Named(work)
		}
		params = append(params, p)
	}
	method.Params = params

	tree := s.prog.Tree
	for expr, target := range s.prog.Calls {
		if target != m {
			continue
		}
		arg := tree.Exprs.NewIdent(tree.Expr(expr).Span, StreamsName)
		call := tree.Expr(expr)
		call.Args = append([]ast.ExprID{arg}, call.Args...)
	}
}

// order keeps the methods reachable from an entry point, callees before
// their callers, entry points in pipeline order.
func (s *structurer) order() {
	seen := make(map[ast.MethodID]bool)
	var out []ast.MethodID
	var visit func(m ast.MethodID)
	visit = func(m ast.MethodID) {
		if seen[m] {
			return
		}
		seen[m] = true
		for _, x := range s.usages[m] {
			if x.kind == usageCall {
				visit(x.call)
			}
		}
		out = append(out, m)
	}
	for _, st := range ast.Stages() {
		if entry, ok := s.prog.Entries[st]; ok {
			visit(entry)
		}
	}
	s.prog.Funcs = out
}
