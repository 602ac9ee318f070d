package streams

import (
	"slices"
	"strings"

	"github.com/stride3d/stride-sub014/internal/ast"
	"github.com/stride3d/stride-sub014/internal/diag"
)

// StageUsage is the stream flow of one pipeline stage.
type StageUsage struct {
	Stage ast.Stage
	Entry ast.MethodID
	In    []ast.VarID
	Inter []ast.VarID
	Out   []ast.VarID
}

func addVar(list []ast.VarID, v ast.VarID) []ast.VarID {
	if slices.Contains(list, v) {
		return list
	}
	return append(list, v)
}

// aggregate walks the call graph below entry and fills In and Out.
func (s *structurer) aggregate(stage ast.Stage, entry ast.MethodID) *StageUsage {
	u := &StageUsage{Stage: stage, Entry: entry}
	s.walk(u, entry, nil)
	return u
}

// walk visits m with path holding the methods on the current call chain.
// path is never shared between siblings.
func (s *structurer) walk(u *StageUsage, m ast.MethodID, path []ast.MethodID) {
	if slices.Contains(path, m) {
		method := s.prog.Method(m)
		diag.Errorf(s.r, diag.StrRecursiveCall, method.Span,
			"%s is called recursively from the %s stage", method.Name, u.Stage)
		return
	}
	path = append(slices.Clip(path), m)
	for _, x := range s.usages[m] {
		switch x.kind {
		case usageField:
			isOut := slices.Contains(u.Out, x.v)
			isIn := slices.Contains(u.In, x.v)
			switch {
			case x.access.IsWrite() && !isOut:
				u.Out = append(u.Out, x.v)
				if x.access.IsPartial() && !isIn {
					u.In = append(u.In, x.v)
				}
			case x.access.IsRead() && !isOut && !isIn:
				u.In = append(u.In, x.v)
			}
		case usageCall:
			s.walk(u, x.call, path)
		}
	}
}

func (s *structurer) semantic(v ast.VarID) string {
	return s.prog.Var(v).Semantic
}

func isSemantic(sem, name string) bool { return strings.EqualFold(sem, name) }

// isPixelTarget reports whether a pixel output really leaves the pipeline.
func isPixelTarget(sem string) bool {
	return len(sem) >= len("SV_Target") && strings.EqualFold(sem[:len("SV_Target")], "SV_Target") ||
		isSemantic(sem, "SV_Depth")
}

// pixelOnly inputs are generated by the rasterizer and never come from a previous stage.
func pixelOnly(sem string) bool {
	return isSemantic(sem, "SV_Coverage") || isSemantic(sem, "SV_IsFrontFace") || isSemantic(sem, "VFACE")
}

// splitPixel keeps render targets and depth as pixel outputs; every other
// write is an intermediate value.
func (s *structurer) splitPixel(ps *StageUsage) {
	var out []ast.VarID
	for _, v := range ps.Out {
		if isPixelTarget(s.semantic(v)) {
			out = append(out, v)
		} else {
			ps.Inter = addVar(ps.Inter, v)
		}
	}
	ps.Out = out
}

// keepPosition gives a geometry stage the vertex position when it does not
// write one itself.
func (s *structurer) keepPosition(vs, gs *StageUsage) {
	for _, v := range gs.Out {
		if isSemantic(s.semantic(v), "SV_Position") {
			return
		}
	}
	for _, v := range vs.Out {
		if isSemantic(s.semantic(v), "SV_Position") {
			gs.Out = append(gs.Out, v)
			return
		}
	}
}

// bubble moves requirements backwards through the ordered stages: whatever a
// stage reads must be written by the stage before it, and whatever a stage
// writes that nobody after it reads becomes intermediate.
func (s *structurer) bubble(stages []*StageUsage) {
	for i := len(stages) - 1; i > 0; i-- {
		next, prev := stages[i], stages[i-1]

		var exclusive []ast.VarID
		for _, v := range next.In {
			if slices.Contains(prev.Out, v) {
				continue
			}
			if next.Stage == ast.StagePixel && pixelOnly(s.semantic(v)) {
				exclusive = append(exclusive, v)
				continue
			}
			prev.Out = append(prev.Out, v)
			prev.In = addVar(prev.In, v)
		}
		for _, v := range exclusive {
			next.In = append(slices.DeleteFunc(next.In, func(x ast.VarID) bool { return x == v }), v)
		}

		var keep []ast.VarID
		for _, v := range prev.Out {
			sem := s.semantic(v)
			switch {
			case slices.Contains(next.In, v):
				keep = append(keep, v)
			case (next.Stage == ast.StagePixel || next.Stage == ast.StageGeometry) && isSemantic(sem, "SV_Position"):
				keep = append(keep, v)
			case next.Stage == ast.StagePixel && prev.Stage == ast.StageGeometry && isSemantic(sem, "SV_RenderTargetArrayIndex"):
				keep = append(keep, v)
				next.In = append(next.In, v)
			default:
				prev.Inter = addVar(prev.Inter, v)
			}
		}
		prev.Out = keep
	}
}
