package analysis

import (
	"github.com/stride3d/stride-sub014/internal/ast"
	"github.com/stride3d/stride-sub014/internal/diag"
	"github.com/stride3d/stride-sub014/internal/mixin"
)

// dependencies resolves bases and compose field types. visiting is the chain
// of fragments whose dependencies are being resolved, outermost first.
func (a *Analyzer) dependencies(f *mixin.Fragment, visiting []*mixin.Fragment) {
	switch f.Status[mixin.PassDependency] {
	case mixin.StatusComplete, mixin.StatusError, mixin.StatusCyclic:
		return
	case mixin.StatusInProgress:
		a.markCycle(f, visiting)
		return
	}
	if f.Status[mixin.PassType] != mixin.StatusComplete {
		f.Status[mixin.PassDependency] = mixin.StatusError
		return
	}
	f.Status[mixin.PassDependency] = mixin.StatusInProgress
	visiting = append(visiting, f)

	for _, b := range f.Shader.Bases {
		base := a.lookups[f](b.Name, b.Args)
		if base == nil {
			// the base failed to load; its own diagnostics say why
			f.Status[mixin.PassDependency] = mixin.StatusError
			return
		}
		a.dependencies(base, visiting)
		switch base.Status[mixin.PassDependency] {
		case mixin.StatusError, mixin.StatusCyclic, mixin.StatusInProgress:
			if f.Status[mixin.PassDependency] == mixin.StatusInProgress {
				f.Status[mixin.PassDependency] = mixin.StatusError
			}
			return
		}
		for _, inh := range base.Inheritance {
			f.Inheritance = appendUnique(f.Inheritance, inh)
		}
		f.Inheritance = appendUnique(f.Inheritance, base)
		f.Bases = append(f.Bases, base)
	}
	if f.Status[mixin.PassDependency] != mixin.StatusInProgress {
		return
	}

	for _, v := range f.Local.Variables {
		p := a.lookups[f](v.Var.Type.Name, v.Var.Type.Args)
		if p == nil {
			continue
		}
		v.Var.Qual |= ast.QualExtern
		f.Plugins[v.Slot.Index] = p
		if v.Var.StageInit {
			f.StageInits[v.Slot.Index] = p
		}
	}
	f.Status[mixin.PassDependency] = mixin.StatusComplete
}

// markCycle flags every fragment of the cycle closed by f.
func (a *Analyzer) markCycle(f *mixin.Fragment, visiting []*mixin.Fragment) {
	start := len(visiting)
	for i, x := range visiting {
		if x == f {
			start = i
			break
		}
	}
	if start == len(visiting) {
		visiting = []*mixin.Fragment{f}
		start = 0
	}
	for _, x := range visiting[start:] {
		x.Status[mixin.PassDependency] = mixin.StatusCyclic
		if x.Diags.Count(diag.GraCyclicDependency) == 0 {
			diag.Errorf(reporter(x), diag.GraCyclicDependency, x.Shader.Span,
				"shader %s inherits from itself", x.Name)
		}
	}
}

func appendUnique(list []*mixin.Fragment, f *mixin.Fragment) []*mixin.Fragment {
	for _, x := range list {
		if x == f {
			return list
		}
	}
	return append(list, f)
}
