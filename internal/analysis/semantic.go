package analysis

import (
	"sort"

	"github.com/stride3d/stride-sub014/internal/diag"
	"github.com/stride3d/stride-sub014/internal/mixin"
)

// semantic checks the bodies of f once its bases, compose types and
// statically referenced classes are checked.
func (a *Analyzer) semantic(f *mixin.Fragment, visiting []*mixin.Fragment) {
	switch st := f.Status[mixin.PassSemantic]; {
	case st.Done():
		return
	case st == mixin.StatusInProgress:
		a.markSemanticCycle(f, visiting)
		return
	}
	if vt := f.Status[mixin.PassVTable]; vt != mixin.StatusComplete {
		if vt == mixin.StatusCyclic {
			f.Status[mixin.PassSemantic] = mixin.StatusCyclic
		} else {
			f.Status[mixin.PassSemantic] = mixin.StatusError
		}
		return
	}
	f.Status[mixin.PassSemantic] = mixin.StatusInProgress
	visiting = append(visiting, f)

	if !a.semanticAll(f, f.Bases, visiting) || !a.semanticAll(f, pluginList(f), visiting) {
		return
	}

	c := &errorCounter{next: reporter(f)}
	check(a, f, c)

	if !a.semanticAll(f, f.Statics, visiting) {
		return
	}
	if f.Status[mixin.PassSemantic] == mixin.StatusInProgress {
		finish(f, mixin.PassSemantic, c)
	}
}

func (a *Analyzer) semanticAll(f *mixin.Fragment, deps []*mixin.Fragment, visiting []*mixin.Fragment) bool {
	for _, d := range deps {
		if d == f {
			continue
		}
		a.semantic(d, visiting)
		switch d.Status[mixin.PassSemantic] {
		case mixin.StatusError, mixin.StatusCyclic:
			if f.Status[mixin.PassSemantic] == mixin.StatusInProgress {
				f.Status[mixin.PassSemantic] = mixin.StatusError
			}
			return false
		}
	}
	return true
}

// markSemanticCycle handles a compose type that, directly or through other
// compose types, contains the fragment being checked.
func (a *Analyzer) markSemanticCycle(f *mixin.Fragment, visiting []*mixin.Fragment) {
	if f.Diags.Count(diag.GraCyclicDependency) == 0 {
		names := make([]string, 0, len(visiting))
		for _, x := range visiting {
			names = append(names, x.Name)
		}
		diag.Errorf(reporter(f), diag.GraCyclicDependency, f.Shader.Span,
			"shader %s composes itself through %v", f.Name, names)
	}
	f.Status[mixin.PassSemantic] = mixin.StatusCyclic
}

// pluginList returns the distinct compose types of f in member order.
func pluginList(f *mixin.Fragment) []*mixin.Fragment {
	idx := make([]int, 0, len(f.Plugins))
	for i := range f.Plugins {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	var out []*mixin.Fragment
	for _, i := range idx {
		out = appendUnique(out, f.Plugins[i])
	}
	return out
}
