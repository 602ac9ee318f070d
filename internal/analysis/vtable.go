package analysis

import (
	"github.com/stride3d/stride-sub014/internal/ast"
	"github.com/stride3d/stride-sub014/internal/mixin"
	"github.com/stride3d/stride-sub014/internal/vtable"
)

func (a *Analyzer) virtualTable(f *mixin.Fragment) {
	if f.Status[mixin.PassVTable].Done() {
		return
	}
	if dep := f.Status[mixin.PassDependency]; dep != mixin.StatusComplete {
		if dep == mixin.StatusCyclic {
			f.Status[mixin.PassVTable] = mixin.StatusCyclic
		} else {
			f.Status[mixin.PassVTable] = mixin.StatusError
		}
		return
	}
	f.Status[mixin.PassVTable] = mixin.StatusInProgress
	for _, inh := range f.Inheritance {
		a.virtualTable(inh)
		if inh.Status[mixin.PassVTable] != mixin.StatusComplete {
			f.Status[mixin.PassVTable] = mixin.StatusError
			return
		}
	}

	c := &errorCounter{next: reporter(f)}
	f.Merged = merge(f, c)
	recordConflicts(f)
	f.StageOnly = stageOnly(f.Merged)
	finish(f, mixin.PassVTable, c)
}

func merge(f *mixin.Fragment, c *errorCounter) *vtable.Table {
	m := vtable.NewMerger(f.Name, c)
	for _, inh := range f.Inheritance {
		m.Inherit(inh.Local)
	}
	m.Declare(f.Local)
	return m.Table()
}

// recordConflicts notes names shared by two declarations on the same side:
// both local or both inherited. They only become errors when referenced.
func recordConflicts(f *mixin.Fragment) {
	f.ConflictVars = nil
	f.ConflictMethods = nil
	vars := f.Merged.Variables
	for i, v := range vars {
		local := v.Slot.Shader == f.Name
		for j, o := range vars {
			if i != j && (o.Slot.Shader == f.Name) == local && o.Var.Name == v.Var.Name {
				if f.ConflictVars == nil {
					f.ConflictVars = make(map[string][]vtable.Slot)
				}
				f.ConflictVars[v.Var.Name] = append(f.ConflictVars[v.Var.Name], v.Slot)
				break
			}
		}
	}
	methods := f.Merged.Methods
	for i, m := range methods {
		local := m.Ref.Shader == f.Name
		for j, o := range methods {
			if i != j && (o.Ref.Shader == f.Name) == local &&
				o.Method.Name == m.Method.Name && len(o.Method.Params) == len(m.Method.Params) {
				if f.ConflictMethods == nil {
					f.ConflictMethods = make(map[string][]vtable.Slot)
				}
				f.ConflictMethods[m.Method.Name] = append(f.ConflictMethods[m.Method.Name], m.Ref)
				break
			}
		}
	}
}

// stageOnly reports whether every member is stage and nothing is compose or clone.
func stageOnly(t *vtable.Table) bool {
	for _, v := range t.Variables {
		if !v.Var.Qual.Has(ast.QualStage) || v.Var.Qual.Has(ast.QualCompose) {
			return false
		}
	}
	for _, m := range t.Methods {
		if !m.Method.Qual.Has(ast.QualStage) || m.Method.Qual.Has(ast.QualClone) {
			return false
		}
	}
	return true
}
