package mixer

import (
	"errors"
	"fmt"
	"slices"

	"github.com/stride3d/stride-sub014/internal/ast"
	"github.com/stride3d/stride-sub014/internal/compose"
	"github.com/stride3d/stride-sub014/internal/diag"
	"github.com/stride3d/stride-sub014/internal/mixin"
	"github.com/stride3d/stride-sub014/internal/vtable"
)

// chainLink is one definition of a stage method. Stage methods are shared by
// every instance of their class, so their override chain spans the whole tree.
type chainLink struct {
	occ  *occurrence
	impl vtable.Slot
	m    *ast.Method
}

// buildChains groups stage method definitions by base declaration. A repeated
// class adds a link only when its definition is a clone.
func (l *linker) buildChains() {
	for _, o := range l.occs {
		for _, m := range o.frag.Local.Methods {
			if !m.Method.IsDefinition() || !m.Method.Qual.Has(ast.QualStage) {
				continue
			}
			ref := baseDecl(o.frag, m.Impl)
			chain, ok := l.chains[ref]
			if ok && o.id != 1 && !m.Method.Qual.Has(ast.QualClone) {
				continue
			}
			l.chains[ref] = append(chain, chainLink{occ: o, impl: m.Impl, m: m.Method})
		}
	}
}

func (l *linker) inChain(o *occurrence, impl vtable.Slot) bool {
	for _, link := range l.chains[baseDecl(o.frag, impl)] {
		if link.occ == o && link.impl == impl {
			return true
		}
	}
	return false
}

// baseDecl maps an implementation slot of f to the slot of its first declaration.
func baseDecl(f *mixin.Fragment, impl vtable.Slot) vtable.Slot {
	if f.Merged != nil {
		if e, ok := f.Merged.ByImpl(impl); ok {
			return e.Ref
		}
	}
	return impl
}

func (l *linker) chainMethod(link chainLink) ast.MethodID {
	return l.method(link.occ, link.impl, link.m)
}

// resolveVar finds the declaration a field reference of o points to.
func (l *linker) resolveVar(o *occurrence, ref mixin.Ref) (ast.VarID, bool) {
	switch ref.Pool {
	case mixin.PoolClass:
		return l.varIn(o, o.lineage(), ref)
	case mixin.PoolStatic:
		so := l.static(ref.Class, o)
		if so == nil {
			diag.Errorf(l.r, diag.LnkExternNotFound, ref.Span, "static class %s of %s is not available", ref.Class, o.frag.Name)
			return 0, false
		}
		return l.varIn(so, so.lineage(), ref)
	case mixin.PoolExtern:
		inst, ok := l.follow(o.inst, ref)
		if !ok {
			return 0, false
		}
		return l.varOf(inst, ref)
	case mixin.PoolStageInit:
		inst, ok := l.stageInstance(o, ref)
		if !ok {
			return 0, false
		}
		return l.varOf(inst, ref)
	}
	diag.Errorf(l.r, diag.LnkExternNotFound, ref.Span, "field %s of %s has no %s binding", ref.Name, o.frag.Name, ref.Pool)
	return 0, false
}

// varIn declares slot as seen from o; stage fields resolve to their single declaration.
func (l *linker) varIn(o *occurrence, lineage []*mixin.Fragment, ref mixin.Ref) (ast.VarID, bool) {
	slot := ref.Target
	for pos, f := range lineage {
		if f.Name != slot.Shader {
			continue
		}
		v := f.Shader.Variable(slot.Index)
		if v == nil {
			break
		}
		owner := o
		if owner.frag != f {
			owner = &occurrence{inst: o.inst, frag: f, id: o.id, pos: pos}
			if found := l.occurrenceOf(o.inst, f); found != nil {
				owner = found
			}
		}
		return l.variable(owner, slot, v), true
	}
	diag.Errorf(l.r, diag.LnkExternNotFound, ref.Span, "field %s not found in %s", ref.Name, o.frag.Name)
	return 0, false
}

func (l *linker) occurrenceOf(inst *compose.Instance, f *mixin.Fragment) *occurrence {
	for _, o := range l.occs {
		if o.inst == inst && o.frag == f {
			return o
		}
	}
	return nil
}

// varOf resolves a field reached through compose fields inside inst.
func (l *linker) varOf(inst *compose.Instance, ref mixin.Ref) (ast.VarID, bool) {
	top := inst.Top()
	if same := top.Merged.FindVariables(ref.Name); len(same) > 1 && ref.Pool == mixin.PoolStageInit {
		diag.Errorf(l.r, diag.LnkAmbiguousStage, ref.Span, "stage member %s is declared %d times in %s", ref.Name, len(same), inst.Fragment.Name)
		return 0, false
	}
	o := l.occurrenceOf(inst, top)
	if o == nil {
		diag.Errorf(l.r, diag.LnkExternNotFound, ref.Span, "%s of %s is not part of the composition", ref.Name, instanceName(inst))
		return 0, false
	}
	return l.varIn(o, inst.Lineage, ref)
}

func (l *linker) follow(inst *compose.Instance, ref mixin.Ref) (*compose.Instance, bool) {
	if inst == nil {
		diag.Errorf(l.r, diag.LnkExternNotFound, ref.Span, "%s is not reachable from a static class", ref.Name)
		return nil, false
	}
	target, err := compose.Follow(inst, ref.Path)
	switch {
	case err == nil:
		return target, true
	case errors.Is(err, compose.ErrIndexRange):
		diag.Errorf(l.r, diag.LnkIndexOutOfRange, ref.Span, "%v", err)
	default:
		diag.Errorf(l.r, diag.LnkExternNotFound, ref.Span, "cannot resolve %s: %v", ref.Name, err)
	}
	return nil, false
}

// stageInstance resolves a `= stage` compose field to the unique instance of
// its class in the tree, then follows the rest of the path.
func (l *linker) stageInstance(o *occurrence, ref mixin.Ref) (*compose.Instance, bool) {
	if len(ref.Path) == 0 {
		diag.Errorf(l.r, diag.LnkStageNotFound, ref.Span, "%s is not reached through a stage compose field", ref.Name)
		return nil, false
	}
	head := ref.Path[0].Var
	var decl *mixin.Fragment
	for _, f := range o.lineage() {
		if f.Name == head.Shader {
			decl = f.StageInits[head.Index]
		}
	}
	if decl == nil {
		// the `= stage` field is further down the path
		return l.follow(o.inst, ref)
	}
	var found []*compose.Instance
	for _, x := range l.occs {
		if x.inst != nil && x.frag.Name == decl.Name && !slices.Contains(found, x.inst) {
			found = append(found, x.inst)
		}
	}
	if len(found) == 0 {
		diag.Errorf(l.r, diag.LnkStageNotFound, ref.Span,
			"%s of %s needs an instance of %s somewhere in the composition", ref.Name, o.frag.Name, decl.Name)
		return nil, false
	}
	if len(found) > 1 {
		diag.NewReportBuilder(l.r, diag.SevError, diag.LnkAmbiguousStage, ref.Span,
			fmt.Sprintf("%s of %s matches %d instances of %s", ref.Name, o.frag.Name, len(found), decl.Name)).
			WithNote(ref.Span, "composed at "+instanceName(found[0])).
			WithNote(ref.Span, "and at "+instanceName(found[1])).Emit()
		return nil, false
	}
	inst := found[0]
	if len(ref.Path) == 1 {
		return inst, true
	}
	rest := ref
	rest.Path = ref.Path[1:]
	return l.follow(inst, rest)
}

func instanceName(i *compose.Instance) string {
	if i.Path == "" {
		return i.Fragment.Name
	}
	return i.Path
}

// resolveCall finds the method a call of o dispatches to.
func (l *linker) resolveCall(o *occurrence, ref mixin.Ref) (ast.MethodID, bool) {
	switch ref.Pool {
	case mixin.PoolClass:
		if ref.Base {
			return l.baseCall(o, ref)
		}
		return l.virtualCall(o, o.top(), ref)
	case mixin.PoolStatic:
		so := l.static(ref.Class, o)
		if so == nil {
			diag.Errorf(l.r, diag.LnkExternNotFound, ref.Span, "static class %s of %s is not available", ref.Class, o.frag.Name)
			return 0, false
		}
		return l.virtualCall(so, so.top(), ref)
	case mixin.PoolExtern, mixin.PoolStageInit:
		var inst *compose.Instance
		var ok bool
		if ref.Pool == mixin.PoolExtern {
			inst, ok = l.follow(o.inst, ref)
		} else {
			inst, ok = l.stageInstance(o, ref)
		}
		if !ok {
			return 0, false
		}
		target := l.occurrenceOf(inst, inst.Top())
		if target == nil {
			diag.Errorf(l.r, diag.LnkExternNotFound, ref.Span, "%s of %s is not part of the composition", ref.Name, instanceName(inst))
			return 0, false
		}
		return l.virtualCall(target, inst.Top(), ref)
	}
	diag.Errorf(l.r, diag.LnkExternNotFound, ref.Span, "call %s of %s has no %s binding", ref.Name, o.frag.Name, ref.Pool)
	return 0, false
}

// virtualCall dispatches to the most derived implementation in top.
func (l *linker) virtualCall(o *occurrence, top *mixin.Fragment, ref mixin.Ref) (ast.MethodID, bool) {
	e, ok := top.Merged.Method(ref.Target)
	if !ok {
		diag.Errorf(l.r, diag.LnkImpossibleVirtualCall, ref.Span, "%s has no method %s", top.Name, ref.Name)
		return 0, false
	}
	if e.Method.Qual.Has(ast.QualStage) {
		chain := l.chains[ref.Target]
		if len(chain) == 0 {
			return l.abstract(ref, e)
		}
		return l.chainMethod(chain[len(chain)-1]), true
	}
	if !e.Method.IsDefinition() {
		return l.abstract(ref, e)
	}
	return l.methodAt(o, e.Impl, e.Method), true
}

// baseCall dispatches to the next less derived implementation.
func (l *linker) baseCall(o *occurrence, ref mixin.Ref) (ast.MethodID, bool) {
	lineage := o.lineage()
	if probe, ok := o.top().Merged.Method(ref.Target); ok && probe.Method.Qual.Has(ast.QualStage) {
		chain := l.chains[ref.Target]
		for j := len(chain) - 1; j > 0; j-- {
			if chain[j].occ.frag.Name == o.frag.Name && (chain[j].occ.inst == o.inst || !chain[j].m.Qual.Has(ast.QualClone)) {
				return l.chainMethod(chain[j-1]), true
			}
		}
	} else {
		for k := o.pos - 1; k >= 0 && k < len(lineage); k-- {
			e, ok := lineage[k].Merged.Method(ref.Target)
			if !ok {
				continue
			}
			if !e.Method.IsDefinition() {
				return l.abstract(ref, e)
			}
			return l.methodAt(o, e.Impl, e.Method), true
		}
	}
	diag.Errorf(l.r, diag.LnkImpossibleBaseCall, ref.Span, "no base implementation of %s below %s", ref.Name, o.frag.Name)
	return 0, false
}

func (l *linker) abstract(ref mixin.Ref, e vtable.MethodEntry) (ast.MethodID, bool) {
	diag.Errorf(l.r, diag.LnkAbstractCall, ref.Span, "call to abstract method %s declared in %s", e.Method.Signature(), e.Impl.Shader)
	return 0, false
}

// methodAt declares the implementation slot impl in the instance of o.
func (l *linker) methodAt(o *occurrence, impl vtable.Slot, m *ast.Method) ast.MethodID {
	owner := o
	if o.frag.Name != impl.Shader {
		for pos, f := range o.lineage() {
			if f.Name != impl.Shader {
				continue
			}
			owner = l.occurrenceOf(o.inst, f)
			if owner == nil {
				owner = &occurrence{inst: o.inst, frag: f, id: 1, pos: pos}
			}
			break
		}
	}
	return l.method(owner, impl, m)
}
