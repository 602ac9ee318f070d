// Package mixer links a composition tree into one flattened program.
//
// Link runs in order:
//
//	occurrences   flatten the tree, bases first, and number repeated classes
//	stage chains  collect stage methods across the whole tree
//	allocation    one declaration per instance, stage members once
//	bodies        copy method bodies, resolving every reference
//	unification   same-semantic fields and reference fields become one
//	rename        unique names, entry points excepted
//	layout        constants, constant buffers, resources, streams
//	foreach       fixed-size loops become counted loops
//
// Prune runs after stream structuring: unused fields go, logical groups get padded.
package mixer

import (
	"context"
	"strconv"

	"github.com/stride3d/stride-sub014/internal/ast"
	"github.com/stride3d/stride-sub014/internal/compose"
	"github.com/stride3d/stride-sub014/internal/diag"
	"github.com/stride3d/stride-sub014/internal/mixin"
	"github.com/stride3d/stride-sub014/internal/trace"
	"github.com/stride3d/stride-sub014/internal/vtable"
)

// occurrence is one fragment of one instance's lineage.
type occurrence struct {
	inst *compose.Instance // nil for classes only reached through static references
	frag *mixin.Fragment
	id   int // nth appearance of frag.Name, from 1
	pos  int // index of frag in the lineage
}

func (o *occurrence) lineage() []*mixin.Fragment {
	if o.inst == nil {
		return o.frag.Lineage()
	}
	return o.inst.Lineage
}

func (o *occurrence) top() *mixin.Fragment {
	l := o.lineage()
	return l[len(l)-1]
}

// declKey identifies one declaration of the flattened program. Stage members
// and members of statically referenced classes have no instance.
type declKey struct {
	inst *compose.Instance
	slot vtable.Slot
}

type pendingMethod struct {
	id  ast.MethodID
	occ *occurrence
	src *ast.Method
}

type linker struct {
	r    diag.Reporter
	prog *ast.Program
	root *compose.Instance

	occs    []*occurrence
	byName  map[string]*mixin.Fragment
	statics map[string]*occurrence

	chains map[vtable.Slot][]chainLink

	vars    map[declKey]ast.VarID
	methods map[declKey]ast.MethodID
	varOcc  map[ast.VarID]*occurrence
	queue   []pendingMethod
	order   []ast.VarID
}

// Link flattens the instance tree rooted at root. Problems go to r; the
// returned program is nil when root is nil.
func Link(ctx context.Context, root *compose.Instance, r diag.Reporter) *ast.Program {
	span, _ := trace.Start(ctx, trace.ScopePass, "mix")
	if root == nil {
		span.End("no root")
		return nil
	}
	if r == nil {
		r = diag.NopReporter{}
	}
	l := &linker{
		r:       r,
		prog:    ast.NewProgram(root.Fragment.Name),
		root:    root,
		byName:  make(map[string]*mixin.Fragment),
		statics: make(map[string]*occurrence),
		chains:  make(map[vtable.Slot][]chainLink),
		vars:    make(map[declKey]ast.VarID),
		methods: make(map[declKey]ast.MethodID),
		varOcc:  make(map[ast.VarID]*occurrence),
	}
	l.collect(root)
	l.buildChains()
	l.allocate()
	l.entries()
	l.bodies()
	alias := l.unify()
	l.rename(alias)
	l.layout()
	l.expandForEach()
	span.End(strconv.Itoa(len(l.occs)) + " occurrences, " + strconv.Itoa(len(l.prog.Funcs)) + " methods")
	return l.prog
}

// collect appends the occurrences of inst: its lineage in order, and after
// each fragment the instances filling the compose fields it declares.
func (l *linker) collect(inst *compose.Instance) {
	for pos, f := range inst.Lineage {
		o := &occurrence{inst: inst, frag: f, pos: pos}
		for _, prev := range l.occs {
			if prev.frag.Name == f.Name {
				o.id++
			}
		}
		o.id++
		l.occs = append(l.occs, o)
		if _, ok := l.byName[f.Name]; !ok {
			l.byName[f.Name] = f
		}
		for _, v := range f.Local.Variables {
			if !v.Var.IsPlugin() {
				continue
			}
			for _, child := range inst.Slots[v.Slot] {
				l.collect(child)
			}
		}
	}
}

// static returns the shared occurrence of a class reached as `Class.Member`.
func (l *linker) static(class string, from *occurrence) *occurrence {
	if o, ok := l.statics[class]; ok {
		return o
	}
	var frag *mixin.Fragment
	for _, f := range from.frag.Statics {
		if f.Name == class {
			frag = f
		}
	}
	if frag == nil {
		frag = l.byName[class]
	}
	if frag == nil {
		return nil
	}
	o := &occurrence{frag: frag, id: 1, pos: len(frag.Inheritance)}
	l.statics[class] = o
	return o
}

const sdslOnly = ast.QualStage | ast.QualStream | ast.QualPatchStream | ast.QualCompose |
	ast.QualClone | ast.QualOverride | ast.QualAbstract | ast.QualExtern | ast.QualInternal

// allocate declares every field and method definition of every occurrence.
func (l *linker) allocate() {
	for _, o := range l.occs {
		for _, v := range o.frag.Local.Variables {
			if !v.Var.IsPlugin() {
				l.variable(o, v.Slot, v.Var)
			}
		}
		for _, m := range o.frag.Local.Methods {
			if !m.Method.IsDefinition() {
				continue
			}
			if m.Method.Qual.Has(ast.QualStage) && !l.inChain(o, m.Impl) {
				continue
			}
			l.method(o, m.Impl, m.Method)
		}
		if o.id == 1 {
			for _, t := range o.frag.Local.Types {
				l.declareType(o, t)
			}
		}
	}
}

func (l *linker) declareType(o *occurrence, t vtable.TypeEntry) {
	if t.Typedef != nil {
		td := *t.Typedef
		td.Type = td.Type.Clone()
		td.Origin = o.frag.Name
		l.prog.Typedefs = append(l.prog.Typedefs, td)
		return
	}
	st := t.Struct.Clone()
	st.Origin = o.frag.Name
	l.prog.Structs = append(l.prog.Structs, st)
}

func (l *linker) key(o *occurrence, slot vtable.Slot, q ast.Qualifier) declKey {
	if o.inst == nil || q.Has(ast.QualStage) && !q.Has(ast.QualClone) {
		return declKey{slot: slot}
	}
	return declKey{inst: o.inst, slot: slot}
}

// variable declares the field slot of o once and returns its id.
func (l *linker) variable(o *occurrence, slot vtable.Slot, v *ast.Variable) ast.VarID {
	k := l.key(o, slot, v.Qual)
	if id, ok := l.vars[k]; ok {
		return id
	}
	nv := v.Clone()
	nv.Init = ast.NoExprID
	nv.Origin = o.frag.Name
	id := l.prog.AddVar(nv)
	l.vars[k] = id
	l.varOcc[id] = o
	l.order = append(l.order, id)
	if v.Init.IsValid() {
		init := l.copier(o).CopyExpr(v.Init)
		l.prog.Var(id).Init = init
	}
	return id
}

// method declares the method slot of o once; its body is copied later.
func (l *linker) method(o *occurrence, slot vtable.Slot, m *ast.Method) ast.MethodID {
	k := l.key(o, slot, m.Qual)
	if id, ok := l.methods[k]; ok {
		return id
	}
	nm := m.Clone()
	nm.Body = ast.NoStmtID
	nm.Qual &^= sdslOnly
	nm.Origin = o.frag.Name
	id := l.prog.AddMethod(nm)
	l.methods[k] = id
	l.prog.Funcs = append(l.prog.Funcs, id)
	l.queue = append(l.queue, pendingMethod{id: id, occ: o, src: m})
	return id
}

// bodies copies every queued body; copying may queue more methods.
func (l *linker) bodies() {
	for i := 0; i < len(l.queue); i++ {
		p := l.queue[i]
		body := l.copier(p.occ).CopyStmt(p.src.Body)
		l.prog.Method(p.id).Body = body
	}
}

// entries picks, per stage, the most derived entry point definition of the
// tree. A repeated class only provides one if its definition is a clone.
func (l *linker) entries() {
	for _, s := range ast.Stages() {
		name := s.EntryName()
	search:
		for i := len(l.occs) - 1; i >= 0; i-- {
			o := l.occs[i]
			for _, m := range o.frag.Local.Methods {
				if m.Method.Name != name || !m.Method.IsDefinition() {
					continue
				}
				if o.id != 1 && !m.Method.Qual.Has(ast.QualClone) {
					continue
				}
				id, ok := l.methods[l.key(o, m.Impl, m.Method.Qual)]
				if !ok {
					continue
				}
				if s == ast.StagePixel && emptyBody(o.frag.Shader.Tree, m.Method.Body) {
					break search
				}
				l.prog.Entries[s] = id
				break search
			}
		}
	}
}

func emptyBody(t *ast.Tree, body ast.StmtID) bool {
	st := t.Stmt(body)
	return st == nil || st.Kind == ast.StmtBlock && len(st.Stmts) == 0
}
