package analysis

import (
	"fmt"

	"github.com/stride3d/stride-sub014/internal/ast"
	"github.com/stride3d/stride-sub014/internal/diag"
	"github.com/stride3d/stride-sub014/internal/mixin"
	"github.com/stride3d/stride-sub014/internal/source"
	"github.com/stride3d/stride-sub014/internal/vtable"
)

// checker resolves the references of one fragment's own members.
type checker struct {
	a    *Analyzer
	f    *mixin.Fragment
	tree *ast.Tree
	r    diag.Reporter

	method *ast.Method
	slot   vtable.Slot
	locals map[string]bool
	loops  map[string]plugin
}

// plugin is a compose field reached from an expression.
type plugin struct {
	path      []mixin.Hop
	frag      *mixin.Fragment
	stageInit bool
	array     bool
	dims      int
}

func check(a *Analyzer, f *mixin.Fragment, r diag.Reporter) {
	f.Pools = mixin.NewPools()
	f.Statics = nil
	c := &checker{a: a, f: f, tree: f.Shader.Tree, r: r}
	for i, m := range f.Shader.Members {
		switch m.Kind {
		case ast.MemberVariable:
			c.variable(i, m.Var)
		case ast.MemberMethod:
			c.methodDecl(i, m.Method)
		}
	}
}

func (c *checker) variable(idx int, v *ast.Variable) {
	if v.StageInit && c.f.StageInits[idx] == nil {
		diag.Errorf(c.r, diag.LnkStageInitNotClassType, v.Span,
			"field %s of %s is initialized with stage but is not a compose field of a shader class", v.Name, c.f.Name)
	}
	if v.IsPlugin() && c.f.Plugins[idx] == nil {
		diag.Errorf(c.r, diag.LnkExternNotClassType, v.Span,
			"compose field %s of %s has type %s which is not a shader class", v.Name, c.f.Name, v.Type.Name)
	}
	if v.Init.IsValid() {
		c.method, c.slot = nil, vtable.Slot{}
		c.locals, c.loops = map[string]bool{}, map[string]plugin{}
		c.expr(v.Init)
	}
}

func (c *checker) methodDecl(idx int, m *ast.Method) {
	abstract := m.Qual.Has(ast.QualAbstract)
	if !m.IsDefinition() {
		if !abstract {
			diag.Errorf(c.r, diag.OvrMissingAbstract, m.Span,
				"method %s of %s has no body and is not abstract", m.Signature(), c.f.Name)
		}
		if m.Qual.Has(ast.QualOverride) {
			diag.Errorf(c.r, diag.OvrUnnecessaryOverride, m.Span,
				"method declaration %s of %s cannot be marked override", m.Signature(), c.f.Name)
		}
	} else if abstract {
		diag.Errorf(c.r, diag.OvrUnnecessaryAbstract, m.Span,
			"method %s of %s has a body and cannot be abstract", m.Signature(), c.f.Name)
	}
	if c.isClass(m.Return.Name) {
		diag.Errorf(c.r, diag.LnkShaderSignature, m.Span,
			"method %s of %s returns the shader class %s", m.Signature(), c.f.Name, m.Return.Name)
	}
	for _, p := range m.Params {
		if c.isClass(p.Type.Name) {
			diag.Errorf(c.r, diag.LnkShaderSignature, p.Span,
				"parameter %s of %s has the shader class type %s", p.Name, m.Signature(), p.Type.Name)
		}
	}
	if !m.IsDefinition() {
		return
	}

	c.method = m
	c.slot = vtable.Slot{Shader: c.f.Name, Index: idx}
	c.locals = make(map[string]bool, len(m.Params))
	c.loops = make(map[string]plugin)
	for _, p := range m.Params {
		c.locals[p.Name] = true
	}
	c.tree.InspectStmt(m.Body, c.stmt, func(id ast.ExprID, _ *ast.Expr) bool {
		c.expr(id)
		return false
	})
}

func (c *checker) stmt(_ ast.StmtID, s *ast.Stmt) bool {
	switch s.Kind {
	case ast.StmtDecl:
		if c.isClass(s.Type.Name) {
			diag.Errorf(c.r, diag.LnkShaderVariable, s.Span,
				"local variable of shader class type %s in %s", s.Type.Name, c.f.Name)
		}
		for _, v := range s.Vars {
			c.locals[v.Name] = true
		}
	case ast.StmtForEach:
		if p, ok := c.pluginOf(s.X); ok {
			if p.dims > 1 {
				diag.Errorf(c.r, diag.StrMultiDimArray, s.Span, "foreach over a multidimensional compose array in %s", c.f.Name)
			}
			p.array = false
			c.loops[s.Name] = p
			return true
		}
		if e := c.tree.Expr(s.X); e != nil && e.Kind == ast.ExprIdent && !c.locals[e.Name] {
			if v, ok := c.findVar(e.Name, e.Span); ok && len(v.Var.Type.Dims) > 1 {
				diag.Errorf(c.r, diag.StrMultiDimArray, s.Span, "foreach over the multidimensional array %s in %s", e.Name, c.f.Name)
			}
		}
		c.locals[s.Name] = true
	}
	return true
}

func (c *checker) isClass(name string) bool {
	return name != "" && c.a.lookup(c.f, name) != nil
}

func (c *checker) expr(id ast.ExprID) {
	e := c.tree.Expr(id)
	if e == nil {
		return
	}
	switch e.Kind {
	case ast.ExprLiteral:
	case ast.ExprIdent:
		c.ident(id, e)
	case ast.ExprMember:
		c.member(id, e)
	case ast.ExprCall:
		c.call(id, e)
	case ast.ExprIndex:
		if _, ok := c.pluginOf(e.X); ok {
			c.indexLiteral(e)
		} else {
			c.expr(e.X)
		}
		c.expr(e.Y)
	default:
		c.expr(e.X)
		for _, arg := range e.Args {
			c.expr(arg)
		}
		c.expr(e.Y)
		c.expr(e.Z)
	}
}

func (c *checker) ident(id ast.ExprID, e *ast.Expr) {
	switch e.Name {
	case "streams", "this", "base":
		return
	case "stage":
		diag.Errorf(c.r, diag.LnkStageOutsideField, e.Span, "stage can only initialize a compose field")
		return
	}
	if c.local(e.Name) {
		return
	}
	v, ok := c.findVar(e.Name, e.Span)
	if !ok || v.Var.IsPlugin() {
		return
	}
	if v.Var.IsStream() {
		diag.Errorf(c.r, diag.StrMissingStreamsPrefix, e.Span,
			"stream %s must be accessed through streams.%s", e.Name, e.Name)
	}
	c.f.Pools.Add(id, mixin.Ref{Kind: mixin.RefVariable, Pool: mixin.PoolClass, Target: v.Slot, Name: e.Name, Span: e.Span})
}

func (c *checker) local(name string) bool {
	if c.locals[name] {
		return true
	}
	_, ok := c.loops[name]
	return ok
}

// findVar resolves a bare field name inside the fragment's lineage. A name
// declared once locally wins; otherwise several candidates are ambiguous.
func (c *checker) findVar(name string, span source.Span) (vtable.VarEntry, bool) {
	if own := c.f.Local.FindVariables(name); len(own) == 1 {
		return own[0], true
	}
	all := c.f.Merged.FindVariables(name)
	switch len(all) {
	case 0:
		return vtable.VarEntry{}, false
	case 1:
		return all[0], true
	}
	b := diag.ReportError(c.r, diag.NamAmbiguousReference, span,
		fmt.Sprintf("%s is declared by several classes of %s", name, c.f.Name))
	for _, v := range all {
		b.WithNote(v.Var.Span, "declared in "+v.Slot.Shader)
	}
	b.Emit()
	return all[len(all)-1], true
}

// findMethod picks the most derived entry with the given name and arity.
func findMethod(t *vtable.Table, name string, arity int) (vtable.MethodEntry, bool) {
	entries := t.FindMethods(name, arity)
	if len(entries) == 0 {
		return vtable.MethodEntry{}, false
	}
	return entries[len(entries)-1], true
}

func (c *checker) member(id ast.ExprID, e *ast.Expr) {
	target := c.tree.Expr(e.X)
	if target != nil && target.Kind == ast.ExprIdent && !c.local(target.Name) {
		switch target.Name {
		case "streams":
			c.stream(id, e)
			return
		case "this", "base":
			if v, ok := c.findVar(e.Name, e.Span); ok && !v.Var.IsPlugin() {
				c.f.Pools.Add(id, mixin.Ref{Kind: mixin.RefVariable, Pool: mixin.PoolClass, Target: v.Slot, Name: e.Name, Span: e.Span})
			}
			return
		}
		if _, isVar := c.findVarQuiet(target.Name); !isVar {
			if class := c.a.lookup(c.f, target.Name); class != nil {
				c.classVar(id, e, class)
				return
			}
		}
	}
	if p, ok := c.pluginOf(e.X); ok {
		c.index(e.X)
		v, found := findVarIn(p.frag, e.Name)
		switch {
		case found && v.Var.IsPlugin():
			// an intermediate hop; the enclosing member records the reference
		case found:
			c.f.Pools.Add(id, mixin.Ref{
				Kind: mixin.RefVariable, Pool: p.pool(), Target: v.Slot,
				Class: p.frag.Name, Path: p.path, Name: e.Name, Span: e.Span,
			})
		default:
			diag.Errorf(c.r, diag.LnkExternNotFound, e.Span,
				"%s has no member %s", p.frag.Name, e.Name)
		}
		return
	}
	c.expr(e.X)
}

func (c *checker) findVarQuiet(name string) (vtable.VarEntry, bool) {
	all := c.f.Merged.FindVariables(name)
	if len(all) == 0 {
		return vtable.VarEntry{}, false
	}
	return all[len(all)-1], true
}

func findVarIn(f *mixin.Fragment, name string) (vtable.VarEntry, bool) {
	if f.Merged == nil {
		return vtable.VarEntry{}, false
	}
	all := f.Merged.FindVariables(name)
	if len(all) == 0 {
		return vtable.VarEntry{}, false
	}
	return all[len(all)-1], true
}

func (c *checker) stream(id ast.ExprID, e *ast.Expr) {
	v, ok := c.findVarQuiet(e.Name)
	if !ok {
		diag.Errorf(c.r, diag.StrStreamNotFound, e.Span, "stream %s not found in %s", e.Name, c.f.Name)
		return
	}
	if !v.Var.IsStream() {
		diag.Errorf(c.r, diag.StrExtraStreamsPrefix, e.Span, "%s is not a stream but is accessed through streams", e.Name)
	}
	c.f.Pools.Add(id, mixin.Ref{Kind: mixin.RefVariable, Pool: mixin.PoolClass, Target: v.Slot, Name: e.Name, Span: e.Span})
}

// inLineage reports whether class is f itself or one of its bases.
func (c *checker) inLineage(class *mixin.Fragment) bool {
	if class == c.f || class.Name == c.f.Name {
		return true
	}
	for _, x := range c.f.Inheritance {
		if x == class {
			return true
		}
	}
	return false
}

// classVar handles `Class.field`.
func (c *checker) classVar(id ast.ExprID, e *ast.Expr, class *mixin.Fragment) {
	v, ok := findVarIn(class, e.Name)
	if !ok {
		if _, isMethod := findMethodAny(class, e.Name); !isMethod {
			diag.Errorf(c.r, diag.LnkExternNotFound, e.Span, "%s has no member %s", class.Name, e.Name)
		}
		return
	}
	ref := mixin.Ref{Kind: mixin.RefVariable, Pool: mixin.PoolClass, Target: v.Slot, Name: e.Name, Span: e.Span}
	if !c.inLineage(class) {
		ref.Pool = mixin.PoolStatic
		ref.Class = class.Name
		c.f.Statics = appendUnique(c.f.Statics, class)
	}
	c.f.Pools.Add(id, ref)
}

func findMethodAny(f *mixin.Fragment, name string) (vtable.MethodEntry, bool) {
	if f.Merged == nil {
		return vtable.MethodEntry{}, false
	}
	return findMethod(f.Merged, name, -1)
}

func (c *checker) call(id ast.ExprID, e *ast.Expr) {
	for _, arg := range e.Args {
		c.expr(arg)
	}
	name, target := c.tree.Callee(e)
	arity := len(e.Args)
	ref := mixin.Ref{Kind: mixin.RefMethod, Pool: mixin.PoolClass, Name: name, Arity: arity, Span: e.Span}

	if !target.IsValid() {
		if c.local(name) {
			return
		}
		m, ok := findMethod(c.f.Merged, name, arity)
		if !ok {
			return // intrinsic
		}
		c.addCall(id, ref, m)
		return
	}

	t := c.tree.Expr(target)
	if t.Kind == ast.ExprIdent && !c.local(t.Name) {
		switch t.Name {
		case "base":
			c.baseCall(id, ref, t.Span)
			return
		case "this":
			m, ok := findMethod(c.f.Merged, name, arity)
			if !ok {
				diag.Errorf(c.r, diag.LnkImpossibleVirtualCall, t.Span,
					"%s has no method %s with %d parameter(s)", c.f.Name, name, arity)
				return
			}
			c.addCall(id, ref, m)
			return
		}
		if _, isVar := c.findVarQuiet(t.Name); !isVar {
			if class := c.a.lookup(c.f, t.Name); class != nil {
				c.staticCall(id, ref, class)
				return
			}
		}
	}
	if p, ok := c.pluginOf(target); ok {
		c.index(target)
		m, found := methodIn(p.frag, name, arity)
		if !found {
			diag.Errorf(c.r, diag.LnkExternNotFound, e.Span,
				"%s has no method %s with %d parameter(s)", p.frag.Name, name, arity)
			return
		}
		ref.Pool = p.pool()
		ref.Target = m.Ref
		ref.Class = p.frag.Name
		ref.Path = p.path
		c.f.Pools.Add(id, ref)
		return
	}
	c.expr(target)
}

func methodIn(f *mixin.Fragment, name string, arity int) (vtable.MethodEntry, bool) {
	if f.Merged == nil {
		return vtable.MethodEntry{}, false
	}
	return findMethod(f.Merged, name, arity)
}

func (c *checker) addCall(id ast.ExprID, ref mixin.Ref, m vtable.MethodEntry) {
	if c.method != nil && m.Impl == c.slot {
		diag.Errorf(c.r, diag.LnkCyclicMethod, c.method.Span,
			"method %s of %s calls itself", c.method.Signature(), c.f.Name)
	}
	ref.Target = m.Ref
	c.f.Pools.Add(id, ref)
}

// baseCall links `base.M()` to a method some base class declares.
func (c *checker) baseCall(id ast.ExprID, ref mixin.Ref, span source.Span) {
	for _, inh := range c.f.Inheritance {
		for _, lm := range inh.Local.FindMethods(ref.Name, ref.Arity) {
			for _, m := range c.f.Merged.Methods {
				if m.Method.SameSignature(lm.Method) {
					ref.Target = m.Ref
					ref.Base = true
					c.f.Pools.Add(id, ref)
					return
				}
			}
		}
	}
	diag.Errorf(c.r, diag.LnkImpossibleBaseCall, span,
		"no base class of %s declares %s with %d parameter(s)", c.f.Name, ref.Name, ref.Arity)
}

// staticCall handles `Class.M()`.
func (c *checker) staticCall(id ast.ExprID, ref mixin.Ref, class *mixin.Fragment) {
	m, ok := methodIn(class, ref.Name, ref.Arity)
	if !ok {
		diag.Errorf(c.r, diag.LnkExternNotFound, ref.Span,
			"%s has no method %s with %d parameter(s)", class.Name, ref.Name, ref.Arity)
		return
	}
	if !c.inLineage(class) {
		ref.Pool = mixin.PoolStatic
		ref.Class = class.Name
		c.f.Statics = appendUnique(c.f.Statics, class)
		ref.Target = m.Ref
		c.f.Pools.Add(id, ref)
		return
	}
	c.addCall(id, ref, m)
}

func (p plugin) pool() mixin.PoolKind {
	if p.stageInit {
		return mixin.PoolStageInit
	}
	return mixin.PoolExtern
}

// pluginOf follows x through compose fields: `color`, `layers[1]`,
// `outer.inner`, or a foreach variable bound to a compose array.
func (c *checker) pluginOf(x ast.ExprID) (plugin, bool) {
	e := c.tree.Expr(x)
	if e == nil {
		return plugin{}, false
	}
	switch e.Kind {
	case ast.ExprParen:
		return c.pluginOf(e.X)
	case ast.ExprIdent:
		if p, ok := c.loops[e.Name]; ok {
			return p, true
		}
		if c.locals[e.Name] {
			return plugin{}, false
		}
		v, ok := c.findVarQuiet(e.Name)
		if !ok || !v.Var.IsPlugin() {
			return plugin{}, false
		}
		return c.hop(plugin{}, c.f, v)
	case ast.ExprMember:
		if t := c.tree.Expr(e.X); t != nil && t.Kind == ast.ExprIdent && t.Name == "this" {
			v, ok := c.findVarQuiet(e.Name)
			if !ok || !v.Var.IsPlugin() {
				return plugin{}, false
			}
			return c.hop(plugin{}, c.f, v)
		}
		outer, ok := c.pluginOf(e.X)
		if !ok {
			return plugin{}, false
		}
		v, found := findVarIn(outer.frag, e.Name)
		if !found || !v.Var.IsPlugin() {
			return plugin{}, false
		}
		return c.hop(outer, outer.frag, v)
	case ast.ExprIndex:
		p, ok := c.pluginOf(e.X)
		if !ok || !p.array {
			return plugin{}, false
		}
		if n, lit := c.tree.Expr(e.Y).IsIntLiteral(); lit && len(p.path) > 0 {
			p.path[len(p.path)-1].Elem = n
		}
		p.array = false
		return p, true
	}
	return plugin{}, false
}

// hop extends outer by the compose field v of owner.
func (c *checker) hop(outer plugin, owner *mixin.Fragment, v vtable.VarEntry) (plugin, bool) {
	frag := owner.PluginFragment(v.Slot)
	if frag == nil {
		return plugin{}, false
	}
	path := make([]mixin.Hop, len(outer.path), len(outer.path)+1)
	copy(path, outer.path)
	path = append(path, mixin.Hop{Var: v.Slot, Elem: mixin.NoElem})
	return plugin{
		path:      path,
		frag:      frag,
		stageInit: outer.stageInit || v.Var.StageInit,
		array:     v.Var.Type.IsArray(),
		dims:      len(v.Var.Type.Dims),
	}, true
}

// index checks the indexers along a compose chain.
func (c *checker) index(x ast.ExprID) {
	e := c.tree.Expr(x)
	for e != nil {
		switch e.Kind {
		case ast.ExprIndex:
			c.indexLiteral(e)
			c.expr(e.Y)
			e = c.tree.Expr(e.X)
		case ast.ExprMember, ast.ExprParen:
			e = c.tree.Expr(e.X)
		default:
			return
		}
	}
}

func (c *checker) indexLiteral(e *ast.Expr) {
	if _, ok := c.tree.Expr(e.Y).IsIntLiteral(); !ok {
		diag.Errorf(c.r, diag.LnkIndexerNotLiteral, e.Span, "compose array index must be an integer literal")
	}
}
