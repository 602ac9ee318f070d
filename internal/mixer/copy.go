package mixer

import (
	"github.com/stride3d/stride-sub014/internal/ast"
	"github.com/stride3d/stride-sub014/internal/mixin"
)

// copier moves nodes of o's fragment into the program tree, replacing every
// resolved reference by a plain identifier recorded in the side tables.
func (l *linker) copier(o *occurrence) *ast.Copier {
	c := &ast.Copier{Src: o.frag.Shader.Tree, Dst: l.prog.Tree}
	c.Expr = func(id ast.ExprID, e ast.Expr) (ast.ExprID, bool) {
		ref, ok := o.frag.Pools.Get(id)
		if !ok {
			return ast.NoExprID, false
		}
		switch ref.Kind {
		case mixin.RefVariable:
			return l.varExpr(o, ref, e)
		case mixin.RefMethod:
			return l.callExpr(o, c, ref, e)
		}
		return ast.NoExprID, false
	}
	return c
}

func (l *linker) varExpr(o *occurrence, ref mixin.Ref, e ast.Expr) (ast.ExprID, bool) {
	vid, ok := l.resolveVar(o, ref)
	if !ok {
		return ast.NoExprID, false
	}
	v := l.prog.Var(vid)
	exprs := l.prog.Tree.Exprs
	var out ast.ExprID
	if v.IsStream() {
		out = exprs.NewMember(e.Span, exprs.NewIdent(e.Span, "streams"), v.Name)
	} else {
		out = exprs.NewIdent(e.Span, v.Name)
	}
	l.prog.VarRefs[out] = vid
	return out, true
}

func (l *linker) callExpr(o *occurrence, c *ast.Copier, ref mixin.Ref, e ast.Expr) (ast.ExprID, bool) {
	mid, ok := l.resolveCall(o, ref)
	if !ok {
		return ast.NoExprID, false
	}
	args := make([]ast.ExprID, len(e.Args))
	for i, a := range e.Args {
		args[i] = c.CopyExpr(a)
	}
	exprs := l.prog.Tree.Exprs
	callee := exprs.NewIdent(e.Span, l.prog.Method(mid).Name)
	out := exprs.NewCall(e.Span, callee, args)
	l.prog.Calls[out] = mid
	return out, true
}
