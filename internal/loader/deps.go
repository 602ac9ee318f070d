package loader

import (
	"github.com/stride3d/stride-sub014/internal/ast"
	"github.com/stride3d/stride-sub014/internal/mixin"
)

type Dep = mixin.Dep

// scanDeps lists the classes sh needs. Bases are always listed; every other
// candidate must be a class the provider knows.
func scanDeps(sh *ast.Shader, known func(string) bool) []Dep {
	var out []Dep
	seen := make(map[string]bool)
	add := func(d Dep) {
		if d.Class == "" || d.Class == sh.ClassName && len(d.Args) == 0 {
			return
		}
		name := d.Name()
		if seen[name] {
			return
		}
		seen[name] = true
		out = append(out, d)
	}

	for _, b := range sh.Bases {
		add(Dep{Class: b.Name, Args: b.Args, Base: true})
	}
	for _, a := range sh.GenericArgs {
		if known(a) {
			add(Dep{Class: a})
		}
	}
	for _, m := range sh.Members {
		if m.Kind != ast.MemberVariable {
			continue
		}
		if t := m.Var.Type; known(t.Name) {
			add(Dep{Class: t.Name, Args: t.Args})
		}
	}
	tree := sh.Tree
	for i := range tree.Exprs.Arena.Len() {
		e := tree.Exprs.Get(ast.ExprID(i + 1))
		if e.Kind != ast.ExprMember {
			continue
		}
		target := tree.Expr(e.X)
		if target != nil && target.Kind == ast.ExprIdent && known(target.Name) {
			add(Dep{Class: target.Name})
		}
	}
	return out
}
