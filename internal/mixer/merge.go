package mixer

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/stride3d/stride-sub014/internal/ast"
	"github.com/stride3d/stride-sub014/internal/diag"
)

var fold = cases.Fold()

// SemanticKey normalizes a semantic for comparison: case folded, with the
// trailing index made explicit (`TEXCOORD` and `texcoord0` are the same).
func SemanticKey(sem string) string {
	s := fold.String(sem)
	i := len(s)
	for i > 1 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	idx := 0
	if i < len(s) {
		idx, _ = strconv.Atoi(s[i:])
	}
	return s[:i] + "#" + strconv.Itoa(idx)
}

// unify merges fields that share a semantic, then fields initialized with
// another field. The result maps a merged field to the one that survives.
func (l *linker) unify() map[ast.VarID]ast.VarID {
	alias := make(map[ast.VarID]ast.VarID)
	bySem := make(map[string]ast.VarID)
	for _, id := range l.order {
		v := l.prog.Var(id)
		if v.Semantic == "" {
			continue
		}
		key := SemanticKey(v.Semantic)
		first, ok := bySem[key]
		if !ok {
			bySem[key] = id
			continue
		}
		l.mergeSemantic(first, id)
		alias[id] = first
	}

	for _, id := range l.order {
		if _, merged := alias[id]; merged {
			continue
		}
		v := l.prog.Var(id)
		target, ok := l.prog.VarRefs[v.Init]
		if !ok || target == id {
			continue
		}
		alias[id] = target
	}
	return alias
}

func (l *linker) mergeSemantic(keep, drop ast.VarID) {
	a, b := l.prog.Var(keep), l.prog.Var(drop)
	switch {
	case a.CBuffer == "" && b.CBuffer != "":
		a.CBuffer = b.CBuffer
	case a.CBuffer != "" && b.CBuffer != "" && a.CBuffer != b.CBuffer:
		diag.ReportError(l.r, diag.NamSemanticCBufferConflict, b.Span,
			fmt.Sprintf("%s of %s and %s of %s share semantic %s but live in constant buffers %s and %s",
				a.Name, a.Origin, b.Name, b.Origin, a.Semantic, a.CBuffer, b.CBuffer)).
			WithNote(a.Span, "first declared here").Emit()
	}
	if !a.Type.Equal(b.Type) {
		diag.ReportError(l.r, diag.NamSemanticTypeConflict, b.Span,
			fmt.Sprintf("%s of %s and %s of %s share semantic %s but have types %s and %s",
				a.Name, a.Origin, b.Name, b.Origin, a.Semantic, a.Type, b.Type)).
			WithNote(a.Span, "first declared here").Emit()
	}
}

func resolveAlias(alias map[ast.VarID]ast.VarID, id ast.VarID) ast.VarID {
	for range len(alias) + 1 {
		next, ok := alias[id]
		if !ok || next == id {
			return id
		}
		id = next
	}
	return id
}

// rename gives every surviving field and non-entry method a unique name from
// one counter and rewrites the references recorded in the side tables.
func (l *linker) rename(alias map[ast.VarID]ast.VarID) {
	prog := l.prog
	for expr, id := range prog.VarRefs {
		prog.VarRefs[expr] = resolveAlias(alias, id)
	}

	live := l.order[:0:0]
	n := 0
	for _, id := range l.order {
		if _, merged := alias[id]; merged {
			continue
		}
		v := prog.Var(id)
		v.Name = v.Name + "_id" + strconv.Itoa(n)
		n++
		live = append(live, id)
	}
	l.order = live

	// methods continue the field count
	for _, id := range prog.Funcs {
		if _, entry := prog.IsEntry(id); entry {
			continue
		}
		m := prog.Method(id)
		m.Name = m.Name + "_id" + strconv.Itoa(n)
		n++
	}

	for expr, id := range prog.VarRefs {
		if e := prog.Tree.Expr(expr); e != nil {
			e.Name = prog.Var(id).Name
		}
	}
	for expr, id := range prog.Calls {
		if e := prog.Tree.Expr(expr); e != nil {
			if callee := prog.Tree.Expr(e.X); callee != nil {
				callee.Name = prog.Method(id).Name
			}
		}
	}
}

// BaseName strips the suffix added by renaming.
func BaseName(name string) string {
	if i := strings.LastIndex(name, "_id"); i > 0 {
		if _, err := strconv.Atoi(name[i+3:]); err == nil {
			return name[:i]
		}
	}
	return name
}
