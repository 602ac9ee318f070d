package analysis

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/stride3d/stride-sub014/internal/ast"
	"github.com/stride3d/stride-sub014/internal/diag"
	"github.com/stride3d/stride-sub014/internal/mixin"
	"github.com/stride3d/stride-sub014/internal/vtable"
)

type specKey struct {
	origin *mixin.Fragment
	dims   string
}

// Specialize returns a copy of f whose compose arrays have the sizes in dims
// (member index to element count) and whose foreach loops over those arrays
// are unrolled. The copy is analyzed again; copies are cached per size set.
func (a *Analyzer) Specialize(f *mixin.Fragment, dims map[int]int) *mixin.Fragment {
	if len(dims) == 0 {
		return f
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	key := specKey{origin: f, dims: dimsKey(dims)}
	if s, ok := a.specs[key]; ok {
		return s
	}

	sh := f.Shader.Clone()
	for idx, n := range dims {
		if v := sh.Variable(idx); v != nil && len(v.Type.Dims) > 0 {
			v.Type.Dims[0] = ast.Dim{Size: n}
		}
	}
	unroll(sh, dims)

	s := mixin.NewFragment(sh)
	s.Origin = f
	s.Dims = maps.Clone(dims)
	s.Local = vtable.Local(sh)
	s.Bases = f.Bases
	s.Inheritance = f.Inheritance
	s.Plugins = maps.Clone(f.Plugins)
	s.StageInits = maps.Clone(f.StageInits)
	s.Status = f.Status
	// override problems were reported on f already
	s.Merged = merge(s, &errorCounter{next: diag.NopReporter{}})
	recordConflicts(s)
	s.StageOnly = f.StageOnly

	c := &errorCounter{next: reporter(s)}
	check(a, s, c)
	finish(s, mixin.PassSemantic, c)
	a.specs[key] = s
	return s
}

func dimsKey(dims map[int]int) string {
	keys := slices.Sorted(maps.Keys(dims))
	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(strconv.Itoa(k))
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(dims[k]))
		sb.WriteByte(',')
	}
	return sb.String()
}

// unroll replaces `foreach (T v in arr)` over a sized compose array by one
// copy of the body per element, with v rewritten to arr[i].
func unroll(sh *ast.Shader, dims map[int]int) {
	sizes := make(map[string]int, len(dims))
	for idx, n := range dims {
		if v := sh.Variable(idx); v != nil {
			sizes[v.Name] = n
		}
	}
	tree := sh.Tree
	// copies are appended to the arena and visited too, so nested loops unroll
	for i := uint32(1); i <= tree.Stmts.Arena.Len(); i++ {
		id := ast.StmtID(i)
		st := tree.Stmt(id)
		if st.Kind != ast.StmtForEach {
			continue
		}
		coll := tree.Expr(st.X)
		if coll == nil || coll.Kind != ast.ExprIdent {
			continue
		}
		size, ok := sizes[coll.Name]
		if !ok {
			continue
		}
		loop, body, span, name := st.Name, st.Body, st.Span, coll.Name

		copies := make([]ast.StmtID, 0, size)
		for k := range size {
			cp := &ast.Copier{Src: tree, Dst: tree, Expr: func(_ ast.ExprID, e ast.Expr) (ast.ExprID, bool) {
				if e.Kind != ast.ExprIdent || e.Name != loop {
					return ast.NoExprID, false
				}
				target := tree.Exprs.NewIdent(e.Span, name)
				index := tree.Exprs.NewLiteral(e.Span, ast.LitInt, strconv.Itoa(k))
				return tree.Exprs.NewIndex(e.Span, target, index), true
			}}
			copies = append(copies, cp.CopyStmt(body))
		}
		*tree.Stmt(id) = ast.Stmt{Kind: ast.StmtBlock, Span: span, Stmts: copies}
	}
}
