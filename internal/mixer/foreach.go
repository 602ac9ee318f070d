package mixer

import (
	"strconv"

	"github.com/stride3d/stride-sub014/internal/ast"
)

// expandForEach turns `foreach (T v in arr)` over a field of known size into
// `for (int v_Iter = 0; v_Iter < N; ++v_Iter) { T v = arr[v_Iter]; ... }`.
func (l *linker) expandForEach() {
	tree := l.prog.Tree
	var loops []ast.StmtID
	for _, id := range l.prog.Funcs {
		tree.InspectStmt(l.prog.Method(id).Body, func(sid ast.StmtID, s *ast.Stmt) bool {
			if s.Kind == ast.StmtForEach {
				loops = append(loops, sid)
			}
			return true
		}, nil)
	}
	for _, sid := range loops {
		l.expand(sid)
	}
}

func (l *linker) expand(sid ast.StmtID) {
	tree := l.prog.Tree
	s := *tree.Stmt(sid)
	vid, ok := l.prog.VarRefs[s.X]
	if !ok {
		return
	}
	field := l.prog.Var(vid)
	if len(field.Type.Dims) != 1 || field.Type.Dims[0].Name != "" || field.Type.Dims[0].Size < 0 {
		return
	}
	n := field.Type.Dims[0].Size
	sp := s.Span
	exprs, stmts := tree.Exprs, tree.Stmts
	iter := s.Name + "_Iter"

	elem := s.Type
	if elem.IsZero() || elem.Name == "var" {
		elem = field.Type.Elem()
	}
	init := stmts.NewDecl(sp, 0, ast.Named("int"), []ast.LocalVar{{Name: iter, Init: exprs.NewLiteral(sp, ast.LitInt, "0")}})
	cond := exprs.NewBinary(sp, "<", exprs.NewIdent(sp, iter), exprs.NewLiteral(sp, ast.LitInt, strconv.Itoa(n)))
	post := exprs.NewUnary(sp, "++", exprs.NewIdent(sp, iter), false)
	item := stmts.NewDecl(sp, 0, elem, []ast.LocalVar{{Name: s.Name, Init: exprs.NewIndex(sp, s.X, exprs.NewIdent(sp, iter))}})

	body := []ast.StmtID{item}
	if b := tree.Stmt(s.Body); b != nil && b.Kind == ast.StmtBlock {
		body = append(body, b.Stmts...)
	} else if s.Body.IsValid() {
		body = append(body, s.Body)
	}
	block := stmts.NewBlock(sp, body)

	*tree.Stmt(sid) = ast.Stmt{Kind: ast.StmtFor, Span: sp, Init: init, X: cond, Post: post, Body: block}
}
