package ast

// InspectExpr visits the expression rooted at id in pre-order; returning false from fn skips the children.
func (t *Tree) InspectExpr(id ExprID, fn func(ExprID, *Expr) bool) {
	if !id.IsValid() {
		return
	}
	e := t.Expr(id)
	if e == nil || !fn(id, e) {
		return
	}
	x, y, z, args := e.X, e.Y, e.Z, e.Args
	t.InspectExpr(x, fn)
	for _, a := range args {
		t.InspectExpr(a, fn)
	}
	t.InspectExpr(y, fn)
	t.InspectExpr(z, fn)
}

// InspectStmt visits statements in pre-order and every expression they own.
// Either callback may be nil.
func (t *Tree) InspectStmt(id StmtID, stmtFn func(StmtID, *Stmt) bool, exprFn func(ExprID, *Expr) bool) {
	if !id.IsValid() {
		return
	}
	s := t.Stmt(id)
	if s == nil {
		return
	}
	if stmtFn != nil && !stmtFn(id, s) {
		return
	}
	expr := func(e ExprID) {
		if exprFn != nil {
			t.InspectExpr(e, exprFn)
		}
	}
	switch s.Kind {
	case StmtBlock:
		for _, child := range s.Stmts {
			t.InspectStmt(child, stmtFn, exprFn)
		}
	case StmtExpr, StmtReturn:
		expr(s.X)
	case StmtDecl:
		for _, v := range s.Vars {
			expr(v.Init)
		}
	case StmtIf:
		expr(s.X)
		t.InspectStmt(s.Then, stmtFn, exprFn)
		t.InspectStmt(s.Else, stmtFn, exprFn)
	case StmtFor:
		t.InspectStmt(s.Init, stmtFn, exprFn)
		expr(s.X)
		expr(s.Post)
		t.InspectStmt(s.Body, stmtFn, exprFn)
	case StmtForEach, StmtWhile:
		expr(s.X)
		t.InspectStmt(s.Body, stmtFn, exprFn)
	}
}

// Callee returns the name of the called method and, for `target.M()`, the target expression.
func (t *Tree) Callee(call *Expr) (name string, target ExprID) {
	if call == nil || call.Kind != ExprCall {
		return "", NoExprID
	}
	fn := t.Expr(call.X)
	if fn == nil {
		return "", NoExprID
	}
	switch fn.Kind {
	case ExprIdent:
		return fn.Name, NoExprID
	case ExprMember:
		return fn.Name, fn.X
	}
	return "", NoExprID
}
