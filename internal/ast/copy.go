package ast

import "slices"

// Copier moves statements and expressions from one tree into another
// (the two may be the same tree). Hooks let callers rewrite nodes on the way.
type Copier struct {
	Src, Dst *Tree
	// Expr may replace a source expression; ok=false copies it unchanged.
	Expr func(id ExprID, e Expr) (ExprID, bool)
	// Stmt may replace a source statement; returning (NoStmtID, true) drops it from its block.
	Stmt func(id StmtID, s Stmt) (StmtID, bool)
	// Copied observes every expression copied without substitution.
	Copied func(src, dst ExprID)
}

func (c *Copier) CopyExpr(id ExprID) ExprID {
	if !id.IsValid() {
		return NoExprID
	}
	n := *c.Src.Expr(id)
	if c.Expr != nil {
		if dst, ok := c.Expr(id, n); ok {
			return dst
		}
	}
	n.X = c.CopyExpr(n.X)
	n.Y = c.CopyExpr(n.Y)
	n.Z = c.CopyExpr(n.Z)
	n.Args = c.copyExprs(n.Args)
	dst := c.Dst.Exprs.New(n)
	if c.Copied != nil {
		c.Copied(id, dst)
	}
	return dst
}

func (c *Copier) copyExprs(ids []ExprID) []ExprID {
	if ids == nil {
		return nil
	}
	out := make([]ExprID, len(ids))
	for i, a := range ids {
		out[i] = c.CopyExpr(a)
	}
	return out
}

func (c *Copier) CopyStmt(id StmtID) StmtID {
	if !id.IsValid() {
		return NoStmtID
	}
	n := *c.Src.Stmt(id)
	if c.Stmt != nil {
		if dst, ok := c.Stmt(id, n); ok {
			return dst
		}
	}
	n.Type = n.Type.Clone()
	n.Attrs = slices.Clone(n.Attrs)
	switch n.Kind {
	case StmtBlock:
		stmts := make([]StmtID, 0, len(n.Stmts))
		for _, child := range n.Stmts {
			if cp := c.CopyStmt(child); cp.IsValid() {
				stmts = append(stmts, cp)
			}
		}
		n.Stmts = stmts
	case StmtDecl:
		vars := make([]LocalVar, len(n.Vars))
		for i, v := range n.Vars {
			v.Init = c.CopyExpr(v.Init)
			v.Dims = slices.Clone(v.Dims)
			vars[i] = v
		}
		n.Vars = vars
	default:
		n.X = c.CopyExpr(n.X)
		n.Then = c.CopyStmt(n.Then)
		n.Else = c.CopyStmt(n.Else)
		n.Init = c.CopyStmt(n.Init)
		n.Post = c.CopyExpr(n.Post)
		n.Body = c.CopyStmt(n.Body)
	}
	return c.Dst.Stmts.New(n)
}
