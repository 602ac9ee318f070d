package streams

import (
	"github.com/stride3d/stride-sub014/internal/ast"
)

// Access describes how a statement touches a stream field.
type Access uint8

const (
	AccessRead Access = 1 << iota
	AccessWrite
	// AccessPartial marks a write through a swizzle, member or element; the
	// untouched part still has to come from somewhere.
	AccessPartial
)

func (a Access) IsRead() bool    { return a&AccessRead != 0 }
func (a Access) IsWrite() bool   { return a&AccessWrite != 0 }
func (a Access) IsPartial() bool { return a&AccessPartial != 0 }

type usageKind uint8

const (
	usageField  usageKind = iota // streams.X
	usageCall                    // call of a program method
	usageDirect                  // the streams value itself
)

// usage is one stream-relevant event of a method body, in evaluation order.
type usage struct {
	kind   usageKind
	v      ast.VarID
	access Access
	call   ast.MethodID
	expr   ast.ExprID
}

// StreamsName is the identifier bodies use for the stream record.
const StreamsName = "streams"

type mode uint8

const (
	modeRead mode = iota
	modeWrite
	modePartial
	modeReadWrite
)

func (m mode) access() Access {
	switch m {
	case modeWrite:
		return AccessWrite
	case modePartial:
		return AccessWrite | AccessPartial
	case modeReadWrite:
		return AccessRead | AccessWrite | AccessPartial
	}
	return AccessRead
}

// narrow is the mode of the target of a member or index access.
func (m mode) narrow() mode {
	switch m {
	case modeWrite:
		return modePartial
	case modePartial, modeReadWrite:
		return m
	}
	return modeRead
}

type collector struct {
	prog *ast.Program
	out  []usage
}

// collectUsages lists the stream usages of every method of prog.
func collectUsages(prog *ast.Program) map[ast.MethodID][]usage {
	all := make(map[ast.MethodID][]usage, len(prog.Funcs))
	for _, id := range prog.Funcs {
		c := &collector{prog: prog}
		c.stmt(prog.Method(id).Body)
		all[id] = c.out
	}
	return all
}

func (c *collector) stmt(id ast.StmtID) {
	c.prog.Tree.InspectStmt(id, func(_ ast.StmtID, s *ast.Stmt) bool {
		switch s.Kind {
		case ast.StmtExpr, ast.StmtReturn, ast.StmtIf, ast.StmtWhile, ast.StmtForEach:
			c.expr(s.X, modeRead)
		case ast.StmtFor:
			// Init is a statement and gets its own visit
			c.expr(s.X, modeRead)
			c.expr(s.Post, modeRead)
		case ast.StmtDecl:
			for _, v := range s.Vars {
				c.expr(v.Init, modeRead)
			}
		}
		return true
	}, nil)
}

func (c *collector) expr(id ast.ExprID, m mode) {
	if !id.IsValid() {
		return
	}
	tree := c.prog.Tree
	e := tree.Expr(id)
	if e == nil {
		return
	}
	switch e.Kind {
	case ast.ExprMember:
		if v, ok := c.prog.VarRefs[id]; ok && c.prog.Var(v).IsStream() {
			c.out = append(c.out, usage{kind: usageField, v: v, access: m.access(), expr: id})
			return
		}
		c.expr(e.X, m.narrow())
	case ast.ExprIdent:
		if e.Name == StreamsName {
			if _, ok := c.prog.VarRefs[id]; !ok {
				c.out = append(c.out, usage{kind: usageDirect, access: m.access(), expr: id})
			}
		}
	case ast.ExprIndex:
		c.expr(e.Y, modeRead)
		c.expr(e.X, m.narrow())
	case ast.ExprAssign:
		c.expr(e.Y, modeRead)
		if e.Op == "=" {
			c.expr(e.X, modeWrite)
		} else {
			c.expr(e.X, modeReadWrite)
		}
	case ast.ExprUnary:
		if e.Op == "++" || e.Op == "--" {
			c.expr(e.X, modeReadWrite)
		} else {
			c.expr(e.X, modeRead)
		}
	case ast.ExprCall:
		mid, resolved := c.prog.Calls[id]
		var params []ast.Param
		if resolved {
			params = c.prog.Method(mid).Params
		}
		for i, a := range e.Args {
			am := modeRead
			if i < len(params) {
				switch q := params[i].Qual; {
				case q.Has(ast.QualInOut):
					am = modeReadWrite
				case q.Has(ast.QualOut):
					am = modeWrite
				}
			}
			c.expr(a, am)
		}
		if resolved {
			c.out = append(c.out, usage{kind: usageCall, call: mid, expr: id})
		} else {
			// intrinsic or method of an expression target
			c.expr(e.X, modeRead)
		}
	case ast.ExprParen:
		c.expr(e.X, m)
	case ast.ExprBinary, ast.ExprTernary, ast.ExprCast:
		c.expr(e.X, modeRead)
		c.expr(e.Y, modeRead)
		c.expr(e.Z, modeRead)
	case ast.ExprInit:
		for _, a := range e.Args {
			c.expr(a, modeRead)
		}
	}
}
