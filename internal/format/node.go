package format

import (
	"strconv"

	"github.com/stride3d/stride-sub014/internal/ast"
)

func (p *printer) stmt(id ast.StmtID) {
	s := p.tree.Stmt(id)
	if s == nil {
		return
	}
	w := p.w
	p.attrs(s.Attrs)
	switch s.Kind {
	case ast.StmtBlock:
		w.WriteString("{")
		w.Newline()
		w.IndentPush()
		for _, c := range s.Stmts {
			p.stmt(c)
		}
		w.IndentPop()
		w.WriteString("}")
		w.Newline()
	case ast.StmtExpr:
		p.expr(s.X, 0)
		w.WriteByte(';')
		w.Newline()
	case ast.StmtDecl:
		p.decl(s)
		w.WriteByte(';')
		w.Newline()
	case ast.StmtReturn:
		w.WriteString("return")
		if s.X.IsValid() {
			w.WriteByte(' ')
			p.expr(s.X, 0)
		}
		w.WriteByte(';')
		w.Newline()
	case ast.StmtIf:
		w.WriteString("if (")
		p.expr(s.X, 0)
		w.WriteByte(')')
		w.Newline()
		p.body(s.Then)
		if s.Else.IsValid() {
			w.WriteString("else")
			w.Newline()
			p.body(s.Else)
		}
	case ast.StmtFor:
		w.WriteString("for (")
		if init := p.tree.Stmt(s.Init); init != nil {
			switch init.Kind {
			case ast.StmtDecl:
				p.decl(init)
			case ast.StmtExpr:
				p.expr(init.X, 0)
			}
		}
		w.WriteString("; ")
		p.expr(s.X, 0)
		w.WriteString("; ")
		p.expr(s.Post, 0)
		w.WriteByte(')')
		w.Newline()
		p.body(s.Body)
	case ast.StmtForEach:
		w.WriteString("foreach (")
		p.qual(s.Qual)
		w.WriteString(s.Type.String() + " " + s.Name + " in ")
		p.expr(s.X, 0)
		w.WriteByte(')')
		w.Newline()
		p.body(s.Body)
	case ast.StmtWhile:
		w.WriteString("while (")
		p.expr(s.X, 0)
		w.WriteByte(')')
		w.Newline()
		p.body(s.Body)
	case ast.StmtBreak:
		w.WriteString("break;")
		w.Newline()
	case ast.StmtContinue:
		w.WriteString("continue;")
		w.Newline()
	case ast.StmtDiscard:
		w.WriteString("discard;")
		w.Newline()
	case ast.StmtEmpty:
		w.WriteByte(';')
		w.Newline()
	}
}

// body indents a non-block child statement.
func (p *printer) body(id ast.StmtID) {
	if s := p.tree.Stmt(id); s != nil && s.Kind == ast.StmtBlock {
		p.stmt(id)
		return
	}
	p.w.IndentPush()
	p.stmt(id)
	p.w.IndentPop()
}

func (p *printer) decl(s *ast.Stmt) {
	w := p.w
	p.qual(s.Qual)
	w.WriteString(s.Type.String())
	w.WriteByte(' ')
	for i, v := range s.Vars {
		if i > 0 {
			w.WriteString(", ")
		}
		w.WriteString(v.Name)
		for _, d := range v.Dims {
			w.WriteString("[" + d.String() + "]")
		}
		if v.Init.IsValid() {
			w.WriteString(" = ")
			p.expr(v.Init, 0)
		}
	}
}

var binaryPrec = map[string]int{
	"||": 1,
	"&&": 2,
	"|":  3,
	"^":  4,
	"&":  5,
	"==": 6, "!=": 6,
	"<": 7, ">": 7, "<=": 7, ">=": 7,
	"<<": 8, ">>": 8,
	"+": 9, "-": 9,
	"*": 10, "/": 10, "%": 10,
}

const (
	precAssign  = -1
	precTernary = 0
	precUnary   = 11
)

// expr prints id; parentheses are added when the node binds weaker than ctx.
func (p *printer) expr(id ast.ExprID, ctx int) {
	e := p.tree.Expr(id)
	if e == nil {
		return
	}
	w := p.w
	own := exprPrec(e)
	if own < ctx {
		w.WriteByte('(')
		defer w.WriteByte(')')
	}
	switch e.Kind {
	case ast.ExprLiteral:
		if e.Lit == ast.LitString {
			w.WriteString(strconv.Quote(e.Text))
		} else {
			w.WriteString(e.Text)
		}
	case ast.ExprIdent:
		w.WriteString(e.Name)
	case ast.ExprMember:
		p.expr(e.X, precUnary+1)
		w.WriteByte('.')
		w.WriteString(e.Name)
	case ast.ExprIndex:
		p.expr(e.X, precUnary+1)
		w.WriteByte('[')
		p.expr(e.Y, precAssign)
		w.WriteByte(']')
	case ast.ExprCall:
		p.expr(e.X, precUnary+1)
		w.WriteByte('(')
		p.list(e.Args)
		w.WriteByte(')')
	case ast.ExprUnary:
		if e.Postfix {
			p.expr(e.X, precUnary+1)
			w.WriteString(e.Op)
		} else {
			w.WriteString(e.Op)
			p.expr(e.X, precUnary)
		}
	case ast.ExprBinary:
		p.expr(e.X, own)
		w.WriteString(" " + e.Op + " ")
		p.expr(e.Y, own+1)
	case ast.ExprAssign:
		p.expr(e.X, precTernary+1)
		w.WriteString(" " + e.Op + " ")
		p.expr(e.Y, precAssign)
	case ast.ExprTernary:
		p.expr(e.X, precTernary+1)
		w.WriteString(" ? ")
		p.expr(e.Y, precAssign)
		w.WriteString(" : ")
		p.expr(e.Z, precTernary)
	case ast.ExprParen:
		w.WriteByte('(')
		p.expr(e.X, precAssign)
		w.WriteByte(')')
	case ast.ExprCast:
		w.WriteString("(" + e.Name + ")")
		p.expr(e.X, precUnary)
	case ast.ExprInit:
		w.WriteString("{ ")
		p.list(e.Args)
		w.WriteString(" }")
	}
}

func (p *printer) list(ids []ast.ExprID) {
	for i, a := range ids {
		if i > 0 {
			p.w.WriteString(", ")
		}
		p.expr(a, precAssign)
	}
}

func exprPrec(e *ast.Expr) int {
	switch e.Kind {
	case ast.ExprAssign:
		return precAssign
	case ast.ExprTernary:
		return precTernary
	case ast.ExprBinary:
		return binaryPrec[e.Op]
	case ast.ExprUnary:
		if e.Postfix {
			return precUnary + 1
		}
		return precUnary
	case ast.ExprCast:
		return precUnary
	}
	return precUnary + 1
}
