package parser

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/stride3d/stride-sub014/internal/ast"
	"github.com/stride3d/stride-sub014/internal/source"
)

// lowerer turns the participle tree into the arena AST of one shader.
type lowerer struct {
	file *source.File
	text *expanded
	tree *ast.Tree
}

func (l *lowerer) span(start, end lexer.Position) source.Span {
	return source.Span{
		File:  l.file.ID,
		Start: l.text.original(start.Offset),
		End:   l.text.original(end.Offset),
	}
}

func (l *lowerer) shader(n *shaderNode) *ast.Shader {
	sh := &ast.Shader{
		Name:      n.Name,
		ClassName: n.Name,
		Tree:      l.tree,
		File:      l.file.ID,
		Span:      l.span(n.Pos, n.EndPos),
	}
	for _, g := range n.Generics {
		sh.Generics = append(sh.Generics, ast.GenericParam{Type: g.Type, Name: g.Name})
	}
	for _, b := range n.Bases {
		ref := ast.BaseRef{Name: b.Name, Span: l.span(b.Pos, b.EndPos)}
		for _, a := range b.Args {
			ref.Args = append(ref.Args, a.text())
		}
		sh.Bases = append(sh.Bases, ref)
	}
	for _, m := range n.Members {
		switch {
		case m.CBuffer != nil:
			name := strings.Join(m.CBuffer.Name, ".")
			for _, d := range m.CBuffer.Members {
				member := l.decl(d)
				if member.Kind == ast.MemberVariable {
					if m.CBuffer.Kind == "rgroup" {
						member.Var.RGroup = name
					} else {
						member.Var.CBuffer = name
					}
				}
				sh.Members = append(sh.Members, member)
			}
		case m.Struct != nil:
			sh.Members = append(sh.Members, ast.Member{Kind: ast.MemberStruct, Struct: l.structDecl(m.Struct)})
		case m.Typedef != nil:
			td := &ast.Typedef{
				Name: m.Typedef.Name,
				Type: l.typeRef(m.Typedef.Type, nil),
				Span: l.span(m.Typedef.Pos, m.Typedef.EndPos),
			}
			sh.Members = append(sh.Members, ast.Member{Kind: ast.MemberTypedef, Typedef: td})
		case m.Decl != nil:
			sh.Members = append(sh.Members, l.decl(m.Decl))
		}
	}
	return sh
}

func (a *genericArgNode) text() string {
	s := strings.Join(a.Parts, ".")
	if a.Neg {
		return "-" + s
	}
	return s
}

func (l *lowerer) structDecl(n *structNode) *ast.Struct {
	st := &ast.Struct{Name: n.Name, Span: l.span(n.Pos, n.EndPos)}
	for _, f := range n.Fields {
		st.Fields = append(st.Fields, ast.Field{
			Name:     f.Name,
			Type:     l.typeRef(f.Type, f.Dims),
			Qual:     l.quals(f.Quals),
			Semantic: f.Semantic,
		})
	}
	return st
}

func (l *lowerer) decl(n *declNode) ast.Member {
	sp := l.span(n.Pos, n.EndPos)
	attrs := l.attrs(n.Attrs)
	qual := l.quals(n.Quals)
	if n.Method != nil {
		m := &ast.Method{
			Name:     n.Name,
			Return:   l.typeRef(n.Type, nil),
			Qual:     qual,
			Semantic: n.Method.Semantic,
			Attrs:    attrs,
			Span:     sp,
		}
		for _, p := range n.Method.Params {
			m.Params = append(m.Params, ast.Param{
				Name:     p.Name,
				Type:     l.typeRef(p.Type, p.Dims),
				Qual:     l.quals(p.Quals),
				Semantic: p.Semantic,
				Span:     l.span(p.Pos, p.EndPos),
			})
		}
		if n.Method.Body != nil {
			m.Body = l.block(n.Method.Body)
		}
		return ast.Member{Kind: ast.MemberMethod, Method: m}
	}
	v := &ast.Variable{
		Name:      n.Name,
		Type:      l.typeRef(n.Type, n.Field.Dims),
		Qual:      qual,
		Semantic:  n.Field.Semantic,
		StageInit: n.Field.Stage,
		Attrs:     attrs,
		Span:      sp,
	}
	if n.Field.Init != nil {
		v.Init = l.expr(n.Field.Init)
	}
	return ast.Member{Kind: ast.MemberVariable, Var: v}
}

func (l *lowerer) quals(qs []*qualNode) ast.Qualifier {
	var q ast.Qualifier
	for _, w := range qs {
		if bit, ok := ast.ParseQualifier(w.Word); ok {
			q |= bit
		}
	}
	return q
}

func (l *lowerer) attrs(as []*attrNode) []ast.Attr {
	if len(as) == 0 {
		return nil
	}
	out := make([]ast.Attr, 0, len(as))
	for _, a := range as {
		out = append(out, ast.Attr{Name: a.Name, Args: a.Args})
	}
	return out
}

func (l *lowerer) typeRef(t *typeNode, dims []*dimNode) ast.TypeRef {
	ref := ast.TypeRef{
		Name: t.Name,
		Args: t.Args,
		Span: l.span(t.Pos, t.EndPos),
	}
	ref.Dims = lowerDims(dims)
	return ref
}

func lowerDims(dims []*dimNode) []ast.Dim {
	if len(dims) == 0 {
		return nil
	}
	out := make([]ast.Dim, 0, len(dims))
	for _, d := range dims {
		switch {
		case d.Size == "":
			out = append(out, ast.Dim{Size: -1})
		default:
			if n, err := strconv.ParseInt(strings.TrimRight(d.Size, "uUlL"), 0, 64); err == nil {
				out = append(out, ast.Dim{Size: int(n)})
			} else {
				out = append(out, ast.Dim{Size: -1, Name: d.Size})
			}
		}
	}
	return out
}

// --- statements

func (l *lowerer) block(n *blockNode) ast.StmtID {
	stmts := make([]ast.StmtID, 0, len(n.Stmts))
	for _, s := range n.Stmts {
		stmts = append(stmts, l.stmt(s))
	}
	return l.tree.Stmts.NewBlock(l.span(n.Pos, n.EndPos), stmts)
}

func (l *lowerer) stmt(n *stmtNode) ast.StmtID {
	sp := l.span(n.Pos, n.EndPos)
	var id ast.StmtID
	switch {
	case n.Block != nil:
		id = l.block(n.Block)
	case n.If != nil:
		st := ast.Stmt{Kind: ast.StmtIf, Span: sp, X: l.expr(n.If.Cond), Then: l.stmt(n.If.Then)}
		if n.If.Else != nil {
			st.Else = l.stmt(n.If.Else)
		}
		id = l.tree.Stmts.New(st)
	case n.For != nil:
		st := ast.Stmt{Kind: ast.StmtFor, Span: sp}
		switch {
		case n.For.InitDecl != nil:
			st.Init = l.localDecl(n.For.InitDecl)
		case n.For.InitExpr != nil:
			st.Init = l.tree.Stmts.NewExpr(l.span(n.For.InitExpr.Pos, n.For.InitExpr.EndPos), l.expr(n.For.InitExpr))
		}
		if n.For.Cond != nil {
			st.X = l.expr(n.For.Cond)
		}
		if n.For.Post != nil {
			st.Post = l.expr(n.For.Post)
		}
		st.Body = l.stmt(n.For.Body)
		id = l.tree.Stmts.New(st)
	case n.ForEach != nil:
		fe := n.ForEach
		id = l.tree.Stmts.New(ast.Stmt{
			Kind: ast.StmtForEach,
			Span: sp,
			Qual: l.quals(fe.Quals),
			Type: l.typeRef(fe.Type, nil),
			Name: fe.Name,
			X:    l.expr(fe.Coll),
			Body: l.stmt(fe.Body),
		})
	case n.While != nil:
		id = l.tree.Stmts.New(ast.Stmt{Kind: ast.StmtWhile, Span: sp, X: l.expr(n.While.Cond), Body: l.stmt(n.While.Body)})
	case n.Return != nil:
		var x ast.ExprID
		if n.Return.Value != nil {
			x = l.expr(n.Return.Value)
		}
		id = l.tree.Stmts.NewReturn(sp, x)
	case n.Break:
		id = l.tree.Stmts.New(ast.Stmt{Kind: ast.StmtBreak, Span: sp})
	case n.Continue:
		id = l.tree.Stmts.New(ast.Stmt{Kind: ast.StmtContinue, Span: sp})
	case n.Discard:
		id = l.tree.Stmts.New(ast.Stmt{Kind: ast.StmtDiscard, Span: sp})
	case n.Decl != nil:
		id = l.localDecl(n.Decl)
	case n.Expr != nil:
		id = l.tree.Stmts.NewExpr(sp, l.expr(n.Expr))
	default:
		id = l.tree.Stmts.New(ast.Stmt{Kind: ast.StmtEmpty, Span: sp})
	}
	if attrs := l.attrs(n.Attrs); attrs != nil {
		l.tree.Stmt(id).Attrs = attrs
	}
	return id
}

func (l *lowerer) localDecl(n *localDeclNode) ast.StmtID {
	vars := make([]ast.LocalVar, 0, len(n.Vars))
	for _, d := range n.Vars {
		v := ast.LocalVar{Name: d.Name, Dims: lowerDims(d.Dims), Span: l.span(d.Pos, d.EndPos)}
		if d.Init != nil {
			v.Init = l.expr(d.Init)
		}
		vars = append(vars, v)
	}
	return l.tree.Stmts.NewDecl(l.span(n.Pos, n.EndPos), l.quals(n.Quals), l.typeRef(n.Type, nil), vars)
}

// --- expressions

func (l *lowerer) expr(n *exprNode) ast.ExprID {
	left := l.ternary(n.Left)
	if n.Op == "" {
		return left
	}
	return l.tree.Exprs.NewAssign(l.span(n.Pos, n.EndPos), n.Op, left, l.expr(n.Right))
}

func (l *lowerer) ternary(n *ternaryNode) ast.ExprID {
	cond := l.binary(n.Cond)
	if n.Then == nil {
		return cond
	}
	return l.tree.Exprs.NewTernary(l.span(n.Pos, n.EndPos), cond, l.expr(n.Then), l.expr(n.Else))
}

var precedence = map[string]int{
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

func (l *lowerer) binary(n *binaryNode) ast.ExprID {
	operands := make([]ast.ExprID, 0, len(n.Tail)+1)
	operands = append(operands, l.unary(n.Head))
	for _, op := range n.Tail {
		operands = append(operands, l.unary(op.Right))
	}
	pos := 0
	return l.climb(n, operands, &pos, 1)
}

// climb is precedence climbing over the flat operand list; all operators are left-associative.
func (l *lowerer) climb(n *binaryNode, operands []ast.ExprID, pos *int, minPrec int) ast.ExprID {
	left := operands[*pos]
	for *pos < len(n.Tail) {
		op := n.Tail[*pos].Op
		prec := precedence[op]
		if prec < minPrec {
			break
		}
		*pos++
		right := l.climb(n, operands, pos, prec+1)
		sp := l.tree.Expr(left).Span.Cover(l.tree.Expr(right).Span)
		left = l.tree.Exprs.NewBinary(sp, op, left, right)
	}
	return left
}

func (l *lowerer) unary(n *unaryNode) ast.ExprID {
	if n.Postfix != nil {
		return l.postfix(n.Postfix)
	}
	return l.tree.Exprs.NewUnary(l.span(n.Pos, n.EndPos), n.Op, l.unary(n.Operand), false)
}

func (l *lowerer) postfix(n *postfixNode) ast.ExprID {
	cur := l.primary(n.Primary)
	start := n.Primary.Pos
	for _, s := range n.Suffixes {
		sp := l.span(start, s.EndPos)
		switch {
		case s.Call != nil:
			args := make([]ast.ExprID, 0, len(s.Call.Args))
			for _, a := range s.Call.Args {
				args = append(args, l.expr(a))
			}
			cur = l.tree.Exprs.NewCall(sp, cur, args)
		case s.Index != nil:
			cur = l.tree.Exprs.NewIndex(sp, cur, l.expr(s.Index))
		case s.Inc != "":
			cur = l.tree.Exprs.NewUnary(sp, s.Inc, cur, true)
		default:
			cur = l.tree.Exprs.NewMember(sp, cur, s.Member)
		}
	}
	return cur
}

func (l *lowerer) primary(n *primaryNode) ast.ExprID {
	sp := l.span(n.Pos, n.EndPos)
	switch {
	case n.Float != nil:
		return l.tree.Exprs.NewLiteral(sp, ast.LitFloat, *n.Float)
	case n.Int != nil:
		return l.tree.Exprs.NewLiteral(sp, ast.LitInt, *n.Int)
	case n.Bool != nil:
		return l.tree.Exprs.NewLiteral(sp, ast.LitBool, *n.Bool)
	case n.String != nil:
		return l.tree.Exprs.NewLiteral(sp, ast.LitString, *n.String)
	case n.Ident != nil:
		return l.tree.Exprs.NewIdent(sp, *n.Ident)
	case n.Paren != nil:
		return l.tree.Exprs.NewParen(sp, l.expr(n.Paren))
	case n.Init != nil:
		elems := make([]ast.ExprID, 0, len(n.Init.Elems))
		for _, e := range n.Init.Elems {
			elems = append(elems, l.expr(e))
		}
		return l.tree.Exprs.NewInit(sp, elems)
	}
	return ast.NoExprID
}
