package ast

import (
	"slices"

	"github.com/stride3d/stride-sub014/internal/source"
)

type ExprKind uint8

const (
	ExprLiteral ExprKind = iota
	ExprIdent
	ExprMember  // X.Name
	ExprIndex   // X[Y]
	ExprCall    // X(Args...), X is an Ident or a Member
	ExprUnary   // Op X, or X Op when Postfix
	ExprBinary  // X Op Y
	ExprAssign  // X Op Y, Op is "=" or a compound assignment
	ExprTernary // X ? Y : Z
	ExprParen   // (X)
	ExprInit    // { Args... }
	ExprCast    // (Name)X, only synthesized
)

var exprKindNames = [...]string{
	ExprLiteral: "literal",
	ExprIdent:   "ident",
	ExprMember:  "member",
	ExprIndex:   "index",
	ExprCall:    "call",
	ExprUnary:   "unary",
	ExprBinary:  "binary",
	ExprAssign:  "assign",
	ExprTernary: "ternary",
	ExprParen:   "paren",
	ExprInit:    "init",
	ExprCast:    "cast",
}

func (k ExprKind) String() string {
	if int(k) < len(exprKindNames) {
		return exprKindNames[k]
	}
	return "expr?"
}

type LitKind uint8

const (
	LitInt LitKind = iota
	LitFloat
	LitBool
	LitString
)

// Expr is a closed variant; which fields are meaningful depends on Kind.
type Expr struct {
	Kind    ExprKind
	Span    source.Span
	Op      string
	Name    string // Ident, Member, Cast
	X, Y, Z ExprID
	Args    []ExprID
	Lit     LitKind
	Text    string // literal source text
	Postfix bool
}

type Exprs struct {
	Arena *Arena[Expr]
}

func NewExprs(capHint uint) *Exprs {
	if capHint == 0 {
		capHint = 1 << 8
	}
	return &Exprs{
		Arena: NewArena[Expr](capHint),
	}
}

func (e *Exprs) New(expr Expr) ExprID {
	return ExprID(e.Arena.Allocate(expr))
}

func (e *Exprs) Get(id ExprID) *Expr {
	return e.Arena.Get(uint32(id))
}

func (e *Exprs) NewIdent(span source.Span, name string) ExprID {
	return e.New(Expr{Kind: ExprIdent, Span: span, Name: name})
}

func (e *Exprs) NewLiteral(span source.Span, lit LitKind, text string) ExprID {
	return e.New(Expr{Kind: ExprLiteral, Span: span, Lit: lit, Text: text})
}

func (e *Exprs) NewMember(span source.Span, target ExprID, name string) ExprID {
	return e.New(Expr{Kind: ExprMember, Span: span, X: target, Name: name})
}

func (e *Exprs) NewIndex(span source.Span, target, index ExprID) ExprID {
	return e.New(Expr{Kind: ExprIndex, Span: span, X: target, Y: index})
}

func (e *Exprs) NewCall(span source.Span, callee ExprID, args []ExprID) ExprID {
	return e.New(Expr{Kind: ExprCall, Span: span, X: callee, Args: args})
}

func (e *Exprs) NewUnary(span source.Span, op string, operand ExprID, postfix bool) ExprID {
	return e.New(Expr{Kind: ExprUnary, Span: span, Op: op, X: operand, Postfix: postfix})
}

func (e *Exprs) NewBinary(span source.Span, op string, left, right ExprID) ExprID {
	return e.New(Expr{Kind: ExprBinary, Span: span, Op: op, X: left, Y: right})
}

func (e *Exprs) NewAssign(span source.Span, op string, target, value ExprID) ExprID {
	return e.New(Expr{Kind: ExprAssign, Span: span, Op: op, X: target, Y: value})
}

func (e *Exprs) NewTernary(span source.Span, cond, then, els ExprID) ExprID {
	return e.New(Expr{Kind: ExprTernary, Span: span, X: cond, Y: then, Z: els})
}

func (e *Exprs) NewParen(span source.Span, inner ExprID) ExprID {
	return e.New(Expr{Kind: ExprParen, Span: span, X: inner})
}

func (e *Exprs) NewCast(span source.Span, typ string, x ExprID) ExprID {
	return e.New(Expr{Kind: ExprCast, Span: span, Name: typ, X: x})
}

func (e *Exprs) NewInit(span source.Span, elems []ExprID) ExprID {
	return e.New(Expr{Kind: ExprInit, Span: span, Args: elems})
}

func (e *Exprs) clone() *Exprs {
	arena := e.Arena.Clone()
	for i := range arena.data {
		arena.data[i].Args = slices.Clone(arena.data[i].Args)
	}
	return &Exprs{Arena: arena}
}

// IsIntLiteral reports the value of an integer literal expression.
func (e *Expr) IsIntLiteral() (int, bool) {
	if e == nil || e.Kind != ExprLiteral || e.Lit != LitInt {
		return 0, false
	}
	return parseIntLiteral(e.Text)
}
