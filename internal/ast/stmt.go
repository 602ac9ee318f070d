package ast

import (
	"slices"

	"github.com/stride3d/stride-sub014/internal/source"
)

type StmtKind uint8

const (
	StmtBlock StmtKind = iota
	StmtExpr
	StmtDecl
	StmtReturn
	StmtIf
	StmtFor
	StmtForEach
	StmtWhile
	StmtBreak
	StmtContinue
	StmtDiscard
	StmtEmpty
)

// LocalVar is one declarator of a local declaration: `float a = 1, b[2];`.
type LocalVar struct {
	Name string
	Dims []Dim
	Init ExprID
	Span source.Span
}

// Stmt is a closed variant; which fields are meaningful depends on Kind.
//
//	Block:   Stmts
//	Expr:    X
//	Decl:    Qual Type Vars
//	Return:  X (optional)
//	If:      X Then Else
//	For:     Init X Post Body
//	ForEach: Type Name X Body
//	While:   X Body
type Stmt struct {
	Kind  StmtKind
	Span  source.Span
	Attrs []Attr
	Stmts []StmtID
	X     ExprID
	Qual  Qualifier
	Type  TypeRef
	Vars  []LocalVar
	Name  string
	Then  StmtID
	Else  StmtID
	Init  StmtID
	Post  ExprID
	Body  StmtID
}

type Stmts struct {
	Arena *Arena[Stmt]
}

func NewStmts(capHint uint) *Stmts {
	if capHint == 0 {
		capHint = 1 << 7
	}
	return &Stmts{
		Arena: NewArena[Stmt](capHint),
	}
}

func (s *Stmts) New(stmt Stmt) StmtID {
	return StmtID(s.Arena.Allocate(stmt))
}

func (s *Stmts) Get(id StmtID) *Stmt {
	return s.Arena.Get(uint32(id))
}

func (s *Stmts) NewBlock(span source.Span, stmts []StmtID) StmtID {
	return s.New(Stmt{Kind: StmtBlock, Span: span, Stmts: stmts})
}

func (s *Stmts) NewExpr(span source.Span, x ExprID) StmtID {
	return s.New(Stmt{Kind: StmtExpr, Span: span, X: x})
}

func (s *Stmts) NewReturn(span source.Span, x ExprID) StmtID {
	return s.New(Stmt{Kind: StmtReturn, Span: span, X: x})
}

func (s *Stmts) NewDecl(span source.Span, qual Qualifier, typ TypeRef, vars []LocalVar) StmtID {
	return s.New(Stmt{Kind: StmtDecl, Span: span, Qual: qual, Type: typ, Vars: vars})
}

func (s *Stmts) clone() *Stmts {
	arena := s.Arena.Clone()
	for i := range arena.data {
		st := &arena.data[i]
		st.Stmts = slices.Clone(st.Stmts)
		st.Attrs = slices.Clone(st.Attrs)
		st.Type = st.Type.Clone()
		if st.Vars != nil {
			vars := make([]LocalVar, len(st.Vars))
			for j, v := range st.Vars {
				v.Dims = slices.Clone(v.Dims)
				vars[j] = v
			}
			st.Vars = vars
		}
	}
	return &Stmts{Arena: arena}
}
