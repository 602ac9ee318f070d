package ast

import (
	"testing"

	"github.com/stride3d/stride-sub014/internal/source"
)

func TestArenaIndexesAreOneBased(t *testing.T) {
	a := NewArena[int](0)
	if got := a.Get(0); got != nil {
		t.Fatalf("index 0 must be empty, got %v", *got)
	}
	first := a.Allocate(10)
	second := a.Allocate(20)
	if first != 1 || second != 2 {
		t.Fatalf("unexpected ids %d %d", first, second)
	}
	if *a.Get(second) != 20 {
		t.Fatalf("wrong value at %d", second)
	}
	if a.Get(3) != nil {
		t.Fatalf("out of range index must be nil")
	}
}

func TestTreeCloneIsIndependent(t *testing.T) {
	tree := NewTree()
	x := tree.Exprs.NewIdent(source.Span{}, "x")
	call := tree.Exprs.NewCall(source.Span{}, tree.Exprs.NewIdent(source.Span{}, "f"), []ExprID{x})

	cp := tree.Clone()
	cp.Expr(call).Args[0] = NoExprID
	cp.Expr(x).Name = "y"

	if tree.Expr(call).Args[0] != x {
		t.Fatalf("clone shares call arguments with the original")
	}
	if tree.Expr(x).Name != "x" {
		t.Fatalf("clone shares nodes with the original")
	}
}

func TestCopierSubstitutesAndDrops(t *testing.T) {
	src := NewTree()
	a := src.Exprs.NewIdent(source.Span{}, "a")
	b := src.Exprs.NewIdent(source.Span{}, "b")
	sum := src.Exprs.NewBinary(source.Span{}, "+", a, b)
	keep := src.Stmts.NewExpr(source.Span{}, sum)
	drop := src.Stmts.New(Stmt{Kind: StmtDiscard})
	block := src.Stmts.NewBlock(source.Span{}, []StmtID{keep, drop})

	dst := NewTree()
	copied := 0
	c := Copier{
		Src: src,
		Dst: dst,
		Expr: func(id ExprID, e Expr) (ExprID, bool) {
			if e.Kind == ExprIdent && e.Name == "b" {
				return dst.Exprs.NewLiteral(source.Span{}, LitInt, "2"), true
			}
			return NoExprID, false
		},
		Stmt: func(id StmtID, s Stmt) (StmtID, bool) {
			if s.Kind == StmtDiscard {
				return NoStmtID, true
			}
			return NoStmtID, false
		},
		Copied: func(src, dst ExprID) { copied++ },
	}
	out := c.CopyStmt(block)
	got := dst.Stmt(out)
	if len(got.Stmts) != 1 {
		t.Fatalf("expected dropped statement, got %d statements", len(got.Stmts))
	}
	bin := dst.Expr(dst.Stmt(got.Stmts[0]).X)
	if bin.Kind != ExprBinary || dst.Expr(bin.Y).Kind != ExprLiteral {
		t.Fatalf("substitution not applied: %+v", bin)
	}
	if copied != 2 {
		t.Fatalf("expected 2 plain copies (a and +), got %d", copied)
	}
}

func TestQualifierString(t *testing.T) {
	q := QualStage | QualStream | QualOverride
	if got := q.String(); got != "stage stream override" {
		t.Fatalf("unexpected qualifier string %q", got)
	}
	if p, ok := ParseQualifier("compose"); !ok || p != QualCompose {
		t.Fatalf("compose not parsed")
	}
}

func TestMethodSignature(t *testing.T) {
	m1 := &Method{Name: "Compute", Params: []Param{{Name: "a", Type: Named("float4")}}}
	m2 := &Method{Name: "Compute", Params: []Param{{Name: "b", Type: Named("float4")}}, Return: Named("float")}
	m3 := &Method{Name: "Compute", Params: []Param{{Name: "a", Type: Named("float3")}}}
	if !m1.SameSignature(m2) {
		t.Fatalf("parameter names and return type must not matter")
	}
	if m1.SameSignature(m3) {
		t.Fatalf("different parameter types must differ")
	}
	if got := m1.Signature(); got != "Compute(float4)" {
		t.Fatalf("unexpected signature %q", got)
	}
}

func TestInstanceNameAndTypes(t *testing.T) {
	if got := InstanceName("ComputeColorConst", []string{"1", "0.5"}); got != "ComputeColorConst<1,0.5>" {
		t.Fatalf("unexpected instance name %q", got)
	}
	typ := TypeRef{Name: "ComputeColor", Dims: []Dim{{Size: 3}}}
	if typ.String() != "ComputeColor[3]" || typ.Elem().String() != "ComputeColor" {
		t.Fatalf("unexpected type rendering %q", typ.String())
	}
	if s, ok := StageOfEntry("PSMain"); !ok || s != StagePixel {
		t.Fatalf("PSMain must map to the pixel stage")
	}
}
