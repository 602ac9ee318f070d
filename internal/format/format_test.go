package format_test

import (
	"strings"
	"testing"

	"github.com/stride3d/stride-sub014/internal/ast"
	"github.com/stride3d/stride-sub014/internal/diag"
	"github.com/stride3d/stride-sub014/internal/format"
	"github.com/stride3d/stride-sub014/internal/parser"
	"github.com/stride3d/stride-sub014/internal/source"
)

func parse(t *testing.T, text string) *ast.Shader {
	t.Helper()
	fs := source.NewFileSet()
	bag := diag.NewBag(0)
	sh := parser.Parse(fs.Get(fs.AddVirtual("t.sdsl", []byte(text))), nil, diag.BagReporter{Bag: bag})
	if sh == nil || bag.HasErrors() {
		t.Fatalf("parse failed: %v", bag.Items())
	}
	return sh
}

const src = `shader Blend : Base
{
    cbuffer PerDraw { stage float Alpha = 0.5; }
    stage stream float4 Color : COLOR;
    override float4 Mix(float4 a, float4 b)
    {
        float4 r = (a + b) * Alpha;
        if (r.a > 1) r.a = 1; else { r.a = -r.a; }
        return r;
    }
};`

func TestShaderPrint(t *testing.T) {
	out := string(format.Shader(parse(t, src), format.Options{}))
	for _, want := range []string{
		"shader Blend : Base\n{\n",
		"    cbuffer PerDraw\n    {\n        stage float Alpha = 0.5;\n    };\n",
		"    stage stream float4 Color : COLOR;\n",
		"    override float4 Mix(float4 a, float4 b)\n",
		"        float4 r = (a + b) * Alpha;\n",
		"        if (r.a > 1)\n            r.a = 1;\n        else\n        {\n            r.a = -r.a;\n        }\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output misses %q:\n%s", want, out)
		}
	}
}

func TestShaderPrintIsStable(t *testing.T) {
	first := format.Shader(parse(t, src), format.Options{})
	second := format.Shader(parse(t, string(first)), format.Options{})
	if string(first) != string(second) {
		t.Fatalf("printing is not stable:\n%s\n---\n%s", first, second)
	}
}

func TestSynthesizedBinaryGetsParens(t *testing.T) {
	tree := ast.NewTree()
	a := tree.Exprs.NewIdent(source.Span{}, "a")
	b := tree.Exprs.NewIdent(source.Span{}, "b")
	c := tree.Exprs.NewIdent(source.Span{}, "c")
	sum := tree.Exprs.NewBinary(source.Span{}, "+", a, b)
	mul := tree.Exprs.NewBinary(source.Span{}, "*", sum, c)
	ret := tree.Stmts.NewReturn(source.Span{}, mul)
	body := tree.Stmts.NewBlock(source.Span{}, []ast.StmtID{ret})

	prog := ast.NewProgram("P")
	prog.Tree = tree
	id := prog.AddMethod(ast.Method{Name: "f", Return: ast.Named("float"), Body: body})
	prog.Funcs = append(prog.Funcs, id)

	out := string(format.Program(prog, format.Options{}))
	if !strings.Contains(out, "return (a + b) * c;") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}
