package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stride3d/stride-sub014/internal/ast"
	"github.com/stride3d/stride-sub014/internal/diag"
	"github.com/stride3d/stride-sub014/internal/mixin"
	"github.com/stride3d/stride-sub014/internal/source"
)

func parseText(t *testing.T, text string, macros mixin.Macros) (*ast.Shader, *diag.Bag, *source.File) {
	t.Helper()
	fs := source.NewFileSet()
	file := fs.Get(fs.AddVirtual("test.sdsl", []byte(text)))
	bag := diag.NewBag(0)
	sh := Parse(file, macros, diag.BagReporter{Bag: bag})
	return sh, bag, file
}

const colorShader = `
namespace Stride.Rendering
{
    shader ComputeColorAdd<float Scale> : ComputeColor, Texturing<2>
    {
        compose ComputeColor color1;
        compose ComputeColor layers[];
        stage compose ShadingBase shading = stage;

        cbuffer PerMaterial.Lighting
        {
            [Color] stage float4 Tint : TINT;
        }
        rgroup PerMaterial
        {
            stage Texture2D Diffuse;
        }

        stage stream float4 Position : SV_Position;

        struct Light { float3 Dir; float4 Color : COLOR0; };
        typedef float4 Color4;

        abstract float4 Sample();

        override float4 Compute()
        {
            float4 acc = color1.Compute() * Scale;
            foreach (var layer in layers)
            {
                acc += layer.Compute();
            }
            for (int i = 0; i < 3; ++i)
                acc.x += base.Compute().x;
            return acc;
        }
    };
}
`

func TestParseShaderHeaderAndMembers(t *testing.T) {
	require := require.New(t)
	sh, bag, _ := parseText(t, colorShader, nil)
	require.False(bag.HasErrors(), "%v", bag.Items())
	require.NotNil(sh)

	require.Equal("ComputeColorAdd", sh.Name)
	require.Equal([]ast.GenericParam{{Type: "float", Name: "Scale"}}, sh.Generics)
	require.Len(sh.Bases, 2)
	require.Equal("Texturing<2>", sh.Bases[1].Key())

	names := make([]string, 0, len(sh.Members))
	for _, m := range sh.Members {
		names = append(names, m.Name())
	}
	require.Equal([]string{"color1", "layers", "shading", "Tint", "Diffuse", "Position", "Light", "Color4", "Sample", "Compute"}, names)

	layers := sh.Variable(1)
	require.True(layers.Qual.Has(ast.QualCompose))
	require.Equal([]ast.Dim{{Size: -1}}, layers.Type.Dims)

	shading := sh.Variable(2)
	require.True(shading.StageInit)
	require.Equal(ast.QualStage|ast.QualCompose, shading.Qual)

	tint := sh.Variable(3)
	require.Equal("PerMaterial.Lighting", tint.CBuffer)
	require.Equal("TINT", tint.Semantic)
	require.True(ast.HasAttr(tint.Attrs, "color"))

	require.Equal("PerMaterial", sh.Variable(4).RGroup)
	require.True(sh.Variable(5).IsStream())

	require.Equal(ast.MemberStruct, sh.Members[6].Kind)
	require.Equal("COLOR0", sh.Members[6].Struct.Fields[1].Semantic)

	sample := sh.Method(8)
	require.True(sample.Qual.Has(ast.QualAbstract))
	require.False(sample.IsDefinition())

	compute := sh.Method(9)
	require.True(compute.Qual.Has(ast.QualOverride))
	require.True(compute.IsDefinition())
}

func TestParseStatementsShape(t *testing.T) {
	require := require.New(t)
	sh, bag, _ := parseText(t, colorShader, nil)
	require.False(bag.HasErrors())

	tree := sh.Tree
	body := tree.Stmt(sh.Method(9).Body)
	require.Equal(ast.StmtBlock, body.Kind)
	require.Len(body.Stmts, 4)

	decl := tree.Stmt(body.Stmts[0])
	require.Equal(ast.StmtDecl, decl.Kind)
	require.Equal("float4", decl.Type.Name)
	init := tree.Expr(decl.Vars[0].Init)
	require.Equal(ast.ExprBinary, init.Kind)
	require.Equal("*", init.Op)

	call := tree.Expr(init.X)
	require.Equal(ast.ExprCall, call.Kind)
	name, target := tree.Callee(call)
	require.Equal("Compute", name)
	require.Equal("color1", tree.Expr(target).Name)

	fe := tree.Stmt(body.Stmts[1])
	require.Equal(ast.StmtForEach, fe.Kind)
	require.Equal("layer", fe.Name)
	require.Equal("layers", tree.Expr(fe.X).Name)

	loop := tree.Stmt(body.Stmts[2])
	require.Equal(ast.StmtFor, loop.Kind)
	require.Equal(ast.StmtDecl, tree.Stmt(loop.Init).Kind)
	post := tree.Expr(loop.Post)
	require.Equal(ast.ExprUnary, post.Kind)
	require.False(post.Postfix)

	ret := tree.Stmt(body.Stmts[3])
	require.Equal(ast.StmtReturn, ret.Kind)
}

func TestBinaryPrecedence(t *testing.T) {
	require := require.New(t)
	sh, bag, _ := parseText(t, `shader P { float f() { return a + b * c == d || e && g; } };`, nil)
	require.False(bag.HasErrors(), "%v", bag.Items())
	tree := sh.Tree
	ret := tree.Stmt(tree.Stmt(sh.Method(0).Body).Stmts[0])

	or := tree.Expr(ret.X)
	require.Equal("||", or.Op)
	eq := tree.Expr(or.X)
	require.Equal("==", eq.Op)
	add := tree.Expr(eq.X)
	require.Equal("+", add.Op)
	require.Equal("*", tree.Expr(add.Y).Op)
	require.Equal("&&", tree.Expr(or.Y).Op)
}

func TestAssignmentAndTernary(t *testing.T) {
	require := require.New(t)
	sh, bag, _ := parseText(t, `shader P { void f() { streams.Color.rgb *= x > 0 ? 1.0f : .5; } };`, nil)
	require.False(bag.HasErrors(), "%v", bag.Items())
	tree := sh.Tree
	st := tree.Stmt(tree.Stmt(sh.Method(0).Body).Stmts[0])
	as := tree.Expr(st.X)
	require.Equal(ast.ExprAssign, as.Kind)
	require.Equal("*=", as.Op)

	target := tree.Expr(as.X)
	require.Equal(ast.ExprMember, target.Kind)
	require.Equal("rgb", target.Name)
	require.Equal("Color", tree.Expr(target.X).Name)

	tern := tree.Expr(as.Y)
	require.Equal(ast.ExprTernary, tern.Kind)
	require.Equal(ast.LitFloat, tree.Expr(tern.Y).Lit)
}

func TestSyntaxErrorIsReported(t *testing.T) {
	require := require.New(t)
	sh, bag, _ := parseText(t, "shader Broken {\n  float4 x = ;\n};", nil)
	require.Nil(sh)
	require.True(bag.HasErrors())
	require.Equal(diag.SynError, bag.Items()[0].Code)
	require.NotZero(bag.Items()[0].Primary.Start)
}

func TestPreprocessorConditionals(t *testing.T) {
	require := require.New(t)
	src := `#define USE_FOG
#define COUNT 3
shader Fog
{
#ifdef USE_FOG
    float Density[COUNT];
#else
    float Missing;
#endif
#if defined(QUALITY) && QUALITY >= 2
    float High;
#elif !defined(QUALITY)
    float Unset;
#endif
};`
	sh, bag, _ := parseText(t, src, nil)
	require.False(bag.HasErrors(), "%v", bag.Items())
	require.Len(sh.Members, 2)
	require.Equal("Density", sh.Members[0].Name())
	require.Equal([]ast.Dim{{Size: 3}}, sh.Variable(0).Type.Dims)
	require.Equal("Unset", sh.Members[1].Name())

	sh, bag, _ = parseText(t, src, mixin.Macros{{Name: "QUALITY", Definition: "2"}, {Name: "COUNT", Definition: "5"}})
	require.False(bag.HasErrors(), "%v", bag.Items())
	require.Equal("High", sh.Members[1].Name())
	require.Equal([]ast.Dim{{Size: 5}}, sh.Variable(0).Type.Dims, "caller macros win over #define")
}

func TestPreprocessorKeepsOffsets(t *testing.T) {
	require := require.New(t)
	src := "#define LONG_MACRO_NAME x\nshader S { float f() { return LONG_MACRO_NAME + y; } };"
	sh, bag, file := parseText(t, src, nil)
	require.False(bag.HasErrors())

	ret := sh.Tree.Stmt(sh.Tree.Stmt(sh.Method(0).Body).Stmts[0])
	y := sh.Tree.Expr(sh.Tree.Expr(ret.X).Y)
	require.Equal("y", y.Name)
	require.Equal("y", string(file.Content[y.Span.Start:y.Span.End]))
}

func TestPreprocessorErrors(t *testing.T) {
	require := require.New(t)
	_, bag, _ := parseText(t, "#define F(x) x\n#ifdef A\nshader S {};", nil)
	require.Equal(2, bag.Count(diag.SynPreprocessor))
}
