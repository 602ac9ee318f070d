package streams

import (
	"context"
	"strings"
	"testing"

	"github.com/stride3d/stride-sub014/internal/analysis"
	"github.com/stride3d/stride-sub014/internal/ast"
	"github.com/stride3d/stride-sub014/internal/compose"
	"github.com/stride3d/stride-sub014/internal/diag"
	"github.com/stride3d/stride-sub014/internal/format"
	"github.com/stride3d/stride-sub014/internal/graph"
	"github.com/stride3d/stride-sub014/internal/loader"
	"github.com/stride3d/stride-sub014/internal/mixer"
	"github.com/stride3d/stride-sub014/internal/mixin"
)

var library = map[string]string{
	"RoundTrip": `shader RoundTrip
{
    stage stream float4 Position;
    stage void VSMain() { streams.Position = float4(0, 0, 0, 1); }
    stage void PSMain() { float4 p = streams.Position; }
};`,
	"Targets": `shader Targets
{
    stage stream float4 ShadingPosition : SV_Position;
    stage stream float4 ColorTarget : SV_Target0;
    stage stream float4 Scratch;
    stage stream float3 Normal : NORMAL;
    stage stream bool Face : SV_IsFrontFace;
    float4 Shade() { return streams.Scratch * 2; }
    float4 Unused() { return 1; }
    stage void VSMain() { streams.ShadingPosition = 0; }
    stage void PSMain()
    {
        streams.Scratch = float4(streams.Normal, 1);
        if (streams.Face)
            streams.ColorTarget = Shade();
    }
};`,
	"Inputs": `shader Inputs
{
    stage stream float4 Pos : POSITION;
    stage stream float2 Uv : TEXCOORD1;
    stage stream float4 ShadingPosition : SV_Position;
    stage void VSMain() { streams.ShadingPosition = streams.Pos + float4(streams.Uv, 0, 0); }
};`,
	"Recursive": `shader Recursive
{
    stage stream float4 ColorTarget : SV_Target0;
    float4 Ping() { return Pong(); }
    float4 Pong() { return Ping(); }
    stage void PSMain() { streams.ColorTarget = Ping(); }
};`,
	"HullOnly": `shader HullOnly
{
    stage void HSMain() { }
};`,
	"Shared": `shader Shared
{
    stage stream float4 ShadingPosition : SV_Position;
    stage stream float4 ColorTarget : SV_Target0;
    float4 Read() { return streams.ShadingPosition; }
    stage void VSMain() { streams.ShadingPosition = Read(); }
    stage void PSMain() { streams.ColorTarget = Read(); }
};`,
	"Geometry": `shader Geometry
{
    stage stream float4 ShadingPosition : SV_Position;
    stage stream float4 Color : COLOR0;
    stage void VSMain() { streams.ShadingPosition = 0; }
    stage void GSMain() { streams.Color = 1; }
    stage void PSMain() { float x = 0; }
};`,
	"Dispatch": `shader Dispatch
{
    stage stream float4 Value;
    stage void CSMain() { streams.Value = 1; }
};`,
	"Partial": `shader Partial
{
    stage stream float4 Color : COLOR0;
    stage stream float4 ColorTarget : SV_Target0;
    stage void VSMain() { streams.Color = 1; }
    stage void PSMain()
    {
        streams.Color.a = 1;
        streams.ColorTarget = streams.Color;
    }
};`,
}

func structure(t *testing.T, class string) (*ast.Program, *Result, *diag.Bag) {
	t.Helper()
	ctx := context.Background()
	l := loader.New(loader.NewMapProvider(library), nil, 0)
	res := graph.NewBuilder(l, nil).Build(ctx, mixin.Class(class), nil)
	a := analysis.New()
	a.Analyze(ctx, res, res.Records)
	if bag := res.Bag(0); bag.HasErrors() {
		t.Fatalf("analysis failed: %v", bag.Items())
	}
	bag := diag.NewBag(0)
	rep := diag.BagReporter{Bag: bag}
	prog := mixer.Link(ctx, compose.NewResolver(a).Resolve(ctx, res.Root, rep), rep)
	if bag.HasErrors() {
		t.Fatalf("link failed: %v", bag.Items())
	}
	return prog, Structure(ctx, prog, rep), bag
}

func names(prog *ast.Program, ids []ast.VarID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = mixer.BaseName(prog.Var(id).Name)
	}
	return out
}

func record(t *testing.T, prog *ast.Program, name string) *ast.Struct {
	t.Helper()
	for i := range prog.Structs {
		if prog.Structs[i].Name == name {
			return &prog.Structs[i]
		}
	}
	t.Fatalf("no record %s", name)
	return nil
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestParseSemantic(t *testing.T) {
	cases := []struct {
		in   string
		name string
		idx  int
	}{
		{"TEXCOORD3", "TEXCOORD", 3},
		{"COLOR", "COLOR", 0},
		{"SV_Target12", "SV_Target", 12},
		{"42", "42", 0},
	}
	for _, c := range cases {
		name, idx := ParseSemantic(c.in)
		if name != c.name || idx != c.idx {
			t.Errorf("ParseSemantic(%q) = %q, %d", c.in, name, idx)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	prog, res, bag := structure(t, "RoundTrip")
	if bag.HasErrors() || res == nil {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	vs, ps := res.Stage(ast.StageVertex), res.Stage(ast.StagePixel)
	if !equal(names(prog, vs.Out), []string{"Position"}) || !equal(names(prog, ps.In), []string{"Position"}) {
		t.Fatalf("VS out %v, PS in %v", names(prog, vs.Out), names(prog, ps.In))
	}
	if len(vs.Inter) != 0 || len(ps.Inter) != 0 {
		t.Fatalf("Position must not be intermediate")
	}

	out := record(t, prog, res.Records[ast.StageVertex].Output)
	in := record(t, prog, res.Records[ast.StagePixel].Input)
	if len(out.Fields) != 1 || len(in.Fields) != 1 {
		t.Fatalf("VS_OUTPUT %+v, PS_INPUT %+v", out.Fields, in.Fields)
	}
	if out.Fields[0].Semantic == "" || out.Fields[0].Semantic != in.Fields[0].Semantic {
		t.Fatalf("wire identifiers differ: %q vs %q", out.Fields[0].Semantic, in.Fields[0].Semantic)
	}
	if res.Records[ast.StageVertex].Input != "" || res.Records[ast.StagePixel].Output != "" {
		t.Fatalf("unexpected records %+v", res.Records)
	}

	text := string(format.Program(prog, format.Options{}))
	for _, want := range []string{
		"struct VS_OUTPUT",
		"VS_OUTPUT VSMain()",
		"void PSMain(PS_INPUT __input__)",
		"PS_STREAMS streams = (PS_STREAMS)0;",
		"return __output__;",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in\n%s", want, text)
		}
	}
}

func TestPixelOutputsAndHelpers(t *testing.T) {
	prog, res, bag := structure(t, "Targets")
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	vs, ps := res.Stage(ast.StageVertex), res.Stage(ast.StagePixel)
	if !equal(names(prog, ps.Out), []string{"ColorTarget"}) {
		t.Fatalf("pixel outputs %v", names(prog, ps.Out))
	}
	if !equal(names(prog, ps.Inter), []string{"Scratch"}) {
		t.Fatalf("pixel intermediates %v", names(prog, ps.Inter))
	}
	for _, n := range names(prog, vs.Out) {
		if n == "ColorTarget" || n == "Face" || n == "Scratch" {
			t.Fatalf("%s leaked into the vertex stage", n)
		}
	}
	if !equal(names(prog, vs.Out), []string{"ShadingPosition", "Normal"}) {
		t.Fatalf("vertex outputs %v", names(prog, vs.Out))
	}
	if in := names(prog, ps.In); in[len(in)-1] != "Face" {
		t.Fatalf("pixel-only input must come last, got %v", in)
	}

	var order []string
	for _, id := range prog.Funcs {
		order = append(order, mixer.BaseName(prog.Method(id).Name))
	}
	if !equal(order, []string{"VSMain", "Shade", "PSMain"}) {
		t.Fatalf("method order %v", order)
	}

	var shade *ast.Method
	for _, id := range prog.Funcs {
		if mixer.BaseName(prog.Method(id).Name) == "Shade" {
			shade = prog.Method(id)
		}
	}
	if len(shade.Params) != 1 || shade.Params[0].Name != StreamsName || shade.Params[0].Type.Name != "PS_STREAMS" ||
		!shade.Params[0].Qual.Has(ast.QualInOut) {
		t.Fatalf("Shade should take the pixel working record, got %+v", shade.Params)
	}
	for expr, mid := range prog.Calls {
		if prog.Method(mid) != shade {
			continue
		}
		call := prog.Tree.Expr(expr)
		if len(call.Args) != 1 || prog.Tree.Expr(call.Args[0]).Name != StreamsName {
			t.Fatalf("call site not updated")
		}
	}
}

func TestInputAttributes(t *testing.T) {
	_, res, bag := structure(t, "Inputs")
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	want := []InputAttribute{{"POSITION", 0}, {"TEXCOORD", 1}}
	if len(res.InputAttributes) != len(want) {
		t.Fatalf("got %+v", res.InputAttributes)
	}
	for i := range want {
		if res.InputAttributes[i] != want[i] {
			t.Fatalf("got %+v, want %+v", res.InputAttributes, want)
		}
	}
}

func TestRecursiveCall(t *testing.T) {
	_, _, bag := structure(t, "Recursive")
	if bag.Count(diag.StrRecursiveCall) != 1 {
		t.Fatalf("expected one recursive call error, got %v", bag.Items())
	}
}

func TestIncompleteTessellation(t *testing.T) {
	_, res, bag := structure(t, "HullOnly")
	if res != nil || bag.Count(diag.StrIncompleteTessellation) != 1 {
		t.Fatalf("expected incomplete tessellation, got %v", bag.Items())
	}
}

func TestCrossStageCall(t *testing.T) {
	_, _, bag := structure(t, "Shared")
	if bag.Count(diag.StrCrossStageCall) != 1 {
		t.Fatalf("expected a cross-stage error, got %v", bag.Items())
	}
}

func TestGeometryKeepsPosition(t *testing.T) {
	prog, res, bag := structure(t, "Geometry")
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	gs := res.Stage(ast.StageGeometry)
	if !equal(names(prog, gs.Out), []string{"ShadingPosition"}) {
		t.Fatalf("geometry outputs %v", names(prog, gs.Out))
	}
	if !equal(names(prog, gs.Inter), []string{"Color"}) {
		t.Fatalf("unused geometry output should be intermediate, got %v", names(prog, gs.Inter))
	}
	if vs := res.Stage(ast.StageVertex); !equal(names(prog, vs.Out), []string{"ShadingPosition"}) {
		t.Fatalf("vertex outputs %v", names(prog, vs.Out))
	}
}

func TestPartialWriteNeedsInput(t *testing.T) {
	prog, res, bag := structure(t, "Partial")
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	ps := res.Stage(ast.StagePixel)
	if !equal(names(prog, ps.In), []string{"Color"}) {
		t.Fatalf("a partial write must read the field first, got %v", names(prog, ps.In))
	}
	if vs := res.Stage(ast.StageVertex); !equal(names(prog, vs.Out), []string{"Color"}) {
		t.Fatalf("vertex outputs %v", names(prog, vs.Out))
	}
}

func TestComputeHasNoOutput(t *testing.T) {
	prog, res, bag := structure(t, "Dispatch")
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	cs := res.Stage(ast.StageCompute)
	if cs == nil || len(cs.Out) != 0 {
		t.Fatalf("a compute stage has no outputs, got %+v", cs)
	}
	if !equal(names(prog, cs.Inter), []string{"Value"}) {
		t.Fatalf("compute writes should be intermediate, got %v", names(prog, cs.Inter))
	}
	rec := res.Records[ast.StageCompute]
	if rec.Output != "" || rec.Input != "" || rec.Streams != "CS_STREAMS" {
		t.Fatalf("unexpected records %+v", rec)
	}
	for _, st := range prog.Structs {
		if st.Name == "CS_OUTPUT" {
			t.Fatalf("CS_OUTPUT must not be synthesized")
		}
	}
	if len(res.InputAttributes) != 0 {
		t.Fatalf("compute has no input attributes, got %+v", res.InputAttributes)
	}
}
