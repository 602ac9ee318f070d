package analysis

import (
	"context"
	"testing"

	"github.com/stride3d/stride-sub014/internal/ast"
	"github.com/stride3d/stride-sub014/internal/diag"
	"github.com/stride3d/stride-sub014/internal/graph"
	"github.com/stride3d/stride-sub014/internal/loader"
	"github.com/stride3d/stride-sub014/internal/mixin"
)

var library = map[string]string{
	"ShaderBase": `shader ShaderBase
{
    stage stream float4 Position : SV_Position;
    stage void VSMain() { }
    stage void PSMain() { }
};`,
	"ComputeColor": `shader ComputeColor
{
    float4 Compute() { return 0; }
};`,
	"Red": `shader Red : ComputeColor
{
    override float4 Compute() { return float4(1, 0, 0, 1); }
};`,
	"Utils": `shader Utils
{
    static float Scale = 2;
    static float Twice(float x) { return x * 2; }
};`,
	"Tinted": `shader Tinted : ShaderBase
{
    compose ComputeColor color;
    compose ComputeColor layers[];
    stage stream float4 ColorTarget : SV_Target0;
    float Strength;

    stage override void PSMain()
    {
        base.PSMain();
        float4 c = color.Compute() * Strength;
        c += layers[1].Compute();
        streams.ColorTarget = c * Utils.Twice(Utils.Scale);
    }
};`,
	"Looping": `shader Looping : ComputeColor
{
    compose ComputeColor layers[];
    override float4 Compute()
    {
        float4 acc = 0;
        foreach (var layer in layers)
        {
            acc += layer.Compute();
        }
        return acc;
    }
};`,
	"Cycle1": `shader Cycle1 : Cycle2 { };`,
	"Cycle2": `shader Cycle2 : Cycle1 { };`,
	"NoOverride": `shader NoOverride : ComputeColor
{
    float4 Compute() { return 1; }
};`,
	"Broken": `shader Broken : ComputeColor
{
    float4 Missing();
};`,
	"UsesBroken": `shader UsesBroken : Broken { };`,
	"Bad": `shader Bad : ComputeColor
{
    compose ComputeColor items[];
    float4 Helper() { return Helper(); }
    override float4 Compute()
    {
        ComputeColor local;
        int i = 1;
        float4 x = items[i].Compute();
        return x + stage;
    }
};`,
	"Streams": `shader Streams : ShaderBase
{
    float Plain;
    stage void Use()
    {
        float4 p = Position;
        float q = streams.Plain;
        float r = streams.Nothing;
    }
};`,
	"StageOnly": `shader StageOnly
{
    stage float Shared;
    stage float Get() { return Shared; }
};`,
}

func analyze(t *testing.T, src mixin.Source) (*graph.Result, *Analyzer) {
	t.Helper()
	l := loader.New(loader.NewMapProvider(library), nil, 0)
	res := graph.NewBuilder(l, nil).Build(context.Background(), src, nil)
	a := New()
	a.Analyze(context.Background(), res, res.Records)
	return res, a
}

func fragment(t *testing.T, res *graph.Result, name string) *mixin.Fragment {
	t.Helper()
	r := res.Get(mixin.KeyOf(name, nil, nil))
	if r == nil || r.Fragment == nil {
		t.Fatalf("no fragment for %s", name)
	}
	return r.Fragment
}

func refsByName(f *mixin.Fragment) map[string][]mixin.Ref {
	out := make(map[string][]mixin.Ref)
	f.Pools.Each(func(_ ast.ExprID, r mixin.Ref) {
		out[r.Name] = append(out[r.Name], r)
	})
	return out
}

func TestAnalyzeCompletesCleanClosure(t *testing.T) {
	res, _ := analyze(t, mixin.Class("Tinted"))
	if bag := res.Bag(0); bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	f := fragment(t, res, "Tinted")
	if !f.Complete() {
		t.Fatalf("expected complete fragment, got %v", f.Status)
	}
	if len(f.Inheritance) != 1 || f.Inheritance[0].Name != "ShaderBase" {
		t.Fatalf("unexpected inheritance %v", f.Inheritance)
	}
	if len(f.Plugins) != 2 {
		t.Fatalf("expected 2 compose fields, got %d", len(f.Plugins))
	}
	if len(f.Statics) != 1 || f.Statics[0].Name != "Utils" {
		t.Fatalf("expected Utils as static dependency, got %v", f.Statics)
	}
}

func TestPoolsClassifyReferences(t *testing.T) {
	res, _ := analyze(t, mixin.Class("Tinted"))
	refs := refsByName(fragment(t, res, "Tinted"))

	psmain := refs["PSMain"]
	if len(psmain) != 1 || !psmain[0].Base || psmain[0].Target.Shader != "ShaderBase" {
		t.Fatalf("base call not linked: %+v", psmain)
	}
	compute := refs["Compute"]
	if len(compute) != 2 {
		t.Fatalf("expected two compose calls, got %+v", compute)
	}
	for _, r := range compute {
		if r.Pool != mixin.PoolExtern || r.Target.Shader != "ComputeColor" || len(r.Path) != 1 {
			t.Fatalf("unexpected compose call %+v", r)
		}
	}
	if compute[0].Path[0].Elem != mixin.NoElem || compute[1].Path[0].Elem != 1 {
		t.Fatalf("array element not recorded: %+v", compute)
	}
	if r := refs["Twice"]; len(r) != 1 || r[0].Pool != mixin.PoolStatic || r[0].Class != "Utils" {
		t.Fatalf("static call not recorded: %+v", r)
	}
	if r := refs["Scale"]; len(r) != 1 || r[0].Pool != mixin.PoolStatic {
		t.Fatalf("static field not recorded: %+v", r)
	}
	if r := refs["ColorTarget"]; len(r) != 1 || r[0].Pool != mixin.PoolClass {
		t.Fatalf("stream write not recorded: %+v", r)
	}
	if r := refs["Strength"]; len(r) != 1 || r[0].Target.Shader != "Tinted" {
		t.Fatalf("field read not recorded: %+v", r)
	}
}

func TestMissingOverrideNamesFragment(t *testing.T) {
	res, _ := analyze(t, mixin.Class("NoOverride"))
	f := fragment(t, res, "NoOverride")
	if f.Diags.Count(diag.OvrMissingOverride) != 1 {
		t.Fatalf("expected missing override, got %v", f.Diags.Items())
	}
	if f.Status[mixin.PassVTable] != mixin.StatusError {
		t.Fatalf("vtable pass should fail, got %v", f.Status[mixin.PassVTable])
	}
}

func TestBaseCycleMarksBothFragments(t *testing.T) {
	res, _ := analyze(t, mixin.Class("Cycle1"))
	for _, name := range []string{"Cycle1", "Cycle2"} {
		f := fragment(t, res, name)
		if f.Status[mixin.PassDependency] != mixin.StatusCyclic {
			t.Fatalf("%s: expected cyclic status, got %v", name, f.Status[mixin.PassDependency])
		}
		if !f.Failed() {
			t.Fatalf("%s: cyclic fragment must fail", name)
		}
	}
}

func TestFailureReachesDependents(t *testing.T) {
	res, _ := analyze(t, mixin.Class("UsesBroken"))
	if fragment(t, res, "Broken").Diags.Count(diag.OvrMissingAbstract) != 1 {
		t.Fatalf("expected missing abstract on Broken")
	}
	user := fragment(t, res, "UsesBroken")
	if user.Status[mixin.PassSemantic] != mixin.StatusError {
		t.Fatalf("dependent should fail, got %v", user.Status)
	}
	res.ReportBroken()
	if user.Diags.Count(diag.GraDependencyFailed) != 1 {
		t.Fatalf("expected dependency failure report, got %v", user.Diags.Items())
	}
	res.ReportBroken()
	if user.Diags.Count(diag.GraDependencyFailed) != 1 {
		t.Fatalf("dependency failure must be reported once")
	}
	if fragment(t, res, "ComputeColor").Failed() {
		t.Fatalf("sibling base must not fail")
	}
}

func TestSemanticChecks(t *testing.T) {
	res, _ := analyze(t, mixin.Class("Bad"))
	f := fragment(t, res, "Bad")
	for _, code := range []diag.Code{
		diag.LnkCyclicMethod,
		diag.LnkShaderVariable,
		diag.LnkIndexerNotLiteral,
		diag.LnkStageOutsideField,
	} {
		if f.Diags.Count(code) != 1 {
			t.Errorf("expected one %v, got %v", code, f.Diags.Items())
		}
	}
	if f.Status[mixin.PassSemantic] != mixin.StatusError {
		t.Fatalf("semantic pass should fail")
	}
}

func TestStreamPrefixChecks(t *testing.T) {
	res, _ := analyze(t, mixin.Class("Streams"))
	f := fragment(t, res, "Streams")
	for _, code := range []diag.Code{diag.StrMissingStreamsPrefix, diag.StrExtraStreamsPrefix, diag.StrStreamNotFound} {
		if f.Diags.Count(code) != 1 {
			t.Errorf("expected one %v, got %v", code, f.Diags.Items())
		}
	}
}

func TestStageOnlyClass(t *testing.T) {
	res, _ := analyze(t, mixin.Class("StageOnly"))
	if !fragment(t, res, "StageOnly").StageOnly {
		t.Fatalf("expected stage-only class")
	}
	res, _ = analyze(t, mixin.Class("Tinted"))
	if fragment(t, res, "Tinted").StageOnly {
		t.Fatalf("class with compose fields is not stage-only")
	}
}

func TestSpecializeUnrollsForEach(t *testing.T) {
	res, a := analyze(t, mixin.Class("Looping"))
	f := fragment(t, res, "Looping")
	s := a.Specialize(f, map[int]int{0: 3})
	if s == f || s.Origin != f {
		t.Fatalf("expected a specialized copy")
	}
	if got := s.Shader.Variable(0).Type.Dims[0].Size; got != 3 {
		t.Fatalf("dimension not patched: %d", got)
	}
	if f.Shader.Variable(0).Type.Dims[0].Size != -1 {
		t.Fatalf("original fragment was modified")
	}
	var elems []int
	s.Pools.Each(func(_ ast.ExprID, r mixin.Ref) {
		if r.Name == "Compute" && r.Pool == mixin.PoolExtern {
			elems = append(elems, r.Path[0].Elem)
		}
	})
	if len(elems) != 3 || elems[0] != 0 || elems[1] != 1 || elems[2] != 2 {
		t.Fatalf("unexpected unrolled calls %v", elems)
	}
	if s.Diags.HasErrors() {
		t.Fatalf("specialized copy has errors: %v", s.Diags.Items())
	}
	if a.Specialize(f, map[int]int{0: 3}) != s {
		t.Fatalf("specializations must be cached")
	}
}
