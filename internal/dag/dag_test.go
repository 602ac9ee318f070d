package dag

import (
	"slices"
	"testing"

	"github.com/stride3d/stride-sub014/internal/diag"
	"github.com/stride3d/stride-sub014/internal/source"
)

func deps(names ...string) []Edge {
	out := make([]Edge, len(names))
	for i, n := range names {
		out[i] = Edge{Name: n}
	}
	return out
}

func TestBuildIndexIncludesDeps(t *testing.T) {
	metas := []Meta{
		{Name: "Material", Deps: deps("ShaderBase", "Texturing")},
		{Name: "Texturing"},
	}
	idx := BuildIndex(metas)
	want := []string{"Material", "ShaderBase", "Texturing"}
	if !slices.Equal(idx.IDToName, want) {
		t.Fatalf("IDToName = %v, want %v", idx.IDToName, want)
	}
	for i, name := range want {
		if int(idx.NameToID[name]) != i {
			t.Fatalf("NameToID[%q] = %d, want %d", name, idx.NameToID[name], i)
		}
	}
}

func TestToposortPutsDependenciesFirst(t *testing.T) {
	metas := []Meta{
		{Name: "Leaf", Deps: deps("Mid")},
		{Name: "Mid", Deps: deps("ShaderBase")},
		{Name: "ShaderBase"},
		{Name: "Other"},
	}
	nodes := make([]Node, len(metas))
	for i, m := range metas {
		nodes[i] = Node{Meta: m}
	}
	idx := BuildIndex(metas)
	g, _ := BuildGraph(idx, nodes)
	topo := ToposortKahn(g)
	if topo.Cyclic {
		t.Fatalf("unexpected cycle")
	}
	if got, want := idx.Names(topo.Order), []string{"Other", "ShaderBase", "Mid", "Leaf"}; !slices.Equal(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	if len(topo.Batches) != 3 || len(topo.Batches[0]) != 2 {
		t.Fatalf("unexpected batches %v", topo.Batches)
	}
}

func TestMissingDependencyIsReported(t *testing.T) {
	bag := diag.NewBag(10)
	meta := Meta{Name: "A", Deps: []Edge{{Name: "Gone", Span: source.Span{File: 1, Start: 3, End: 7}}}}
	idx := BuildIndex([]Meta{meta})
	g, _ := BuildGraph(idx, []Node{{Meta: meta, Reporter: diag.BagReporter{Bag: bag}}})
	if bag.Count(diag.GraDependencyNotInModule) != 1 {
		t.Fatalf("expected missing dependency, got %v", bag.Items())
	}
	if g.Indeg[idx.NameToID["A"]] != 0 {
		t.Fatalf("missing dependency must not count toward indegree")
	}
}

func TestCyclesAreReported(t *testing.T) {
	bagA, bagB, bagC := diag.NewBag(10), diag.NewBag(10), diag.NewBag(10)
	metas := []Meta{
		{Name: "A", Deps: deps("B")},
		{Name: "B", Deps: deps("A")},
		{Name: "C", Deps: deps("A")},
	}
	nodes := []Node{
		{Meta: metas[0], Reporter: diag.BagReporter{Bag: bagA}},
		{Meta: metas[1], Reporter: diag.BagReporter{Bag: bagB}},
		{Meta: metas[2], Reporter: diag.BagReporter{Bag: bagC}},
	}
	idx := BuildIndex(metas)
	g, slots := BuildGraph(idx, nodes)
	topo := ToposortKahn(g)
	if !topo.Cyclic || len(topo.Cycles) != 3 {
		t.Fatalf("expected three blocked nodes, got %+v", topo)
	}
	ReportCycles(idx, slots, topo)
	for name, bag := range map[string]*diag.Bag{"A": bagA, "B": bagB, "C": bagC} {
		if bag.Count(diag.GraCyclicDependency) != 1 {
			t.Fatalf("%s diagnostics = %v", name, bag.Items())
		}
	}
}

func TestReportBrokenDeps(t *testing.T) {
	bag := diag.NewBag(10)
	first := diag.NewError(diag.OvrMissingOverride, source.Span{File: 2}, "boom")
	metas := []Meta{{Name: "Base"}, {Name: "Child", Deps: deps("Base", "Base")}}
	idx := BuildIndex(metas)
	_, slots := BuildGraph(idx, []Node{
		{Meta: metas[0], Broken: true, FirstErr: &first},
		{Meta: metas[1], Reporter: diag.BagReporter{Bag: bag}},
	})
	ReportBrokenDeps(idx, slots)
	items := bag.Items()
	if len(items) != 1 || items[0].Code != diag.GraDependencyFailed || len(items[0].Notes) != 1 {
		t.Fatalf("unexpected diagnostics %v", items)
	}
}
