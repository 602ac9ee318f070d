package loader

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stride3d/stride-sub014/internal/ast"
	"github.com/stride3d/stride-sub014/internal/diag"
	"github.com/stride3d/stride-sub014/internal/mixin"
)

const genericColor = `shader ColorConst<float Value, bool Enabled, Semantic TSem, int Count> : ComputeColor
{
    stage float Values[Count];
    stage stream float4 Tex : TSem;
    override float4 Compute()
    {
        if (Enabled) return Value * streams.TSem;
        return float4(0, 0, 0, 0);
    }
};`

func newLoader(t *testing.T, sources map[string]string) (*Loader, *diag.Bag) {
	t.Helper()
	return New(NewMapProvider(sources), nil, 0), diag.NewBag(0)
}

func TestLoadInstantiatesGenerics(t *testing.T) {
	l, bag := newLoader(t, map[string]string{
		"ColorConst":   genericColor,
		"ComputeColor": `shader ComputeColor { float4 Compute() { return 0; } };`,
	})
	res := l.Load(Request{Class: "ColorConst", Args: []string{"2.5", "true", "TEXCOORD0", "4"}}, diag.BagReporter{Bag: bag})
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	sh := res.Shader
	if sh.Name != "ColorConst<2.5,true,TEXCOORD0,4>" || sh.ClassName != "ColorConst" {
		t.Fatalf("unexpected names %q / %q", sh.Name, sh.ClassName)
	}
	if !res.Instantiated {
		t.Fatalf("expected instantiated shader")
	}
	if got := sh.Variable(0).Type.Dims; len(got) != 1 || got[0].Size != 4 {
		t.Fatalf("array dim not substituted: %+v", got)
	}
	if sem := sh.Variable(1).Semantic; sem != "TEXCOORD0" {
		t.Fatalf("semantic not substituted: %q", sem)
	}

	var lits, members int
	for i := range sh.Tree.Exprs.Arena.Len() {
		e := sh.Tree.Exprs.Get(ast.ExprID(i + 1))
		switch {
		case e.Kind == ast.ExprLiteral && (e.Text == "2.5" || e.Text == "true"):
			lits++
		case e.Kind == ast.ExprMember && e.Name == "TEXCOORD0":
			members++
		case e.Kind == ast.ExprIdent && (e.Name == "Value" || e.Name == "Enabled"):
			t.Fatalf("generic identifier %q left in body", e.Name)
		}
	}
	if lits != 2 || members != 1 {
		t.Fatalf("lits=%d members=%d", lits, members)
	}
	if len(res.Deps) != 1 || res.Deps[0].Class != "ComputeColor" {
		t.Fatalf("unexpected deps %+v", res.Deps)
	}
}

func TestLoadGenericCount(t *testing.T) {
	l, bag := newLoader(t, map[string]string{"ColorConst": genericColor})
	res := l.Load(Request{Class: "ColorConst", Args: []string{"1"}}, diag.BagReporter{Bag: bag})
	if res.Shader != nil || bag.Count(diag.GraGenericCount) != 1 {
		t.Fatalf("expected generic count error, got %v", bag.Items())
	}
}

func TestLoadAutoInstantiate(t *testing.T) {
	l, bag := newLoader(t, map[string]string{"ColorConst": genericColor})
	res := l.Load(Request{Class: "ColorConst", AutoInstantiate: true}, diag.BagReporter{Bag: bag})
	if res.Shader == nil {
		t.Fatalf("auto instantiation failed: %v", bag.Items())
	}
	if res.Shader.Name != "ColorConst<0,false,,0>" {
		t.Fatalf("unexpected default instantiation %q", res.Shader.Name)
	}
}

func TestLoadNotFoundAndMismatch(t *testing.T) {
	l, bag := newLoader(t, map[string]string{"Wrong": `shader Other {};`})
	l.Load(Request{Class: "Missing"}, diag.BagReporter{Bag: bag})
	l.Load(Request{Class: "Wrong"}, diag.BagReporter{Bag: bag})
	if bag.Count(diag.GraClassNotFound) != 1 || bag.Count(diag.GraClassNameMismatch) != 1 {
		t.Fatalf("unexpected diagnostics %v", bag.Items())
	}
}

func TestLoadReturnsPrivateCopies(t *testing.T) {
	l, _ := newLoader(t, map[string]string{"A": `shader A { stage float x; };`})
	first := l.Load(Request{Class: "A"}, nil)
	first.Shader.Variable(0).Name = "mutated"
	second := l.Load(Request{Class: "A"}, nil)
	if second.Shader.Variable(0).Name != "x" {
		t.Fatalf("cache entry was mutated through a result")
	}
}

func TestMacrosSplitCache(t *testing.T) {
	src := `shader M {
#ifdef WIDE
    float4 v;
#else
    float v;
#endif
};`
	l, _ := newLoader(t, map[string]string{"M": src})
	narrow := l.Load(Request{Class: "M"}, nil)
	wide := l.Load(Request{Class: "M", Macros: mixin.Macros{{Name: "WIDE", Definition: "1"}}}, nil)
	if narrow.Shader.Variable(0).Type.Name != "float" || wide.Shader.Variable(0).Type.Name != "float4" {
		t.Fatalf("macro sets must not share a cache entry")
	}
}

func TestInvalidate(t *testing.T) {
	p := NewMapProvider(map[string]string{"A": `shader A { float x; };`})
	l := New(p, nil, 0)
	l.Load(Request{Class: "A"}, nil)
	p.Set("A", `shader A { float y; };`)

	if got := l.Load(Request{Class: "A"}, nil).Shader.Variable(0).Name; got != "x" {
		t.Fatalf("expected cached parse, got %q", got)
	}
	if n := l.Invalidate(map[string]struct{}{"A": {}}); n != 2 {
		t.Fatalf("expected 2 dropped entries, got %d", n)
	}
	if got := l.Load(Request{Class: "A"}, nil).Shader.Variable(0).Name; got != "y" {
		t.Fatalf("expected fresh parse, got %q", got)
	}
}

func TestConcurrentLoadParsesOnce(t *testing.T) {
	l, _ := newLoader(t, map[string]string{"A": `shader A { float x; };`})
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if res := l.Load(Request{Class: "A"}, nil); res.Shader == nil {
				t.Errorf("load failed")
			}
		}()
	}
	wg.Wait()
	if l.files.Len() != 1 {
		t.Fatalf("expected one parse, got %d files", l.files.Len())
	}
	if n := l.parseLocks.Len() + l.instanceLocks.Len(); n != 0 {
		t.Fatalf("%d key locks left after loading", n)
	}
}

func TestKeyLocksDropReleasedKeys(t *testing.T) {
	var locks keyLocks[string]
	unlockA := locks.lock("a")
	unlockB := locks.lock("b")
	if locks.Len() != 2 {
		t.Fatalf("expected two entries, got %d", locks.Len())
	}

	acquired := make(chan struct{})
	go func() {
		unlock := locks.lock("a")
		close(acquired)
		unlock()
	}()
	unlockA()
	<-acquired
	unlockB()
	// the waiter may still be releasing a
	for locks.Len() != 0 {
		runtime.Gosched()
	}
}

func TestDirProvider(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "Materials")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "Tint.sdsl"), []byte("shader Tint {};"), 0o600); err != nil {
		t.Fatal(err)
	}
	p := NewDirProvider(dir)
	if !p.Exists("Tint") || p.Exists("Missing") {
		t.Fatalf("unexpected index %v", p.Classes())
	}
	l := New(p, nil, 0)
	if res := l.Load(Request{Class: "Tint"}, nil); res.Shader == nil {
		t.Fatalf("load from directory failed")
	}
	d, err := l.Digest("Tint")
	if err != nil || d != l.Load(Request{Class: "Tint"}, nil).Hash {
		t.Fatalf("digest mismatch: %v", err)
	}
}
