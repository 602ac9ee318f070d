package driver

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stride3d/stride-sub014/internal/diag"
	"github.com/stride3d/stride-sub014/internal/loader"
	"github.com/stride3d/stride-sub014/internal/mixin"
)

func shaders() map[string]string {
	return map[string]string{
		"ShaderBase": `shader ShaderBase
{
    stage stream float4 ShadingPosition : SV_Position;
    stage stream float4 ColorTarget : SV_Target0;
    stage void VSMain() { }
    stage void PSMain() { streams.ColorTarget = 0; }
};`,
		"ComputeColor": `shader ComputeColor { float4 Compute() { return 0; } };`,
		"Red":          `shader Red : ComputeColor { override float4 Compute() { return float4(1, 0, 0, 1); } };`,
		"Green":        `shader Green : ComputeColor { override float4 Compute() { return float4(0, 1, 0, 1); } };`,
		"Colored": `shader Colored : ShaderBase
{
    compose ComputeColor color;
    stage override void PSMain() { streams.ColorTarget = color.Compute(); }
};`,
	}
}

func colored(color string) Request {
	return Request{
		Name:   "Colored+" + color,
		Source: mixin.Composite(mixin.Class("Colored")).Compose("color", mixin.Class(color)),
	}
}

func TestCompileFlattens(t *testing.T) {
	require := require.New(t)
	c := New(Options{Provider: loader.NewMapProvider(shaders())})

	res, err := c.Compile(context.Background(), colored("Red"))
	require.NoError(err)
	require.False(res.Failed(), "%v", res.Bag.Items())
	require.NotNil(res.Program)
	require.False(res.Cached)

	text := string(res.Text)
	require.Contains(text, "float4(1, 0, 0, 1)")
	require.Contains(text, "PS_OUTPUT PSMain()")

	require.Equal([]EntryPoint{
		{Stage: "vertex", Name: "VSMain"},
		{Stage: "pixel", Name: "PSMain", Output: "PS_OUTPUT"},
	}, res.Reflection.EntryPoints)

	var classes []string
	for _, s := range res.Sources {
		classes = append(classes, s.Class)
		require.False(s.Digest.IsZero())
	}
	require.Equal([]string{"Colored", "ComputeColor", "Red", "ShaderBase"}, classes)

	var phases []string
	for _, p := range res.Timing.Phases {
		phases = append(phases, p.Name)
	}
	require.Equal([]string{"graph", "analysis", "compose", "mix", "streams", "print"}, phases)
}

func TestCompileFailureHasNoProgram(t *testing.T) {
	require := require.New(t)
	c := New(Options{Provider: loader.NewMapProvider(shaders())})

	res, err := c.Compile(context.Background(), Request{Source: mixin.Class("Missing")})
	require.NoError(err)
	require.True(res.Failed())
	require.Nil(res.Program)
	require.Nil(res.Reflection)
	require.True(res.Bag.HasErrors())
	require.Positive(res.Bag.Count(diag.GraClassNotFound))
	require.Equal("Missing", res.Name)
}

func TestCompileCanceled(t *testing.T) {
	c := New(Options{Provider: loader.NewMapProvider(shaders())})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Compile(ctx, colored("Red"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestInvalidateRecompiles(t *testing.T) {
	require := require.New(t)
	lib := loader.NewMapProvider(shaders())
	c := New(Options{Provider: lib})
	ctx := context.Background()

	first, err := c.Compile(ctx, colored("Red"))
	require.NoError(err)
	require.Contains(string(first.Text), "float4(1, 0, 0, 1)")

	lib.Set("Red", `shader Red : ComputeColor { override float4 Compute() { return float4(0.5, 0, 0, 1); } };`)
	n, err := c.Invalidate("Red")
	require.NoError(err)
	require.Positive(n)

	second, err := c.Compile(ctx, colored("Red"))
	require.NoError(err)
	require.False(second.Failed(), "%v", second.Bag.Items())
	require.Contains(string(second.Text), "float4(0.5, 0, 0, 1)")
}

func TestStoredResults(t *testing.T) {
	require := require.New(t)
	store, err := OpenStore(t.TempDir())
	require.NoError(err)
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	lib := loader.NewMapProvider(shaders())
	fresh, err := New(Options{Provider: lib, Store: store}).Compile(ctx, colored("Green"))
	require.NoError(err)
	require.False(fresh.Failed(), "%v", fresh.Bag.Items())
	n, err := store.Len()
	require.NoError(err)
	require.Equal(1, n)

	hit, err := New(Options{Provider: lib, Store: store}).Compile(ctx, colored("Green"))
	require.NoError(err)
	require.True(hit.Cached)
	require.Nil(hit.Program)
	require.Equal(fresh.Text, hit.Text)
	require.Equal(*fresh.Reflection, *hit.Reflection)

	lib.Set("Green", `shader Green : ComputeColor { override float4 Compute() { return float4(0, 0.5, 0, 1); } };`)
	miss, err := New(Options{Provider: lib, Store: store}).Compile(ctx, colored("Green"))
	require.NoError(err)
	require.False(miss.Cached)
	require.Contains(string(miss.Text), "float4(0, 0.5, 0, 1)")
}

func TestCompileAll(t *testing.T) {
	require := require.New(t)
	c := New(Options{Provider: loader.NewMapProvider(shaders())})
	reqs := []Request{colored("Red"), colored("Green"), {Name: "broken", Source: mixin.Class("Missing")}}

	var mu sync.Mutex
	counts := make(map[Status]int)
	results, err := c.CompileAll(context.Background(), reqs, 2, func(e Event) {
		mu.Lock()
		counts[e.Status]++
		mu.Unlock()
	})
	require.NoError(err)
	require.Len(results, 3)
	require.Contains(string(results[0].Text), "float4(1, 0, 0, 1)")
	require.Contains(string(results[1].Text), "float4(0, 1, 0, 1)")
	require.True(results[2].Failed())
	require.Equal("broken", results[2].Name)
	require.Equal(map[Status]int{StatusQueued: 3, StatusRunning: 3, StatusDone: 2, StatusFailed: 1}, counts)
}

func TestStore(t *testing.T) {
	require := require.New(t)
	store, err := OpenStore(t.TempDir())
	require.NoError(err)

	payload := func() *Payload {
		return &Payload{
			Name:        "A",
			Text:        []byte("void PSMain() { }\n"),
			Diagnostics: []StoredDiagnostic{{Severity: uint8(diag.SevWarning), Code: uint16(diag.OvrStageAdded), Message: "m"}},
			Sources:     []SourceDigest{{Class: "A"}, {Class: "B"}},
		}
	}
	require.NoError(store.Put("a", payload()))
	got, ok, err := store.Get("a")
	require.NoError(err)
	require.True(ok)
	require.Equal("A", got.Name)
	require.Equal(storeSchemaVersion, got.Schema)
	bag := restoreDiagnostics(got.Diagnostics, 0)
	require.Equal(1, bag.Count(diag.OvrStageAdded))

	_, ok, err = store.Get("nope")
	require.NoError(err)
	require.False(ok)

	require.NoError(store.Put("c", &Payload{Sources: []SourceDigest{{Class: "C"}}}))
	n, err := store.Invalidate(map[string]struct{}{"B": {}})
	require.NoError(err)
	require.Equal(1, n)
	n, err = store.Len()
	require.NoError(err)
	require.Equal(1, n)

	require.NoError(store.DropAll())
	n, err = store.Len()
	require.NoError(err)
	require.Zero(n)

	require.NoError(store.Close())
	_, _, err = store.Get("a")
	require.ErrorIs(err, ErrStoreClosed)
	require.True(strings.HasSuffix(store.Path(), storeFile))
}
