package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stride3d/stride-sub014/internal/mixin"
)

const sample = `
[shaders]
paths = ["shaders", "/abs/lib"]
macros = { QUALITY = "2", DEBUG = "0" }

[[effect]]
name = "Plain"
class = "ShaderBase"

[[effect]]
name = "Lit"
mixins = ["ShaderBase", "Transform<float4x4>"]
macros = { LIGHTS = "4" }

  [[effect.compose]]
  key = "color"
  class = "Red"

  [[effect.compose]]
  key = "lights"
  array = ["PointLight", "SpotLight"]
`

func write(t *testing.T, dir, text string) string {
	t.Helper()
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadManifestWalksUp(t *testing.T) {
	root := t.TempDir()
	write(t, root, sample)
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	m, ok, err := LoadManifest(nested)
	if err != nil || !ok {
		t.Fatalf("LoadManifest: ok=%v err=%v", ok, err)
	}
	paths := m.SearchPaths()
	if paths[0] != filepath.Join(m.Root, "shaders") || paths[1] != filepath.Clean("/abs/lib") {
		t.Fatalf("search paths %v", paths)
	}
	got := m.Macros()
	if len(got) != 2 || got[0].Name != "DEBUG" || got[1] != (mixin.Macro{Name: "QUALITY", Definition: "2"}) {
		t.Fatalf("macros %v", got)
	}
}

func TestEffectSources(t *testing.T) {
	m, err := ReadManifest(write(t, t.TempDir(), sample))
	if err != nil {
		t.Fatal(err)
	}
	plain, err := m.Effect("Plain")
	if err != nil {
		t.Fatal(err)
	}
	if cls, ok := plain.Source().(*mixin.ClassSource); !ok || cls.Class != "ShaderBase" {
		t.Fatalf("plain source %v", plain.Source())
	}

	lit, _ := m.Effect("Lit")
	comp, ok := lit.Source().(*mixin.CompositeSource)
	if !ok {
		t.Fatalf("lit source %T", lit.Source())
	}
	want := "mixin(ShaderBase, Transform<float4x4>) {color = Red, lights = [PointLight, SpotLight]} #LIGHTS=4"
	if comp.String() != want {
		t.Fatalf("lit source\n got %s\nwant %s", comp, want)
	}
	if _, err := m.Effect("Missing"); !errors.Is(err, ErrEffectNotFound) {
		t.Fatalf("missing effect: %v", err)
	}
}

func TestManifestValidation(t *testing.T) {
	cases := map[string]string{
		"both roots":  "[[effect]]\nname = \"X\"\nclass = \"A\"\nmixins = [\"B\"]\n",
		"no name":     "[[effect]]\nclass = \"A\"\n",
		"duplicate":   "[[effect]]\nname = \"X\"\nclass = \"A\"\n[[effect]]\nname = \"X\"\nclass = \"B\"\n",
		"bad compose": "[[effect]]\nname = \"X\"\nclass = \"A\"\n[[effect.compose]]\nkey = \"k\"\n",
		"unknown key": "[[effect]]\nname = \"X\"\nclass = \"A\"\ncolour = \"red\"\n",
	}
	for name, text := range cases {
		if _, err := ReadManifest(write(t, t.TempDir(), text)); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
	m, err := ReadManifest(write(t, t.TempDir(), "[[effect]]\nname = \"X\"\nclass = \"A\"\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Config.Shaders.Paths) != 1 || m.Config.Shaders.Paths[0] != "." {
		t.Fatalf("default paths %v", m.Config.Shaders.Paths)
	}

	// a manifest may only carry search paths; a batch then has nothing to do
	m, err = ReadManifest(write(t, t.TempDir(), "[shaders]\npaths = [\"shaders\"]\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Effects(); !errors.Is(err, ErrNoEffects) {
		t.Fatalf("expected ErrNoEffects, got %v", err)
	}
}

func TestCombineIsOrderSensitive(t *testing.T) {
	a, b := DigestOf([]byte("a")), DigestOf([]byte("b"))
	if Combine(a, b) == Combine(b, a) {
		t.Fatal("Combine ignored order")
	}
	if Combine(a, b) != Combine(a, b) {
		t.Fatal("Combine is not deterministic")
	}
	if !(Digest{}).IsZero() || a.IsZero() || len(a.String()) != 64 {
		t.Fatal("digest helpers")
	}
}
