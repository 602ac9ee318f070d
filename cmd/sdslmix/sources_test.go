package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stride3d/stride-sub014/internal/mixin"
	"github.com/stride3d/stride-sub014/internal/project"
)

func TestParseCompositions(t *testing.T) {
	comps, err := parseCompositions([]string{
		"color = Red",
		"lights=[PointLight, SpotLight<float3, 2>]",
		"lights=AreaLight",
		"shadow=A",
		"shadow=B",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(comps) != 3 {
		t.Fatalf("got %d compositions", len(comps))
	}
	if comps[0].Key != "color" || comps[0].Source.String() != "Red" {
		t.Fatalf("color = %+v", comps[0])
	}
	lights, ok := comps[1].Source.(*mixin.ArraySource)
	if !ok || len(lights.Values) != 3 {
		t.Fatalf("lights = %v", comps[1].Source)
	}
	spot := lights.Values[1].(*mixin.ClassSource)
	if spot.Class != "SpotLight" || len(spot.GenericArgs) != 2 || spot.GenericArgs[1] != "2" {
		t.Fatalf("spot = %+v", spot)
	}
	if got := comps[2].Source.String(); got != "[A, B]" {
		t.Fatalf("repeated key should build an array, got %s", got)
	}

	for _, bad := range []string{"Red", "=Red", "color="} {
		if _, err := parseCompositions([]string{bad}); err == nil {
			t.Errorf("%q: expected an error", bad)
		}
	}
}

func TestResolveRoot(t *testing.T) {
	comps, err := parseCompositions([]string{"color=Red"})
	if err != nil {
		t.Fatal(err)
	}
	name, src, err := resolveRoot(nil, "Colored", comps)
	if err != nil {
		t.Fatal(err)
	}
	if name != "Colored" || src.String() != "mixin(Colored) {color = Red}" {
		t.Fatalf("got %s %s", name, src)
	}

	dir := t.TempDir()
	manifest := `[[effect]]
name = "Lit"
class = "Colored"

[[effect]]
name = "Mixed"
mixins = ["ShaderBase", "Colored"]
`
	path := filepath.Join(dir, project.ManifestName)
	if err := os.WriteFile(path, []byte(manifest), 0o600); err != nil {
		t.Fatal(err)
	}
	m, err := project.ReadManifest(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, src, err = resolveRoot(m, "Lit", nil); err != nil || src.String() != "Colored" {
		t.Fatalf("effect source %v, %v", src, err)
	}
	if _, src, err = resolveRoot(m, "Mixed", comps); err != nil || src.String() != "mixin(ShaderBase, Colored) {color = Red}" {
		t.Fatalf("effect with compositions %v, %v", src, err)
	}
	if _, src, err = resolveRoot(m, "Plain<4>", nil); err != nil || src.(*mixin.ClassSource).Class != "Plain" {
		t.Fatalf("unknown effect should fall back to a class, got %v, %v", src, err)
	}
}

func TestProgressMode(t *testing.T) {
	for in, want := range map[string]progressMode{"": progressAuto, "ON": progressOn, " off ": progressOff} {
		got, err := parseProgressMode(in)
		if err != nil || got != want {
			t.Errorf("parseProgressMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := parseProgressMode("sometimes"); err == nil || !strings.Contains(err.Error(), "--ui") {
		t.Fatalf("expected an --ui error, got %v", err)
	}

	cases := []struct {
		mode       progressMode
		quiet, tty bool
		want       bool
	}{
		{progressAuto, false, true, true},
		{progressAuto, false, false, false},
		{progressOn, false, false, true},
		{progressOn, true, true, false},
		{progressOff, false, true, false},
	}
	for _, c := range cases {
		if got := c.mode.live(c.quiet, c.tty); got != c.want {
			t.Errorf("%v.live(quiet=%v, tty=%v) = %v", c.mode, c.quiet, c.tty, got)
		}
	}
}
