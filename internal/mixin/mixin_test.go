package mixin

import "testing"

func TestMacrosMergeLastWriterWins(t *testing.T) {
	parent := Macros{{"A", "1"}, {"B", "2"}}
	child := Macros{{"B", "3"}, {"C", "4"}}

	got := parent.Merge(child)
	want := Macros{{"A", "1"}, {"B", "3"}, {"C", "4"}}
	if len(got) != len(want) {
		t.Fatalf("merge = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("merge[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if def, _ := got.Lookup("B"); def != "3" {
		t.Fatalf("lookup B = %q", def)
	}
}

func TestMacrosKeyIgnoresOrderAndShadowing(t *testing.T) {
	a := Macros{{"X", "1"}, {"Y", "2"}}
	b := Macros{{"Y", "0"}, {"X", "1"}, {"Y", "2"}}
	if a.Key() != b.Key() || !a.Equal(b) {
		t.Fatalf("keys differ: %q vs %q", a.Key(), b.Key())
	}
	if (Macros{{"X", "1"}}).Key() == a.Key() {
		t.Fatalf("different sets must not share a key")
	}
}

func TestKeyNames(t *testing.T) {
	k := KeyOf("ComputeColorConst", []string{"1", "2"}, Macros{{"M", "1"}})
	if k.Name() != "ComputeColorConst<1,2>" {
		t.Fatalf("unexpected name %q", k.Name())
	}
	if k == KeyOf("ComputeColorConst", []string{"1", "2"}, nil) {
		t.Fatalf("macros must be part of the key")
	}
}

func TestSourceStrings(t *testing.T) {
	src := Composite(Class("Root"), Class("Extra")).
		Compose("color", Class("ComputeColorConst", "1")).
		Compose("layers", Array(Class("A"), Class("B"))).
		WithMacros(Macro{"DEBUG", "1"})

	want := "mixin(Root, Extra) {color = ComputeColorConst<1>, layers = [A, B]} #DEBUG=1"
	if got := src.String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
	if src.RootName() != "Root+Extra" {
		t.Fatalf("RootName() = %q", src.RootName())
	}
}

func TestParseMacro(t *testing.T) {
	if m := ParseMacro("A=b c"); m.Name != "A" || m.Definition != "b c" {
		t.Fatalf("unexpected %+v", m)
	}
	if m := ParseMacro("FLAG"); m.Definition != "1" {
		t.Fatalf("bare macro must default to 1, got %+v", m)
	}
}

func TestParseClass(t *testing.T) {
	cases := []struct {
		in    string
		class string
		args  []string
	}{
		{"Red", "Red", nil},
		{" ComputeColorTexture<Texture0, TEXCOORD0> ", "ComputeColorTexture", []string{"Texture0", "TEXCOORD0"}},
		{"Tint<float4(1,0,0,1)>", "Tint", []string{"float4(1,0,0,1)"}},
		{"Wrap<Inner<a,b>,c>", "Wrap", []string{"Inner<a,b>", "c"}},
	}
	for _, c := range cases {
		got := ParseClass(c.in)
		if got.Class != c.class || len(got.GenericArgs) != len(c.args) {
			t.Fatalf("ParseClass(%q) = %+v", c.in, got)
		}
		for i := range c.args {
			if got.GenericArgs[i] != c.args[i] {
				t.Fatalf("ParseClass(%q) args = %q", c.in, got.GenericArgs)
			}
		}
	}
}
