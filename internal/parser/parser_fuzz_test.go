package parser

import (
	"testing"

	"github.com/stride3d/stride-sub014/internal/diag"
	"github.com/stride3d/stride-sub014/internal/format"
	"github.com/stride3d/stride-sub014/internal/mixin"
	"github.com/stride3d/stride-sub014/internal/source"
)

const maxFuzzInput = 1 << 14

func addSeeds(f *testing.F) {
	f.Add([]byte(colorShader))
	f.Add([]byte("shader A { float4 Compute() { return 1; } };"))
	f.Add([]byte("shader B : A { override float4 Compute() { return base.Compute() * 2; } };"))
	f.Add([]byte("#if LIGHTS > 1\nshader C {};\n#else\nshader D {};\n#endif\n"))
	f.Add([]byte("shader E { stage stream float4 P : SV_Position; stage void VSMain() { streams.P = 0; } };"))
	f.Add([]byte("shader {"))
	f.Add([]byte("#if X\nshader F {};"))
	f.Add([]byte(""))
}

// FuzzParse checks that any input either parses or reports an error, and
// that a parsed class can be printed.
func FuzzParse(f *testing.F) {
	addSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		if len(input) > maxFuzzInput {
			input = input[:maxFuzzInput]
		}
		fs := source.NewFileSet()
		file := fs.Get(fs.AddVirtual("fuzz.sdsl", append([]byte(nil), input...)))
		bag := diag.NewBag(128)
		macros := mixin.Macros{{Name: "LIGHTS", Definition: "2"}}
		sh := Parse(file, macros, diag.BagReporter{Bag: bag})
		if sh == nil {
			if !bag.HasErrors() {
				t.Fatalf("nil shader without an error for %q", input)
			}
			return
		}
		_ = format.Shader(sh, format.Options{})
	})
}
