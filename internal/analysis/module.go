package analysis

import (
	"fmt"

	"github.com/stride3d/stride-sub014/internal/diag"
	"github.com/stride3d/stride-sub014/internal/mixin"
	"github.com/stride3d/stride-sub014/internal/vtable"
)

// build creates the fragment of r and its local table. It runs under the
// record lock only; nothing here reads another record.
func (a *Analyzer) build(r *mixin.Record) {
	r.Lock()
	defer r.Unlock()
	if r.Fragment != nil || r.Shader == nil {
		return
	}
	f := mixin.NewFragment(r.Shader)
	f.Diags = r.Diags
	f.Status[mixin.PassType] = mixin.StatusInProgress
	f.Local = vtable.Local(r.Shader)

	c := &errorCounter{next: reporter(f)}
	checkLocalNames(f, c)
	for _, v := range f.Local.Variables {
		if v.Var.IsPlugin() && len(v.Var.Type.Dims) > 1 {
			diag.Errorf(c, diag.StrMultidimCompositionArray, v.Var.Span,
				"compose field %s of %s has %d dimensions; only one is allowed", v.Var.Name, f.Name, len(v.Var.Type.Dims))
		}
	}
	finish(f, mixin.PassType, c)
	r.Fragment = f
}

// checkLocalNames reports duplicates among the fragment's own declarations.
func checkLocalNames(f *mixin.Fragment, r diag.Reporter) {
	local := f.Local
	for i, m := range local.Methods {
		for j, o := range local.Methods {
			if i != j && m.Method.SameSignature(o.Method) {
				diag.ReportError(r, diag.NamFunctionRedefined, m.Method.Span,
					fmt.Sprintf("method %s is defined more than once in %s", m.Method.Signature(), f.Name)).
					WithNote(o.Method.Span, "other definition").
					Emit()
				break
			}
		}
		for _, v := range local.Variables {
			if v.Var.Name == m.Method.Name {
				diag.Errorf(r, diag.NamFunctionVariableConflict, m.Method.Span,
					"method %s in %s has the name of a field", m.Method.Name, f.Name)
				break
			}
		}
	}
	for i, v := range local.Variables {
		for j, o := range local.Variables {
			if i != j && v.Var.Name == o.Var.Name {
				diag.ReportError(r, diag.NamVariableRedefined, v.Var.Span,
					fmt.Sprintf("field %s is declared more than once in %s", v.Var.Name, f.Name)).
					WithNote(o.Var.Span, "other declaration").
					Emit()
				break
			}
		}
	}
}
