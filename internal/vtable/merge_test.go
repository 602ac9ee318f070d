package vtable

import (
	"testing"

	"github.com/stride3d/stride-sub014/internal/ast"
	"github.com/stride3d/stride-sub014/internal/diag"
)

func method(name string, qual ast.Qualifier, body bool, params ...string) ast.Member {
	m := &ast.Method{Name: name, Qual: qual, Return: ast.Named("float4")}
	for _, p := range params {
		m.Params = append(m.Params, ast.Param{Name: "p", Type: ast.Named(p)})
	}
	if body {
		m.Body = 1
	}
	return ast.Member{Kind: ast.MemberMethod, Method: m}
}

func field(name string, qual ast.Qualifier) ast.Member {
	return ast.Member{Kind: ast.MemberVariable, Var: &ast.Variable{Name: name, Qual: qual, Type: ast.Named("float4")}}
}

func shader(name string, members ...ast.Member) *ast.Shader {
	return &ast.Shader{Name: name, ClassName: name, Members: members}
}

func merge(t *testing.T, owner *ast.Shader, bases ...*ast.Shader) (*Table, *diag.Bag) {
	t.Helper()
	bag := diag.NewBag(0)
	m := NewMerger(owner.Name, diag.BagReporter{Bag: bag})
	for _, b := range bases {
		m.Inherit(Local(b))
	}
	m.Declare(Local(owner))
	return m.Table(), bag
}

func TestOverrideReplacesImplementationKeepsRef(t *testing.T) {
	base := shader("Base", method("Compute", 0, true))
	derived := shader("Derived", method("Compute", ast.QualOverride, true))

	table, bag := merge(t, derived, base)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %+v", bag.Items())
	}
	if len(table.Methods) != 1 {
		t.Fatalf("expected one slot, got %d", len(table.Methods))
	}
	e := table.Methods[0]
	if e.Ref != (Slot{"Base", 0}) || e.Impl != (Slot{"Derived", 0}) {
		t.Fatalf("unexpected entry ref=%s impl=%s", e.Ref, e.Impl)
	}
}

func TestMissingOverrideIsReported(t *testing.T) {
	base := shader("Base", method("Compute", 0, true))
	derived := shader("Derived", method("Compute", 0, true))

	_, bag := merge(t, derived, base)
	if bag.Count(diag.OvrMissingOverride) != 1 {
		t.Fatalf("expected missing override, got %+v", bag.Items())
	}
}

func TestOverrideWithoutBase(t *testing.T) {
	derived := shader("Derived", method("Compute", ast.QualOverride, true))
	_, bag := merge(t, derived)
	if bag.Count(diag.OvrOverrideNotFound) != 1 {
		t.Fatalf("expected override-not-found, got %+v", bag.Items())
	}
}

func TestStageQualifierPropagation(t *testing.T) {
	base := shader("Base", method("VSMain", ast.QualStage, true))
	derived := shader("Derived", method("VSMain", ast.QualOverride, true))

	_, bag := merge(t, derived, base)
	if bag.Count(diag.OvrStageAdded) != 1 || bag.HasErrors() {
		t.Fatalf("expected a single stage warning, got %+v", bag.Items())
	}
	if !derived.Members[0].Method.Qual.Has(ast.QualStage) {
		t.Fatalf("stage qualifier was not added to the override")
	}

	plain := shader("Plain", method("Compute", 0, true))
	staged := shader("Staged", method("Compute", ast.QualStage|ast.QualOverride, true))
	_, bag = merge(t, staged, plain)
	if bag.Count(diag.OvrStageMismatch) != 1 {
		t.Fatalf("expected stage mismatch, got %+v", bag.Items())
	}
}

func TestAbstractOverrideIsWarning(t *testing.T) {
	base := shader("Base", method("Compute", ast.QualAbstract, false))
	derived := shader("Derived", method("Compute", ast.QualOverride, true))

	_, bag := merge(t, derived, base)
	if bag.HasErrors() || bag.Count(diag.OvrExtraneousOverride) != 1 {
		t.Fatalf("expected one extraneous-override warning, got %+v", bag.Items())
	}
}

func TestOverloadsKeepSeparateSlots(t *testing.T) {
	base := shader("Base", method("Shade", 0, true, "float"), method("Shade", 0, true, "float4"))
	derived := shader("Derived", method("Shade", ast.QualOverride, true, "float4"))

	table, bag := merge(t, derived, base)
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %+v", bag.Items())
	}
	if got := len(table.FindMethods("Shade", 1)); got != 2 {
		t.Fatalf("expected two overloads, got %d", got)
	}
	e, ok := table.Method(Slot{"Base", 1})
	if !ok || e.Impl != (Slot{"Derived", 0}) {
		t.Fatalf("float4 overload not overridden: %+v", e)
	}
	e, _ = table.Method(Slot{"Base", 0})
	if e.Impl != (Slot{"Base", 0}) {
		t.Fatalf("float overload must stay on base: %+v", e)
	}
}

func TestSlotStabilityWithUnrelatedSibling(t *testing.T) {
	base := shader("Base", method("Compute", 0, true))
	derived := shader("Derived", method("Compute", ast.QualOverride, true))
	sibling := shader("Sibling", method("Other", 0, true), field("x", 0))

	before, _ := merge(t, derived, base)
	after, _ := merge(t, derived, base, sibling)

	b, _ := before.Method(Slot{"Base", 0})
	a, _ := after.Method(Slot{"Base", 0})
	if a.Impl != b.Impl || a.Method != b.Method {
		t.Fatalf("slot changed after adding an unrelated sibling: %+v vs %+v", a, b)
	}
}

func TestFieldHidingBaseField(t *testing.T) {
	base := shader("Base", field("Color", 0))
	derived := shader("Derived", field("Color", 0))
	_, bag := merge(t, derived, base)
	if bag.Count(diag.NamBaseNameConflict) != 1 {
		t.Fatalf("expected base name conflict, got %+v", bag.Items())
	}
}
