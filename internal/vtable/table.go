package vtable

import (
	"fmt"

	"github.com/stride3d/stride-sub014/internal/ast"
)

// Slot identifies a declaration by the mixin that declares it and its member index.
// It survives renaming and cloning.
type Slot struct {
	Shader string
	Index  int
}

func (s Slot) IsValid() bool { return s.Shader != "" }

func (s Slot) String() string { return fmt.Sprintf("%s#%d", s.Shader, s.Index) }

// MethodEntry maps an overridable method to its most derived implementation.
type MethodEntry struct {
	Ref    Slot // first declaration in the inheritance chain
	Impl   Slot // current implementation
	Method *ast.Method
}

type VarEntry struct {
	Slot Slot
	Var  *ast.Variable
}

type TypeEntry struct {
	Slot    Slot
	Typedef *ast.Typedef
	Struct  *ast.Struct
}

func (e TypeEntry) Name() string {
	if e.Typedef != nil {
		return e.Typedef.Name
	}
	return e.Struct.Name
}

// Table is a virtual table: declarations in declaration order, base classes first.
type Table struct {
	Methods   []MethodEntry
	Variables []VarEntry
	Types     []TypeEntry
}

// Local builds the table of the members declared directly in shader.
func Local(shader *ast.Shader) *Table {
	t := &Table{}
	for i, m := range shader.Members {
		slot := Slot{Shader: shader.Name, Index: i}
		switch m.Kind {
		case ast.MemberMethod:
			t.Methods = append(t.Methods, MethodEntry{Ref: slot, Impl: slot, Method: m.Method})
		case ast.MemberVariable:
			t.Variables = append(t.Variables, VarEntry{Slot: slot, Var: m.Var})
		case ast.MemberTypedef:
			t.Types = append(t.Types, TypeEntry{Slot: slot, Typedef: m.Typedef})
		case ast.MemberStruct:
			t.Types = append(t.Types, TypeEntry{Slot: slot, Struct: m.Struct})
		}
	}
	return t
}

func (t *Table) Clone() *Table {
	return &Table{
		Methods:   append([]MethodEntry(nil), t.Methods...),
		Variables: append([]VarEntry(nil), t.Variables...),
		Types:     append([]TypeEntry(nil), t.Types...),
	}
}

// Method finds the entry whose base declaration is ref.
func (t *Table) Method(ref Slot) (MethodEntry, bool) {
	for _, e := range t.Methods {
		if e.Ref == ref {
			return e, true
		}
	}
	return MethodEntry{}, false
}

// ByImpl finds the entry currently implemented by impl.
func (t *Table) ByImpl(impl Slot) (MethodEntry, bool) {
	for _, e := range t.Methods {
		if e.Impl == impl {
			return e, true
		}
	}
	return MethodEntry{}, false
}

// FindMethods returns entries by name; arity < 0 matches any parameter count.
func (t *Table) FindMethods(name string, arity int) []MethodEntry {
	var out []MethodEntry
	for _, e := range t.Methods {
		if e.Method.Name == name && (arity < 0 || len(e.Method.Params) == arity) {
			out = append(out, e)
		}
	}
	return out
}

func (t *Table) findSignature(m *ast.Method) int {
	for i, e := range t.Methods {
		if e.Method.SameSignature(m) {
			return i
		}
	}
	return -1
}

func (t *Table) Variable(slot Slot) (VarEntry, bool) {
	for _, e := range t.Variables {
		if e.Slot == slot {
			return e, true
		}
	}
	return VarEntry{}, false
}

func (t *Table) FindVariables(name string) []VarEntry {
	var out []VarEntry
	for _, e := range t.Variables {
		if e.Var.Name == name {
			out = append(out, e)
		}
	}
	return out
}

func (t *Table) hasVariable(slot Slot) bool {
	_, ok := t.Variable(slot)
	return ok
}
