package mixin

import (
	"github.com/stride3d/stride-sub014/internal/ast"
	"github.com/stride3d/stride-sub014/internal/diag"
	"github.com/stride3d/stride-sub014/internal/vtable"
)

type Status uint8

const (
	StatusNone Status = iota
	StatusInProgress
	StatusComplete
	StatusError
	StatusCyclic
)

var statusNames = [...]string{"none", "in-progress", "complete", "error", "cyclic"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "status?"
}

// Done reports whether the pass has finished, successfully or not.
func (s Status) Done() bool { return s >= StatusComplete }

type Pass uint8

const (
	PassType Pass = iota
	PassDependency
	PassVTable
	PassSemantic
	PassCount
)

var passNames = [PassCount]string{"type", "dependency", "vtable", "semantic"}

func (p Pass) String() string {
	if p < PassCount {
		return passNames[p]
	}
	return "pass?"
}

// Fragment is the analyzed form of one class instantiation.
type Fragment struct {
	Name   string
	Shader *ast.Shader

	Local  *vtable.Table
	Merged *vtable.Table

	Bases []*Fragment
	// Inheritance is the linearized list of all bases, least derived first, without the fragment itself.
	Inheritance []*Fragment

	// Plugins maps the member index of a compose field to the fragment of its declared class.
	Plugins map[int]*Fragment
	// StageInits is the subset of Plugins initialized with `= stage`.
	StageInits map[int]*Fragment
	// Statics are classes referenced as `Class.Member` from outside the inheritance.
	Statics []*Fragment

	Pools *Pools

	Status [PassCount]Status

	StageOnly bool
	// Names declared by several unrelated bases; a bare reference to them is ambiguous.
	ConflictVars    map[string][]vtable.Slot
	ConflictMethods map[string][]vtable.Slot

	// Dims holds the patched sizes of compose arrays in a specialized copy.
	Dims map[int]int
	// Origin is the fragment a specialized copy was made from.
	Origin *Fragment

	Diags *diag.Bag
}

func NewFragment(shader *ast.Shader) *Fragment {
	return &Fragment{
		Name:       shader.Name,
		Shader:     shader,
		Plugins:    make(map[int]*Fragment),
		StageInits: make(map[int]*Fragment),
		Pools:      NewPools(),
		Diags:      diag.NewBag(0),
	}
}

// Failed reports whether any pass ended in error or on a cycle.
func (f *Fragment) Failed() bool {
	for _, s := range f.Status {
		if s == StatusError || s == StatusCyclic {
			return true
		}
	}
	return false
}

// Complete reports whether every pass finished successfully.
func (f *Fragment) Complete() bool {
	for _, s := range f.Status {
		if s != StatusComplete {
			return false
		}
	}
	return true
}

// Lineage is the inheritance list followed by the fragment itself.
func (f *Fragment) Lineage() []*Fragment {
	out := make([]*Fragment, 0, len(f.Inheritance)+1)
	out = append(out, f.Inheritance...)
	return append(out, f)
}

// Inherits reports whether name is the fragment itself or one of its bases.
func (f *Fragment) Inherits(name string) bool {
	if f.Name == name || f.Shader.ClassName == name {
		return true
	}
	for _, b := range f.Inheritance {
		if b.Name == name || b.Shader.ClassName == name {
			return true
		}
	}
	return false
}

// PluginVars lists the compose fields of the whole lineage, in declaration order.
func (f *Fragment) PluginVars() []vtable.VarEntry {
	var out []vtable.VarEntry
	for _, v := range f.Merged.Variables {
		if v.Var.IsPlugin() {
			out = append(out, v)
		}
	}
	return out
}

// Owner finds the fragment of the lineage that declares slot.
func (f *Fragment) Owner(slot vtable.Slot) *Fragment {
	for _, x := range f.Lineage() {
		if x.Name == slot.Shader {
			return x
		}
	}
	return nil
}

// PluginFragment returns the declared class of a compose field slot anywhere in the lineage.
func (f *Fragment) PluginFragment(slot vtable.Slot) *Fragment {
	owner := f.Owner(slot)
	if owner == nil {
		return nil
	}
	return owner.Plugins[slot.Index]
}
