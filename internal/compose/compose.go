// Package compose resolves the compose fields of a root fragment to concrete
// sub-fragments: explicit assignments from the source, then default instances
// of the declared types, breadth first.
package compose

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/stride3d/stride-sub014/internal/analysis"
	"github.com/stride3d/stride-sub014/internal/diag"
	"github.com/stride3d/stride-sub014/internal/graph"
	"github.com/stride3d/stride-sub014/internal/mixin"
	"github.com/stride3d/stride-sub014/internal/source"
	"github.com/stride3d/stride-sub014/internal/trace"
	"github.com/stride3d/stride-sub014/internal/vtable"
)

// DefaultMaxDepth bounds the nesting of default compositions.
const DefaultMaxDepth = 32

var (
	ErrNotComposed  = errors.New("compose field has no composition")
	ErrIndexRange   = errors.New("compose array index out of range")
	ErrArrayElement = errors.New("compose array used without an index")
)

// Instance is one occurrence of a fragment in the composition tree.
type Instance struct {
	Fragment *mixin.Fragment
	// Lineage is Fragment's inheritance followed by Fragment; entries owning
	// compose arrays are replaced by copies specialized to the array sizes.
	Lineage []*mixin.Fragment
	// Slots maps a compose field of the lineage to what fills it.
	Slots  map[vtable.Slot][]*Instance
	Parent *Instance
	// Path names the instance from the root: "color", "layers[1].inner".
	Path  string
	Depth int
}

// Top is the most derived fragment of the lineage, possibly specialized.
func (i *Instance) Top() *mixin.Fragment { return i.Lineage[len(i.Lineage)-1] }

// Owner returns the lineage fragment that declares slot.
func (i *Instance) Owner(slot vtable.Slot) *mixin.Fragment {
	for _, f := range i.Lineage {
		if f.Name == slot.Shader {
			return f
		}
	}
	return nil
}

// Walk visits i and every instance below it, parents first.
func (i *Instance) Walk(fn func(*Instance)) {
	fn(i)
	for _, v := range i.PluginVars() {
		for _, child := range i.Slots[v.Slot] {
			child.Walk(fn)
		}
	}
}

// PluginVars lists the compose fields of the lineage in declaration order.
func (i *Instance) PluginVars() []vtable.VarEntry {
	return i.Fragment.PluginVars()
}

// Follow walks path from i. An array hop needs an element index unless the
// array holds exactly one instance.
func Follow(i *Instance, path []mixin.Hop) (*Instance, error) {
	cur := i
	for _, h := range path {
		items, ok := cur.Slots[h.Var]
		if !ok || len(items) == 0 && h.Elem == mixin.NoElem {
			return nil, fmt.Errorf("%s.%s: %w", cur.Path, h.Var, ErrNotComposed)
		}
		switch {
		case h.Elem != mixin.NoElem:
			if h.Elem < 0 || h.Elem >= len(items) {
				return nil, fmt.Errorf("%s[%d] of %d: %w", h.Var, h.Elem, len(items), ErrIndexRange)
			}
			cur = items[h.Elem]
		case len(items) == 1:
			cur = items[0]
		default:
			return nil, fmt.Errorf("%s: %w", h.Var, ErrArrayElement)
		}
	}
	return cur, nil
}

type Resolver struct {
	Analyzer *analysis.Analyzer
	MaxDepth int
}

func NewResolver(a *analysis.Analyzer) *Resolver {
	return &Resolver{Analyzer: a, MaxDepth: DefaultMaxDepth}
}

type pending struct {
	inst *Instance
	node *graph.Node
}

// Resolve builds the instance tree of root. Problems go to r; a nil result
// means the root itself could not be instantiated.
func (c *Resolver) Resolve(ctx context.Context, root *graph.Node, r diag.Reporter) *Instance {
	span, _ := trace.Start(ctx, trace.ScopePass, "compose")
	n := 0
	defer func() { span.End(strconv.Itoa(n) + " instances") }()

	if root == nil || root.Record == nil || root.Record.Fragment == nil {
		return nil
	}
	top := &Instance{Fragment: root.Record.Fragment}
	queue := []pending{{inst: top, node: root}}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		n++
		queue = append(queue, c.fill(p.inst, p.node, r)...)
		c.specialize(p.inst)
	}
	return top
}

// fill assigns every compose field of inst and returns the children to fill next.
func (c *Resolver) fill(inst *Instance, node *graph.Node, r diag.Reporter) []pending {
	inst.Slots = make(map[vtable.Slot][]*Instance)
	vars := inst.PluginVars()
	var next []pending

	if node != nil {
		for _, b := range node.Compositions {
			v, ok := matchKey(inst, vars, b.Key, r)
			if !ok {
				continue
			}
			if b.Node.IsArray() {
				items := make([]*Instance, 0, len(b.Node.Elems))
				for k, e := range b.Node.Elems {
					child := c.child(inst, e, fmt.Sprintf("%s[%d]", v.Var.Name, k), r)
					if child != nil {
						items = append(items, child)
						next = append(next, pending{inst: child, node: e})
					}
				}
				inst.Slots[v.Slot] = items
				continue
			}
			if child := c.child(inst, b.Node, v.Var.Name, r); child != nil {
				inst.Slots[v.Slot] = []*Instance{child}
				next = append(next, pending{inst: child, node: b.Node})
			}
		}
	}

	for _, v := range vars {
		if _, done := inst.Slots[v.Slot]; done || v.Var.StageInit {
			continue
		}
		if v.Var.Type.IsArray() {
			inst.Slots[v.Slot] = nil
			continue
		}
		decl := inst.Fragment.PluginFragment(v.Slot)
		if decl == nil {
			continue
		}
		if inst.Depth+1 > c.MaxDepth {
			diag.Errorf(r, diag.LnkCompositionDepth, v.Var.Span,
				"default composition of %s.%s nests deeper than %d", inst.path(), v.Var.Name, c.MaxDepth)
			continue
		}
		child := &Instance{Fragment: decl, Parent: inst, Path: join(inst.Path, v.Var.Name), Depth: inst.Depth + 1}
		inst.Slots[v.Slot] = []*Instance{child}
		next = append(next, pending{inst: child})
	}
	return next
}

func (c *Resolver) child(parent *Instance, node *graph.Node, name string, r diag.Reporter) *Instance {
	if node.Record == nil || node.Record.Fragment == nil {
		return nil
	}
	if parent.Depth+1 > c.MaxDepth {
		diag.Errorf(r, diag.LnkCompositionDepth, source.Span{}, "composition %s nests deeper than %d", join(parent.Path, name), c.MaxDepth)
		return nil
	}
	return &Instance{Fragment: node.Record.Fragment, Parent: parent, Path: join(parent.Path, name), Depth: parent.Depth + 1}
}

// matchKey finds the only compose field of inst named key.
func matchKey(inst *Instance, vars []vtable.VarEntry, key string, r diag.Reporter) (vtable.VarEntry, bool) {
	var found []vtable.VarEntry
	for _, v := range vars {
		if v.Var.Name == key {
			found = append(found, v)
		}
	}
	switch len(found) {
	case 0:
		diag.Warnf(r, diag.LnkCompositionNotFound, inst.Fragment.Shader.Span,
			"%s has no compose field %s", inst.Fragment.Name, key)
		return vtable.VarEntry{}, false
	case 1:
		return found[0], true
	}
	b := diag.ReportError(r, diag.LnkAmbiguousComposition, inst.Fragment.Shader.Span,
		fmt.Sprintf("composition %s of %s matches %d compose fields", key, inst.Fragment.Name, len(found)))
	for _, v := range found {
		b.WithNote(v.Var.Span, "declared in "+v.Slot.Shader)
	}
	b.Emit()
	return vtable.VarEntry{}, false
}

// specialize sizes the compose arrays of the lineage from the filled slots.
func (c *Resolver) specialize(inst *Instance) {
	lineage := inst.Fragment.Lineage()
	inst.Lineage = make([]*mixin.Fragment, len(lineage))
	for k, f := range lineage {
		dims := make(map[int]int)
		for idx := range f.Plugins {
			v := f.Shader.Variable(idx)
			if v == nil || !v.Type.IsArray() {
				continue
			}
			dims[idx] = len(inst.Slots[vtable.Slot{Shader: f.Name, Index: idx}])
		}
		if len(dims) > 0 && c.Analyzer != nil {
			f = c.Analyzer.Specialize(f, dims)
		}
		inst.Lineage[k] = f
	}
}

func (i *Instance) path() string {
	if i.Path == "" {
		return i.Fragment.Name
	}
	return i.Path
}

func join(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}
