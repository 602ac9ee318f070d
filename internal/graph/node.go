package graph

import "github.com/stride3d/stride-sub014/internal/mixin"

// Node mirrors a mixin.Source with its records resolved.
//
//	ClassSource:     Record
//	CompositeSource: Record (the single mixin or the synthesized class), Compositions
//	ArraySource:     Elems
type Node struct {
	Source       mixin.Source
	Macros       mixin.Macros
	Record       *mixin.Record
	Compositions []Binding
	Elems        []*Node
}

// Binding is one `key = source` assignment of a composite.
type Binding struct {
	Key  string
	Node *Node
}

// IsArray reports whether the node fills an array compose field.
func (n *Node) IsArray() bool { return n.Record == nil }

func (n *Node) walk(fn func(*Node)) {
	fn(n)
	for _, b := range n.Compositions {
		b.Node.walk(fn)
	}
	for _, e := range n.Elems {
		e.walk(fn)
	}
}
