package mixin

import (
	"github.com/stride3d/stride-sub014/internal/ast"
	"github.com/stride3d/stride-sub014/internal/source"
	"github.com/stride3d/stride-sub014/internal/vtable"
)

type PoolKind uint8

const (
	PoolClass     PoolKind = iota // members of the fragment's own lineage
	PoolStatic                    // static members and `Class.Member` outside the lineage
	PoolExtern                    // members reached through compose fields
	PoolStageInit                 // members reached through `= stage` compose fields
)

var poolNames = [...]string{"class", "static", "extern", "stageinit"}

func (p PoolKind) String() string {
	if int(p) < len(poolNames) {
		return poolNames[p]
	}
	return "pool?"
}

type RefKind uint8

const (
	RefVariable RefKind = iota
	RefMethod
)

// NoElem marks a hop through a non-array compose field.
const NoElem = -1

// Hop is one step through a compose field; Elem selects an array element.
type Hop struct {
	Var  vtable.Slot
	Elem int
}

// Ref is the resolved meaning of one expression of a method body.
//
// For variables Target is the field slot. For methods it is the base declaration
// slot (vtable.MethodEntry.Ref), so the call can be re-dispatched against any
// lineage that contains that declaration.
type Ref struct {
	Kind   RefKind
	Pool   PoolKind
	Target vtable.Slot
	Base   bool   // `base.M()`
	Class  string // static and stage-init: the class that owns Target's lineage
	Path   []Hop  // extern and stage-init: compose fields crossed, outermost first
	Name   string
	Arity  int
	Span   source.Span
}

// Pools collects every reference of one fragment keyed by expression id.
type Pools struct {
	Refs  map[ast.ExprID]Ref
	order []ast.ExprID
}

func NewPools() *Pools {
	return &Pools{Refs: make(map[ast.ExprID]Ref)}
}

func (p *Pools) Add(id ast.ExprID, ref Ref) {
	if _, ok := p.Refs[id]; !ok {
		p.order = append(p.order, id)
	}
	p.Refs[id] = ref
}

func (p *Pools) Get(id ast.ExprID) (Ref, bool) {
	ref, ok := p.Refs[id]
	return ref, ok
}

// Each visits references in insertion order.
func (p *Pools) Each(fn func(ast.ExprID, Ref)) {
	for _, id := range p.order {
		fn(id, p.Refs[id])
	}
}

// Count returns how many references fall into pool.
func (p *Pools) Count(pool PoolKind) int {
	n := 0
	for _, r := range p.Refs {
		if r.Pool == pool {
			n++
		}
	}
	return n
}
