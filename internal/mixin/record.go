package mixin

import (
	"strings"
	"sync"

	"github.com/stride3d/stride-sub014/internal/ast"
	"github.com/stride3d/stride-sub014/internal/diag"
)

// Dep is a class referenced by a shader: a base, a compose field type, a
// generic argument naming a class, or the owner of a `Class.Member` reference.
type Dep struct {
	Class string
	Args  []string
	Base  bool
}

func (d Dep) Name() string { return ast.InstanceName(d.Class, d.Args) }

// Key identifies a fragment record: class, generic arguments and effective macros.
type Key struct {
	Class    string
	Generics string
	Macros   string
}

func KeyOf(class string, generics []string, macros Macros) Key {
	return Key{Class: class, Generics: strings.Join(generics, ","), Macros: macros.Key()}
}

// Name is the instantiated class name.
func (k Key) Name() string {
	if k.Generics == "" {
		return k.Class
	}
	return k.Class + "<" + k.Generics + ">"
}

func (k Key) String() string {
	if k.Macros == "" {
		return k.Name()
	}
	return k.Name() + " #" + k.Macros
}

// Record is the cached unit of loading and analysis.
type Record struct {
	Key    Key
	Macros Macros

	mu sync.Mutex

	Shader       *ast.Shader
	Hash         [32]byte // raw source
	Structure    [32]byte // printed instantiated AST
	Instantiated bool
	Synthetic    bool // built from a composite, not loaded from text
	Loaded       bool

	// Deps are the classes referenced directly, resolved under the record's macros.
	Deps []Dep
	// Minimal is the transitive closure of Deps as records (excluding the record itself).
	Minimal []*Record

	Fragment *Fragment
	Diags    *diag.Bag
}

func NewRecord(key Key, macros Macros) *Record {
	return &Record{Key: key, Macros: macros, Diags: diag.NewBag(0)}
}

// Lock serializes the build of this record.
func (r *Record) Lock()   { r.mu.Lock() }
func (r *Record) Unlock() { r.mu.Unlock() }

func (r *Record) Name() string { return r.Key.Name() }

// DepKey is the record key of a dependency.
func (r *Record) DepKey(d Dep) Key { return KeyOf(d.Class, d.Args, r.Macros) }

// Classes lists every class name this record depends on, itself included.
func (r *Record) Classes() map[string]struct{} {
	out := map[string]struct{}{r.Key.Class: {}}
	for _, m := range r.Minimal {
		out[m.Key.Class] = struct{}{}
	}
	return out
}

// Failed reports whether loading failed or analysis ended in error.
func (r *Record) Failed() bool {
	if r.Shader == nil || r.Diags.HasErrors() {
		return true
	}
	return r.Fragment != nil && r.Fragment.Failed()
}
