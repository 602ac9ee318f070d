// Package graph explores a mixin source and collects the fragment records it needs.
package graph

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/stride3d/stride-sub014/internal/ast"
	"github.com/stride3d/stride-sub014/internal/dag"
	"github.com/stride3d/stride-sub014/internal/diag"
	"github.com/stride3d/stride-sub014/internal/format"
	"github.com/stride3d/stride-sub014/internal/loader"
	"github.com/stride3d/stride-sub014/internal/mixin"
	"github.com/stride3d/stride-sub014/internal/trace"
)

type Builder struct {
	Loader *loader.Loader
	Cache  *Cache
	// Replace enables substituting fresh records with equivalent analyzed ones.
	Replace bool
}

func NewBuilder(l *loader.Loader, c *Cache) *Builder {
	if c == nil {
		c = NewCache()
	}
	return &Builder{Loader: l, Cache: c, Replace: true}
}

// Result is the closed set of records needed by one source.
type Result struct {
	Root *Node
	// Records lists the closure with dependencies before dependents; records
	// blocked by a cycle come last.
	Records []*mixin.Record
	Index   dag.Index
	Topo    *dag.Topo
	// Replaced maps a fresh record key to the analyzed record used instead.
	Replaced map[mixin.Key]*mixin.Record

	byKey map[mixin.Key]*mixin.Record
}

// Lookup resolves a class reference made from inside from.
func (r *Result) Lookup(from *mixin.Record, class string, args []string) *mixin.Record {
	return r.byKey[mixin.KeyOf(class, args, from.Macros)]
}

// Get returns the record of key, following replacements.
func (r *Result) Get(key mixin.Key) *mixin.Record { return r.byKey[key] }

// Bag gathers the diagnostics of every record of the closure.
func (r *Result) Bag(max int) *diag.Bag {
	bag := diag.NewBag(max)
	for _, rec := range r.Records {
		rec.Lock()
		bag.Merge(rec.Diags)
		rec.Unlock()
	}
	return bag
}

type session struct {
	b     *Builder
	ctx   context.Context
	seen  map[mixin.Key]*mixin.Record
	order []*mixin.Record
	fresh map[*mixin.Record]bool
}

// Build loads everything src needs under macros.
func (b *Builder) Build(ctx context.Context, src mixin.Source, macros mixin.Macros) *Result {
	span, ctx := trace.Start(ctx, trace.ScopePass, "graph")
	s := &session{
		b:     b,
		ctx:   ctx,
		seen:  make(map[mixin.Key]*mixin.Record),
		fresh: make(map[*mixin.Record]bool),
	}
	root := s.source(src, macros)
	for _, r := range s.order {
		s.minimal(r)
	}

	res := &Result{Root: root, Replaced: make(map[mixin.Key]*mixin.Record)}
	if b.Replace {
		s.replace(res)
	}
	s.close(res)
	span.End(fmt.Sprintf("%d records", len(res.Records)))
	return res
}

func (s *session) source(src mixin.Source, macros mixin.Macros) *Node {
	switch src := src.(type) {
	case *mixin.ClassSource:
		return &Node{Source: src, Macros: macros, Record: s.class(mixin.Dep{Class: src.Class, Args: src.GenericArgs}, macros)}
	case *mixin.CompositeSource:
		merged := macros.Merge(src.Macros)
		n := &Node{Source: src, Macros: merged}
		if len(src.Mixins) == 1 && src.Name == "" {
			m := src.Mixins[0]
			n.Record = s.class(mixin.Dep{Class: m.Class, Args: m.GenericArgs}, merged)
		} else {
			n.Record = s.composite(src, merged)
		}
		for _, c := range src.Compositions {
			n.Compositions = append(n.Compositions, Binding{Key: c.Key, Node: s.source(c.Source, merged)})
		}
		return n
	case *mixin.ArraySource:
		n := &Node{Source: src, Macros: macros}
		for _, v := range src.Values {
			n.Elems = append(n.Elems, s.source(v, macros))
		}
		return n
	}
	panic(fmt.Sprintf("graph: unexpected source %T", src))
}

func (s *session) class(d mixin.Dep, macros mixin.Macros) *mixin.Record {
	key := mixin.KeyOf(d.Class, d.Args, macros)
	if r, ok := s.seen[key]; ok {
		return r
	}
	r := s.b.Cache.record(key, macros)
	s.seen[key] = r

	r.Lock()
	if !r.Loaded {
		s.load(r, d)
		s.fresh[r] = true
	}
	deps := r.Deps
	r.Unlock()

	for _, dep := range deps {
		s.class(dep, macros)
	}
	s.order = append(s.order, r)
	return r
}

func (s *session) load(r *mixin.Record, d mixin.Dep) {
	span, _ := trace.Start(s.ctx, trace.ScopeFragment, "load:"+r.Key.String())
	defer span.End("")

	rep := diag.BagReporter{Bag: r.Diags, Fragment: r.Name()}
	res := s.b.Loader.Load(loader.Request{
		Class:           d.Class,
		Args:            d.Args,
		Macros:          r.Macros,
		AutoInstantiate: !d.Base,
	}, rep)
	r.Loaded = true
	r.Hash = res.Hash
	if res.Shader == nil {
		return
	}
	r.Shader = res.Shader
	r.Instantiated = res.Instantiated
	r.Deps = res.Deps
	r.Structure = structure(r.Shader)
}

// composite synthesizes the class mixing several classes together.
func (s *session) composite(src *mixin.CompositeSource, macros mixin.Macros) *mixin.Record {
	name := src.RootName()
	key := mixin.KeyOf(name, nil, macros)
	if r, ok := s.seen[key]; ok {
		return r
	}
	r := s.b.Cache.record(key, macros)
	s.seen[key] = r

	r.Lock()
	if !r.Loaded {
		sh := &ast.Shader{Name: name, ClassName: name, Tree: ast.NewTree()}
		for _, m := range src.Mixins {
			sh.Bases = append(sh.Bases, ast.BaseRef{Name: m.Class, Args: m.GenericArgs})
			r.Deps = append(r.Deps, mixin.Dep{Class: m.Class, Args: m.GenericArgs, Base: true})
		}
		r.Shader = sh
		r.Instantiated = true
		r.Synthetic = true
		r.Loaded = true
		r.Structure = structure(sh)
		s.fresh[r] = true
	}
	deps := r.Deps
	r.Unlock()

	for _, dep := range deps {
		s.class(dep, macros)
	}
	s.order = append(s.order, r)
	return r
}

// minimal computes the transitive dependency closure of r.
func (s *session) minimal(r *mixin.Record) {
	var out []*mixin.Record
	visited := map[*mixin.Record]bool{r: true}
	var visit func(*mixin.Record)
	visit = func(x *mixin.Record) {
		for _, d := range x.Deps {
			dep := s.seen[x.DepKey(d)]
			if dep == nil || visited[dep] {
				continue
			}
			visited[dep] = true
			out = append(out, dep)
			visit(dep)
		}
	}
	r.Lock()
	visit(r)
	r.Minimal = out
	r.Unlock()
}

func structure(sh *ast.Shader) [32]byte {
	return sha256.Sum256(format.Shader(sh, format.Options{}))
}
