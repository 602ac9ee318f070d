// Package driver compiles mixin sources to flattened programs, sharing the
// loader and fragment caches between requests.
package driver

import (
	"context"
	"slices"
	"strings"

	"github.com/stride3d/stride-sub014/internal/analysis"
	"github.com/stride3d/stride-sub014/internal/ast"
	"github.com/stride3d/stride-sub014/internal/compose"
	"github.com/stride3d/stride-sub014/internal/diag"
	"github.com/stride3d/stride-sub014/internal/format"
	"github.com/stride3d/stride-sub014/internal/graph"
	"github.com/stride3d/stride-sub014/internal/loader"
	"github.com/stride3d/stride-sub014/internal/mixer"
	"github.com/stride3d/stride-sub014/internal/mixin"
	"github.com/stride3d/stride-sub014/internal/observ"
	"github.com/stride3d/stride-sub014/internal/project"
	"github.com/stride3d/stride-sub014/internal/source"
	"github.com/stride3d/stride-sub014/internal/streams"
	"github.com/stride3d/stride-sub014/internal/trace"
)

type Options struct {
	Provider loader.SourceProvider
	// Macros apply to every request; request macros win.
	Macros         mixin.Macros
	CacheSize      int
	MaxDiagnostics int
	// Store, when set, persists successful results.
	Store *Store
	// NoReplace disables substituting equivalent analyzed records.
	NoReplace bool
}

// Request names one root to compile.
type Request struct {
	// Name labels the result; the source text is used when empty.
	Name   string
	Source mixin.Source
	Macros mixin.Macros
}

func (r Request) label() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Source.String()
}

// Result of one compilation. Program and Text are nil when the compilation
// failed; Program is also nil for a result served from the store.
type Result struct {
	Name       string
	Program    *ast.Program
	Text       []byte
	Reflection *Reflection
	Bag        *diag.Bag
	Sources    []SourceDigest
	Cached     bool
	Timing     observ.Report
}

// Failed reports whether the compilation produced no program.
func (r *Result) Failed() bool { return r.Text == nil }

// Compiler is safe for concurrent use.
type Compiler struct {
	opts     Options
	loader   *loader.Loader
	cache    *graph.Cache
	analyzer *analysis.Analyzer
	store    *Store
}

func New(opts Options) *Compiler {
	return &Compiler{
		opts:     opts,
		loader:   loader.New(opts.Provider, nil, opts.CacheSize),
		cache:    graph.NewCache(),
		analyzer: analysis.New(),
		store:    opts.Store,
	}
}

// Files holds every source loaded so far; diagnostic spans point into it.
func (c *Compiler) Files() *source.FileSet { return c.loader.Files() }

func (c *Compiler) macros(req Request) mixin.Macros { return c.opts.Macros.Merge(req.Macros) }

func (c *Compiler) storeKey(req Request) string {
	return req.Source.String() + "|" + c.macros(req).Key()
}

// Compile runs the whole pipeline for req. Compilation problems are in the
// result's Bag; the error is only set when ctx is done.
func (c *Compiler) Compile(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	span, ctx := trace.Start(ctx, trace.ScopeDriver, "compile:"+req.label())

	key := c.storeKey(req)
	if res := c.lookup(key, req); res != nil {
		trace.Point(ctx, trace.ScopePass, "store", "hit")
		span.End("stored")
		return res, nil
	}

	res := c.run(ctx, req)
	if !res.Failed() && c.store != nil {
		err := c.store.Put(key, &Payload{
			Name:        res.Name,
			Text:        res.Text,
			Reflection:  *res.Reflection,
			Diagnostics: storeDiagnostics(res.Bag),
			Sources:     res.Sources,
		})
		if err != nil {
			diag.Warnf(diag.BagReporter{Bag: res.Bag}, diag.IOCache, source.Span{}, "result not stored: %v", err)
		}
	}
	if res.Failed() {
		span.End("failed")
	} else {
		span.End("ok")
	}
	return res, ctx.Err()
}

// lookup returns the stored result of key when none of its sources changed.
func (c *Compiler) lookup(key string, req Request) *Result {
	if c.store == nil {
		return nil
	}
	p, ok, err := c.store.Get(key)
	if err != nil || !ok {
		return nil
	}
	for _, src := range p.Sources {
		d, err := c.loader.Digest(src.Class)
		if err != nil || project.Digest(d) != src.Digest {
			_ = c.store.Delete(key)
			return nil
		}
	}
	refl := p.Reflection
	return &Result{
		Name:       req.label(),
		Text:       p.Text,
		Reflection: &refl,
		Bag:        restoreDiagnostics(p.Diagnostics, c.opts.MaxDiagnostics),
		Sources:    p.Sources,
		Cached:     true,
	}
}

func (c *Compiler) run(ctx context.Context, req Request) *Result {
	timer := observ.NewTimer()
	res := &Result{Name: req.label()}
	defer func() {
		res.Timing = timer.Report()
		res.Bag.Dedup()
		res.Bag.Sort()
	}()

	phase := timer.Begin("graph")
	b := graph.NewBuilder(c.loader, c.cache)
	b.Replace = !c.opts.NoReplace
	g := b.Build(ctx, req.Source, c.macros(req))
	timer.End(phase, "")

	phase = timer.Begin("analysis")
	c.analyzer.Analyze(ctx, g, g.Records)
	g.ReportBroken()
	timer.End(phase, "")

	res.Bag = g.Bag(c.opts.MaxDiagnostics)
	res.Sources = sources(g.Records)
	if res.Bag.HasErrors() {
		return res
	}
	rep := diag.BagReporter{Bag: res.Bag}

	phase = timer.Begin("compose")
	inst := compose.NewResolver(c.analyzer).Resolve(ctx, g.Root, rep)
	if inst != nil {
		res.Bag.Merge(specializedDiags(inst))
	}
	timer.End(phase, "")
	if inst == nil || res.Bag.HasErrors() {
		return res
	}

	phase = timer.Begin("mix")
	prog := mixer.Link(ctx, inst, rep)
	timer.End(phase, "")
	if prog == nil || res.Bag.HasErrors() {
		return res
	}

	phase = timer.Begin("streams")
	st := streams.Structure(ctx, prog, rep)
	timer.End(phase, "")
	if st == nil || res.Bag.HasErrors() {
		return res
	}

	phase = timer.Begin("print")
	mixer.Prune(prog)
	refl := reflect(prog, st)
	res.Program = prog
	res.Reflection = &refl
	res.Text = format.Program(prog, format.Options{})
	timer.End(phase, "")
	return res
}

// sources lists the digest of every class loaded from text, sorted by class.
func sources(records []*mixin.Record) []SourceDigest {
	seen := make(map[string]bool)
	var out []SourceDigest
	for _, r := range records {
		r.Lock()
		synthetic, class, hash := r.Synthetic, r.Key.Class, r.Hash
		r.Unlock()
		if synthetic || seen[class] || hash == ([32]byte{}) {
			continue
		}
		seen[class] = true
		out = append(out, SourceDigest{Class: class, Digest: project.Digest(hash)})
	}
	slices.SortFunc(out, func(a, b SourceDigest) int { return strings.Compare(a.Class, b.Class) })
	return out
}

// specializedDiags collects the problems found while re-analyzing the
// fragments specialized for the sizes of their compose arrays.
func specializedDiags(root *compose.Instance) *diag.Bag {
	bag := diag.NewBag(0)
	seen := make(map[*mixin.Fragment]bool)
	root.Walk(func(i *compose.Instance) {
		for _, f := range i.Lineage {
			if f.Origin == nil || seen[f] {
				continue
			}
			seen[f] = true
			bag.Merge(f.Diags)
		}
	})
	return bag
}

// Invalidate forgets everything built from classes: cached parses and
// instantiations, fragment records depending on them and stored results.
func (c *Compiler) Invalidate(classes ...string) (int, error) {
	set := make(map[string]struct{}, len(classes))
	for _, class := range classes {
		set[class] = struct{}{}
	}
	n := c.loader.Invalidate(set)
	n += c.cache.Invalidate(set)
	c.analyzer.Invalidate(set)
	stored, err := c.store.Invalidate(set)
	return n + stored, err
}
