// Package analysis runs the per-fragment passes over a closure of records:
// module build, dependency resolution, virtual table merge and semantic
// checks that fill the reference pools.
package analysis

import (
	"context"
	"fmt"
	"sync"

	"github.com/stride3d/stride-sub014/internal/diag"
	"github.com/stride3d/stride-sub014/internal/mixin"
	"github.com/stride3d/stride-sub014/internal/source"
	"github.com/stride3d/stride-sub014/internal/trace"
)

// Resolver finds the record of a class referenced from inside another record.
type Resolver interface {
	Lookup(from *mixin.Record, class string, args []string) *mixin.Record
}

// lookupFunc resolves a class name as seen from one fragment.
type lookupFunc func(class string, args []string) *mixin.Fragment

// Analyzer owns the global analysis lock. Passes that read and write the
// status of several fragments run under it.
type Analyzer struct {
	mu sync.Mutex

	lookups map[*mixin.Fragment]lookupFunc
	specs   map[specKey]*mixin.Fragment
}

func New() *Analyzer {
	return &Analyzer{
		lookups: make(map[*mixin.Fragment]lookupFunc),
		specs:   make(map[specKey]*mixin.Fragment),
	}
}

// Analyze runs every pass over records, which must list dependencies first.
// Fragments already analyzed are skipped; failures stay on the record.
func (a *Analyzer) Analyze(ctx context.Context, res Resolver, records []*mixin.Record) {
	span, ctx := trace.Start(ctx, trace.ScopePass, "analysis")
	defer span.End(fmt.Sprintf("%d records", len(records)))

	for _, r := range records {
		a.build(r)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, r := range records {
		if r.Fragment != nil {
			a.lookups[r.Fragment] = a.lookupFrom(res, r)
		}
	}
	for _, r := range records {
		if r.Fragment != nil {
			a.dependencies(r.Fragment, nil)
		}
	}
	for _, r := range records {
		if r.Fragment != nil {
			a.virtualTable(r.Fragment)
		}
	}
	for _, r := range records {
		if f := r.Fragment; f != nil {
			fs, _ := trace.Start(ctx, trace.ScopeFragment, "semantic:"+f.Name)
			a.semantic(f, nil)
			fs.End(f.Status[mixin.PassSemantic].String())
		}
	}
}

// Invalidate forgets the lookups and specializations made for fragments of
// classes. It returns how many entries were dropped.
func (a *Analyzer) Invalidate(classes map[string]struct{}) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	hit := func(f *mixin.Fragment) bool {
		if f.Shader == nil {
			return false
		}
		_, ok := classes[f.Shader.ClassName]
		return ok
	}
	n := 0
	for f := range a.lookups {
		if hit(f) {
			delete(a.lookups, f)
			n++
		}
	}
	for k := range a.specs {
		if hit(k.origin) {
			delete(a.specs, k)
			n++
		}
	}
	return n
}

func (a *Analyzer) lookupFrom(res Resolver, from *mixin.Record) lookupFunc {
	return func(class string, args []string) *mixin.Fragment {
		r := res.Lookup(from, class, args)
		if r == nil {
			return nil
		}
		return r.Fragment
	}
}

func (a *Analyzer) lookup(f *mixin.Fragment, class string) *mixin.Fragment {
	if fn := a.lookups[f]; fn != nil {
		return fn(class, nil)
	}
	if f.Origin != nil {
		return a.lookup(f.Origin, class)
	}
	return nil
}

func reporter(f *mixin.Fragment) diag.Reporter {
	return diag.BagReporter{Bag: f.Diags, Fragment: f.Name}
}

// errorCounter forwards reports and counts errors.
type errorCounter struct {
	next   diag.Reporter
	errors int
}

func (c *errorCounter) Report(code diag.Code, sev diag.Severity, primary source.Span, msg string, notes []diag.Note) {
	if sev == diag.SevError {
		c.errors++
	}
	c.next.Report(code, sev, primary, msg, notes)
}

// finish sets the status of pass from the number of errors reported.
func finish(f *mixin.Fragment, pass mixin.Pass, c *errorCounter) {
	if c.errors > 0 {
		f.Status[pass] = mixin.StatusError
	} else {
		f.Status[pass] = mixin.StatusComplete
	}
}
